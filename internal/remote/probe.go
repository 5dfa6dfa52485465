package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FileExists reports whether path exists on the remote host.
// Transport failures are reported as "does not exist".
func FileExists(ctx context.Context, r Runner, path string) bool {
	out, err := r.Silent(ctx, fmt.Sprintf("test -e %s", path))
	return err == nil && out.OK()
}

// Which runs a version-style probe command. On success it returns the trimmed
// output; otherwise the error carries the output, or a generic message when
// the command printed nothing.
func Which(ctx context.Context, r Runner, command string) (string, error) {
	out, err := r.Silent(ctx, command)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(out.Output)
	if !out.OK() {
		if text == "" {
			return "", fmt.Errorf("%s: exit status %d", command, out.ExitCode)
		}
		return "", errors.New(text)
	}
	return text, nil
}

// HasOutput reports whether command exits zero and prints something.
func HasOutput(ctx context.Context, r Runner, command string) bool {
	out, err := r.Silent(ctx, command)
	return err == nil && out.OK() && strings.TrimSpace(out.Output) != ""
}
