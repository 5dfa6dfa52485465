package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/hostprep/internal/remote"
)

// OS families the package-based capabilities can provision.
const (
	OSDebian = "debian"
	OSUbuntu = "ubuntu"
)

const osReleasePath = "/etc/os-release"

// DetectOS returns the remote OS family from /etc/os-release. Families other
// than debian and ubuntu yield *UnsupportedPlatformError.
func DetectOS(ctx context.Context, r remote.Runner) (string, error) {
	out, err := r.Silent(ctx, "cat "+osReleasePath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", osReleasePath, err)
	}
	if !out.OK() {
		return "", &UnsupportedPlatformError{}
	}

	id := osReleaseValue(out.Output, "ID")
	switch id {
	case OSDebian, OSUbuntu:
		return id, nil
	default:
		return "", &UnsupportedPlatformError{OS: id}
	}
}

// osReleaseValue returns the unquoted value of key in an os-release document.
func osReleaseValue(doc, key string) string {
	for _, line := range strings.Split(doc, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || k != key {
			continue
		}
		return strings.ToLower(strings.Trim(v, `"'`))
	}
	return ""
}
