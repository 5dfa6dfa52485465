// Package shell persists aliases and environment exports in the remote
// user's ~/.bashrc.
package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/hostprep/internal/capability"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/status"
)

// Rc is the file entries are appended to.
const Rc = "~/.bashrc"

// Kind selects the keyword an entry is declared with.
type Kind string

// Entry kinds.
const (
	Alias  Kind = "alias"
	Export Kind = "export"
)

// Line returns the declaration written for name and value.
func (k Kind) Line(name, value string) string {
	return fmt.Sprintf("%s %s=%s", k, name, capability.SingleQuote(value))
}

func (k Kind) probe(name string) string {
	return fmt.Sprintf("grep -E '^%s %s=' %s 2>&1", k, name, Rc)
}

// Install appends the declaration for name unless one is already present.
// An existing declaration is never rewritten, even if its value differs.
func Install(ctx context.Context, r remote.Runner, kind Kind, name, value string) error {
	if remote.HasOutput(ctx, r, kind.probe(name)) {
		return nil
	}
	cmd := capability.Base64Write(kind.Line(name, value)+"\n", Rc, true)
	if _, err := r.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to add %s %s: %w", kind, name, err)
	}
	return nil
}

// Check reports the current declaration of name.
func Check(ctx context.Context, r remote.Runner, kind Kind, name string) (status.Status, error) {
	var b status.Builder
	out, err := r.Silent(ctx, kind.probe(name))
	if err != nil {
		return status.Status{}, err
	}
	if line := out.FirstLine(); out.OK() && line != "" {
		b.Ok(strings.TrimSpace(line))
	} else {
		b.Fail(fmt.Sprintf("%s %s is not declared in %s", kind, name, Rc))
	}
	return b.Status(), nil
}
