package remote

import (
	"fmt"
	"strings"
)

// CommandError is returned by Run when the remote command exits non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("command exited with status %d", e.ExitCode)
	}
	return out
}
