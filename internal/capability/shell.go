package capability

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Sudo prefixes command with sudo when enabled.
func Sudo(enabled bool, command string) string {
	if enabled {
		return "sudo " + command
	}
	return command
}

// Base64Write returns a command that writes content to path through a base64
// round trip, so content never needs shell escaping. With appendTo the file
// is appended to instead of truncated.
func Base64Write(content, path string, appendTo bool) string {
	redirect := ">"
	if appendTo {
		redirect = ">>"
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	return fmt.Sprintf("echo %s | base64 -d %s %s", encoded, redirect, path)
}

// SingleQuote quotes s for a POSIX shell.
func SingleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
