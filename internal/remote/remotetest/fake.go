// Package remotetest provides a scripted remote.Channel for tests.
package remotetest

import (
	"context"
	"strings"
	"sync"
)

// Response is what the fake channel answers for a matched command.
type Response struct {
	ExitCode int
	Output   string
	Err      error
}

// OK is a successful response with the given output.
func OK(output string) Response {
	return Response{Output: output}
}

// Exit is a response with a non-zero exit code.
func Exit(code int, output string) Response {
	return Response{ExitCode: code, Output: output}
}

type rule struct {
	exact    bool
	match    string
	response Response
}

// Fake is a scripted remote.Channel. Every executed command is recorded.
// Rules registered later take precedence over earlier ones, and exact
// matches take precedence over substring matches. Unmatched commands get
// Default, which succeeds with empty output unless changed.
type Fake struct {
	mu       sync.Mutex
	rules    []rule
	commands []string

	Default Response
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{}
}

// On answers resp for exactly command.
func (f *Fake) On(command string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{exact: true, match: command, response: resp})
	return f
}

// OnContains answers resp for any command containing substr.
func (f *Fake) OnContains(substr string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{match: substr, response: resp})
	return f
}

// Exec implements remote.Channel.
func (f *Fake) Exec(_ context.Context, command string) (int, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)

	resp := f.lookup(command)
	return resp.ExitCode, resp.Output, resp.Err
}

func (f *Fake) lookup(command string) Response {
	for i := len(f.rules) - 1; i >= 0; i-- {
		if r := f.rules[i]; r.exact && r.match == command {
			return r.response
		}
	}
	for i := len(f.rules) - 1; i >= 0; i-- {
		if r := f.rules[i]; !r.exact && strings.Contains(command, r.match) {
			return r.response
		}
	}
	return f.Default
}

// Commands returns every command executed so far, in order.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// Count returns how many executed commands contain substr.
func (f *Fake) Count(substr string) int {
	n := 0
	for _, c := range f.Commands() {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

// Ran reports whether any executed command contains substr.
func (f *Fake) Ran(substr string) bool {
	return f.Count(substr) > 0
}

// Reset forgets the recorded commands but keeps the rules.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
}
