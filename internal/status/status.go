// Package status models the outcome of a capability check.
//
// A Status is either satisfied (every inspected fact already holds) or
// unsatisfied (at least one gap was found). Both variants carry the
// human-readable evidence gathered along the way, in the order the facts
// were inspected.
package status

// Status is the result of a single capability check.
type Status struct {
	evidence []string
	gaps     []string
}

// New builds a Status from the facts that held and the facts that did not.
// The status is unsatisfied iff failures is non-empty.
func New(success, failures []string) Status {
	return Status{
		evidence: append([]string(nil), success...),
		gaps:     append([]string(nil), failures...),
	}
}

// Satisfied reports whether no gaps were found.
func (s Status) Satisfied() bool {
	return len(s.gaps) == 0
}

// Evidence returns the facts that already hold, in insertion order.
func (s Status) Evidence() []string {
	return append([]string(nil), s.evidence...)
}

// Gaps returns the facts that do not hold, in insertion order.
func (s Status) Gaps() []string {
	return append([]string(nil), s.gaps...)
}

// String returns "satisfied" or "unsatisfied".
func (s Status) String() string {
	if s.Satisfied() {
		return "satisfied"
	}
	return "unsatisfied"
}

// Builder accumulates facts for a Status.
type Builder struct {
	success  []string
	failures []string
}

// Ok records a fact that holds.
func (b *Builder) Ok(msg string) {
	b.success = append(b.success, msg)
}

// Fail records a fact that does not hold.
func (b *Builder) Fail(msg string) {
	b.failures = append(b.failures, msg)
}

// Record files msg under success or failure depending on ok.
func (b *Builder) Record(ok bool, okMsg, failMsg string) {
	if ok {
		b.Ok(okMsg)
		return
	}
	b.Fail(failMsg)
}

// Status returns the accumulated Status.
func (b *Builder) Status() Status {
	return New(b.success, b.failures)
}
