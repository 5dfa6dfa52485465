package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		success       []string
		failures      []string
		wantSatisfied bool
	}{
		{"nothing inspected", nil, nil, true},
		{"only successes", []string{"a ok", "b ok"}, nil, true},
		{"empty failure slice", []string{"a ok"}, []string{}, true},
		{"only failures", nil, []string{"a missing"}, false},
		{"mixed", []string{"a ok"}, []string{"b missing", "c missing"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := New(tt.success, tt.failures)
			assert.Equal(t, tt.wantSatisfied, s.Satisfied())
			assert.Equal(t, len(tt.success), len(s.Evidence()))
			assert.Equal(t, len(tt.failures), len(s.Gaps()))
		})
	}
}

func TestNew_PreservesOrder(t *testing.T) {
	t.Parallel()
	s := New([]string{"z", "a", "m"}, []string{"y", "b"})

	assert.Equal(t, []string{"z", "a", "m"}, s.Evidence())
	assert.Equal(t, []string{"y", "b"}, s.Gaps())
}

func TestNew_CopiesInput(t *testing.T) {
	t.Parallel()
	success := []string{"a"}
	s := New(success, nil)
	success[0] = "changed"

	assert.Equal(t, []string{"a"}, s.Evidence())
}

func TestStatus_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "satisfied", New(nil, nil).String())
	assert.Equal(t, "unsatisfied", New(nil, []string{"x"}).String())
}

func TestBuilder(t *testing.T) {
	t.Parallel()
	var b Builder
	b.Ok("first")
	b.Record(false, "unused", "second missing")
	b.Record(true, "third", "unused")

	s := b.Status()
	assert.False(t, s.Satisfied())
	assert.Equal(t, []string{"first", "third"}, s.Evidence())
	assert.Equal(t, []string{"second missing"}, s.Gaps())
}
