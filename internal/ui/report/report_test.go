package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hostprep/internal/stage"
	"github.com/imamik/hostprep/internal/status"
)

var _ stage.Reporter = (*Reporter)(nil)

func TestReporter_Install(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := New(&buf, false)

	r.StageStarted("disk")
	r.Report(stage.Result{Stage: "disk", Capability: "mount", Mode: stage.ModeInstall})
	r.Report(stage.Result{Stage: "disk", Capability: "apt", Mode: stage.ModeInstall, Err: errors.New("unable to locate: foo")})

	assert.Equal(t, "= disk\n+ mount: OK\n- apt: FAILURE unable to locate: foo\n", buf.String())
}

func TestReporter_Check(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := New(&buf, false)

	r.Report(stage.Result{Capability: "mkdir", Mode: stage.ModeCheck,
		Status: status.New([]string{"/data/a found"}, []string{"/data/b missing"})})
	r.Report(stage.Result{Capability: "git", Mode: stage.ModeCheck,
		Status: status.New([]string{"/src exists"}, nil)})

	assert.Equal(t,
		"- mkdir: [!!]\n    /data/a found\n    ! /data/b missing\n"+
			"+ git: [OK]\n    /src exists\n",
		buf.String())
}

func TestReporter_ColorDisabledForBuffers(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	New(&buf, true).Report(stage.Result{Capability: "mount", Mode: stage.ModeInstall})

	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Equal(t, "+ mount: OK\n", buf.String())
}

func TestReporter_Summary(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	New(&buf, false).Summary(stage.ModeInstall, []stage.Result{
		{Mode: stage.ModeInstall},
		{Mode: stage.ModeInstall, Err: errors.New("x")},
	})

	assert.Contains(t, buf.String(), "install: 2 capabilities, 1 failed")
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	err := WriteJSON(&buf, []stage.Result{
		{Stage: "disk", Capability: "mount", Mode: stage.ModeCheck,
			Status: status.New([]string{"folder /data is used by sdb"}, []string{"device /dev/sdb is not in fstab"})},
		{Stage: "tools", Capability: "docker", Mode: stage.ModeInstall, Err: errors.New("unsupported OS: arch")},
	})
	require.NoError(t, err)

	var got []JSONResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []JSONResult{
		{Stage: "disk", Capability: "mount", Mode: "check", Result: "unsatisfied",
			Evidence: []string{"folder /data is used by sdb"}, Gaps: []string{"device /dev/sdb is not in fstab"}},
		{Stage: "tools", Capability: "docker", Mode: "install", Result: "error", Error: "unsupported OS: arch"},
	}, got)
}
