package diskusage

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connectix/internal/runner"
	"connectix/internal/session"
)

// scriptedRunner maps command prefixes to canned results.
type scriptedRunner struct {
	dfResult runner.Result
	duResult runner.Result
	commands []string
}

func (r *scriptedRunner) Execute(_ string, command string) (runner.Result, error) {
	r.commands = append(r.commands, command)
	if len(command) >= 2 && command[:2] == "df" {
		return r.dfResult, nil
	}
	return r.duResult, nil
}

type stubTransport struct{}

func (stubTransport) Exec(string, io.Writer, io.Writer) (int, error) { return 0, nil }
func (stubTransport) OpenFileChannel() (session.FileChannel, error)  { return nil, nil }
func (stubTransport) Ping() error                                    { return nil }
func (stubTransport) Wait() error                                    { select {} }
func (stubTransport) Close() error                                   { return nil }

func newReporter(t *testing.T, r Runner) (*Reporter, string) {
	t.Helper()
	reg := session.NewRegistry()
	s := session.NewSession("tok", "c", "u", stubTransport{}, nil, session.Config{})
	reg.Put(s)
	return &Reporter{Registry: reg, Runner: r}, s.Token
}

// TestFilesystemUsage parses a df report into normalized bytes.
func TestFilesystemUsage(t *testing.T) {
	sr := &scriptedRunner{dfResult: runner.Result{Stdout: `Filesystem      Size  Used Avail Use% Mounted on
/dev/sda1        40G   12G   28G  30% /
`}}
	rep, tok := newReporter(t, sr)

	info, err := rep.Usage(tok, "/var/www")
	require.NoError(t, err)
	assert.Equal(t, int64(40)<<30, info.Total)
	assert.Equal(t, int64(12)<<30, info.Used)
	assert.Equal(t, int64(28)<<30, info.Available)
	assert.InDelta(t, 30.0, info.UsedPercent, 0.01)
	assert.False(t, info.Approximate)
}

// TestWrappedDeviceLine handles df output where the long device name
// pushed the figures onto their own line.
func TestWrappedDeviceLine(t *testing.T) {
	sr := &scriptedRunner{dfResult: runner.Result{Stdout: `Filesystem      Size  Used Avail Use% Mounted on
/dev/mapper/very-long-volume-name
                 1T  512G  512G  50% /data
`}}
	rep, tok := newReporter(t, sr)

	info, err := rep.Usage(tok, "/data")
	require.NoError(t, err)
	assert.Equal(t, int64(1)<<40, info.Total)
	assert.InDelta(t, 50.0, info.UsedPercent, 0.01)
}

// TestDirectorySizeFallback kicks in when df is inapplicable and reports
// an approximation: 100% used, zero available.
func TestDirectorySizeFallback(t *testing.T) {
	sr := &scriptedRunner{
		dfResult: runner.Result{ExitCode: 1, Stderr: "df: /proc/x: No such file or directory"},
		duResult: runner.Result{Stdout: "1.5G\t/var/backups\n"},
	}
	rep, tok := newReporter(t, sr)

	info, err := rep.Usage(tok, "/var/backups")
	require.NoError(t, err)
	assert.True(t, info.Approximate)
	assert.Equal(t, info.Total, info.Used)
	assert.Equal(t, int64(0), info.Available)
	assert.InDelta(t, 100.0, info.UsedPercent, 0.01)
	assert.Equal(t, int64(1.5*float64(1<<30)), info.Total)
	require.Len(t, sr.commands, 2)
}

// TestUnknownToken fails with SessionUnavailable before any command.
func TestUnknownToken(t *testing.T) {
	sr := &scriptedRunner{}
	rep, _ := newReporter(t, sr)
	_, err := rep.Usage("bogus", "/")
	assert.True(t, session.IsUnavailable(err))
	assert.Empty(t, sr.commands)
}
