// Package diskusage reports capacity figures for remote paths. The
// primary mechanism parses a filesystem-level df report; when that is
// inapplicable the aggregate directory size stands in, flagged as an
// approximation.
package diskusage

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"connectix/internal/activity"
	"connectix/internal/fsutil"
	"connectix/internal/runner"
	"connectix/internal/session"
)

// Info is a capacity report normalized to bytes.
type Info struct {
	Path        string
	Total       int64
	Used        int64
	Available   int64
	UsedPercent float64
	// Approximate is set when the figures came from the directory-size
	// fallback: Used==Total and Available==0 by construction.
	Approximate bool
}

// Runner executes the df/du commands.
type Runner interface {
	Execute(token, command string) (runner.Result, error)
}

// Reporter derives disk usage over an existing session.
type Reporter struct {
	Registry *session.Registry
	Runner   Runner
	Activity *activity.Emitter
	Log      *slog.Logger
}

// Usage reports capacity for the filesystem containing path, falling
// back to the path's aggregate size when no filesystem report applies.
func (r *Reporter) Usage(token, path string) (Info, error) {
	s, err := r.Registry.Get(token)
	if err != nil {
		return Info{}, err
	}
	path = fsutil.CleanRemote(path)

	info, err := r.filesystemUsage(token, path)
	if err != nil {
		if r.Log != nil {
			r.Log.Debug("df report inapplicable, using directory size", "path", path, "error", err)
		}
		info, err = r.directorySize(token, path)
		if err != nil {
			return Info{}, err
		}
	}

	s.Touch()
	if r.Activity != nil {
		r.Activity.Emit(activity.Event{
			ConnectionID: s.ConnectionID,
			UserID:       s.UserID,
			Kind:         activity.KindDiskUsage,
			Detail:       path,
		})
	}
	return info, nil
}

// filesystemUsage parses `df -h` output of the form:
//
//	Filesystem      Size  Used Avail Use% Mounted on
//	/dev/sda1        40G   12G   28G  30% /
func (r *Reporter) filesystemUsage(token, path string) (Info, error) {
	out, err := r.Runner.Execute(token, fmt.Sprintf("df -h -- %q", path))
	if err != nil {
		return Info{}, err
	}
	if out.ExitCode != 0 {
		return Info{}, fmt.Errorf("df exited %d: %s", out.ExitCode, strings.TrimSpace(out.Stderr))
	}

	lines := nonEmptyLines(out.Stdout)
	if len(lines) < 2 {
		return Info{}, fmt.Errorf("df produced no report for %s", path)
	}
	// The report line may wrap when the device name is long; take the
	// last line and require the five value fields.
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 5 {
		return Info{}, fmt.Errorf("unexpected df line: %q", lines[len(lines)-1])
	}
	// Trailing fields are fixed, so index from the end.
	sizeF, usedF, availF, pctF := fields[len(fields)-5], fields[len(fields)-4], fields[len(fields)-3], fields[len(fields)-2]

	total, err := fsutil.ParseSize(sizeF)
	if err != nil {
		return Info{}, err
	}
	used, err := fsutil.ParseSize(usedF)
	if err != nil {
		return Info{}, err
	}
	avail, err := fsutil.ParseSize(availF)
	if err != nil {
		return Info{}, err
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(pctF, "%"), 64)
	if err != nil {
		return Info{}, fmt.Errorf("unexpected df percentage %q", pctF)
	}

	return Info{Path: path, Total: total, Used: used, Available: avail, UsedPercent: pct}, nil
}

// directorySize reports the aggregate size of path's contents as 100%
// used with zero available, signaling an approximation rather than a
// true capacity report.
func (r *Reporter) directorySize(token, path string) (Info, error) {
	out, err := r.Runner.Execute(token, fmt.Sprintf("du -sh -- %q", path))
	if err != nil {
		return Info{}, err
	}
	if out.ExitCode != 0 {
		return Info{}, fmt.Errorf("du exited %d: %s", out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	lines := nonEmptyLines(out.Stdout)
	if len(lines) == 0 {
		return Info{}, fmt.Errorf("du produced no report for %s", path)
	}
	fields := strings.Fields(lines[0])
	if len(fields) < 1 {
		return Info{}, fmt.Errorf("unexpected du line: %q", lines[0])
	}
	size, err := fsutil.ParseSize(fields[0])
	if err != nil {
		return Info{}, err
	}
	return Info{
		Path:        path,
		Total:       size,
		Used:        size,
		Available:   0,
		UsedPercent: 100,
		Approximate: true,
	}, nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
