// Package search finds remote files by name. The primary tier is a
// structured recursive traversal over the file-transfer channel; when a
// substring query matches nothing, a simplified listing-based fallback
// takes one more shot at the starting directory.
package search

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"connectix/internal/activity"
	"connectix/internal/fileops"
	"connectix/internal/fsutil"
	"connectix/internal/runner"
	"connectix/internal/session"
)

// DefaultMaxResults caps a search when the caller does not.
const DefaultMaxResults = 100

// Kind filters traversal candidates.
type Kind string

const (
	KindAny       Kind = ""
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// MatchMode selects how Query is interpreted.
type MatchMode int

const (
	// MatchSubstring is a case-insensitive substring match (the default).
	MatchSubstring MatchMode = iota
	// MatchSubstringCase is a case-sensitive substring match.
	MatchSubstringCase
	// MatchRegex treats Query as a regular expression.
	MatchRegex
)

// Options describes one search.
type Options struct {
	Root       string
	Query      string
	Mode       MatchMode
	Kind       Kind
	MaxResults int
}

// Result is one candidate. ResolvedKind is "unknown" when the
// type-resolution pass could not stat the path.
type Result struct {
	Path string
	Name string
	Kind string
}

// Runner executes the fallback listing command.
type Runner interface {
	Execute(token, command string) (runner.Result, error)
}

// Engine runs searches against registered sessions.
type Engine struct {
	Registry *session.Registry
	Runner   Runner
	Activity *activity.Emitter
	Log      *slog.Logger
}

// Search runs the two-tier strategy. Zero results from both tiers is a
// valid, non-error outcome.
func (e *Engine) Search(token string, opts Options) ([]Result, error) {
	s, err := e.Registry.Get(token)
	if err != nil {
		return nil, err
	}
	ch := s.Channel
	if ch == nil {
		return nil, fileops.ErrNoFileChannel
	}

	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	opts.Root = fsutil.CleanRemote(opts.Root)

	re, err := compileMatcher(opts)
	if err != nil {
		return nil, fmt.Errorf("search: bad pattern: %w", err)
	}

	results := e.traverse(ch, opts.Root, re, opts)

	// The fallback fires only for substring queries that found nothing;
	// an empty regex result stands on its own.
	if len(results) == 0 && opts.Mode != MatchRegex {
		results = e.fallbackListing(token, opts)
	}

	e.resolveKinds(ch, results)

	s.Touch()
	if e.Activity != nil {
		e.Activity.Emit(activity.Event{
			ConnectionID: s.ConnectionID,
			UserID:       s.UserID,
			Kind:         activity.KindSearchRun,
			Detail:       fmt.Sprintf("root=%s query=%s results=%d", opts.Root, opts.Query, len(results)),
		})
	}
	return results, nil
}

// compileMatcher turns the query into a regexp. Substring modes quote
// special characters so they carry no pattern semantics.
func compileMatcher(opts Options) (*regexp.Regexp, error) {
	switch opts.Mode {
	case MatchRegex:
		return regexp.Compile(opts.Query)
	case MatchSubstringCase:
		return regexp.Compile(regexp.QuoteMeta(opts.Query))
	default:
		return regexp.Compile("(?i)" + regexp.QuoteMeta(opts.Query))
	}
}

// traverse walks the tree breadth-first from root, collecting entries
// whose name matches and whose kind passes the filter. Unreadable
// subdirectories are skipped, not fatal.
func (e *Engine) traverse(ch session.FileChannel, root string, re *regexp.Regexp, opts Options) []Result {
	var results []Result
	queue := []string{root}
	for len(queue) > 0 && len(results) < opts.MaxResults {
		dir := queue[0]
		queue = queue[1:]

		entries, err := ch.ReadDir(dir)
		if err != nil {
			if e.Log != nil {
				e.Log.Debug("search: skipping unreadable directory", "path", dir, "error", err)
			}
			continue
		}
		for _, fi := range entries {
			full := fsutil.JoinRemote(dir, fi.Name())
			if fi.IsDir() {
				queue = append(queue, full)
			}
			if !kindMatches(opts.Kind, fi.IsDir()) {
				continue
			}
			if !re.MatchString(fi.Name()) {
				continue
			}
			kind := string(KindFile)
			if fi.IsDir() {
				kind = string(KindDirectory)
			}
			results = append(results, Result{Path: full, Name: fi.Name(), Kind: kind})
			if len(results) >= opts.MaxResults {
				break
			}
		}
	}
	return results
}

// fallbackListing lists the starting directory with ls and filters the
// rendered lines by substring. Each matching line is parsed back into a
// path and a directory flag from the listing's own formatting.
func (e *Engine) fallbackListing(token string, opts Options) []Result {
	if e.Runner == nil {
		return nil
	}
	out, err := e.Runner.Execute(token, fmt.Sprintf("ls -la -- %q", opts.Root))
	if err != nil || out.ExitCode != 0 {
		if e.Log != nil {
			e.Log.Debug("search: fallback listing failed", "root", opts.Root, "error", err)
		}
		return nil
	}

	query := opts.Query
	fold := opts.Mode == MatchSubstring
	if fold {
		query = strings.ToLower(query)
	}

	var results []Result
	for _, line := range strings.Split(out.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "total ") {
			continue
		}
		hay := line
		if fold {
			hay = strings.ToLower(line)
		}
		if !strings.Contains(hay, query) {
			continue
		}
		name, isDir, ok := parseListingLine(line)
		if !ok || name == "." || name == ".." {
			continue
		}
		if !kindMatches(opts.Kind, isDir) {
			continue
		}
		kind := string(KindFile)
		if isDir {
			kind = string(KindDirectory)
		}
		results = append(results, Result{
			Path: fsutil.JoinRemote(opts.Root, name),
			Name: name,
			Kind: kind,
		})
		if len(results) >= opts.MaxResults {
			break
		}
	}
	return results
}

// parseListingLine extracts the file name and directory flag from one
// "ls -la" line: mode, links, owner, group, size, date fields, name.
func parseListingLine(line string) (name string, isDir bool, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 9 {
		return "", false, false
	}
	mode := fields[0]
	if len(mode) < 10 {
		return "", false, false
	}
	isDir = mode[0] == 'd'

	// The name begins after the eighth field; rejoining keeps names with
	// spaces intact. Symlink arrows are cut off.
	idx := 0
	for i := 0; i < 8; i++ {
		next := strings.Index(line[idx:], fields[i])
		if next < 0 {
			return "", false, false
		}
		idx += next + len(fields[i])
	}
	name = strings.TrimLeft(line[idx:], " \t")
	if cut := strings.Index(name, " -> "); cut >= 0 {
		name = name[:cut]
	}
	if name == "" {
		return "", false, false
	}
	return name, isDir, true
}

// resolveKinds stats each candidate to confirm its type. A failed lookup
// leaves the candidate as "unknown" rather than aborting the search.
func (e *Engine) resolveKinds(ch session.FileChannel, results []Result) {
	for i := range results {
		fi, err := ch.Stat(results[i].Path)
		if err != nil {
			results[i].Kind = "unknown"
			continue
		}
		if fi.IsDir() {
			results[i].Kind = string(KindDirectory)
		} else {
			results[i].Kind = string(KindFile)
		}
	}
}

func kindMatches(k Kind, isDir bool) bool {
	switch k {
	case KindFile:
		return !isDir
	case KindDirectory:
		return isDir
	default:
		return true
	}
}
