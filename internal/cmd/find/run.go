// Package find implements the "connectix find" CLI subcommand.
// It searches remote files by name and prints the matches.
package find

import (
	"flag"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"connectix/internal/cmd/common"
	"connectix/internal/runner"
	"connectix/internal/search"
)

// Options captures CLI flags for the search.
type Options struct {
	common.Options
	Root       string
	Query      string
	Regex      bool
	CaseSense  bool
	Kind       string
	MaxResults int
}

// Run parses find flags, connects, and runs the search.
func Run(args []string) error {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	var opt Options
	opt.RegisterFlags(fs)
	fs.StringVar(&opt.Root, "root", "/", "directory to search from")
	fs.StringVar(&opt.Query, "query", "", "name substring (or pattern with -regex)")
	fs.BoolVar(&opt.Regex, "regex", false, "treat query as a regular expression")
	fs.BoolVar(&opt.CaseSense, "case", false, "case-sensitive substring match")
	fs.StringVar(&opt.Kind, "kind", "", "restrict to file|directory")
	fs.IntVar(&opt.MaxResults, "max", search.DefaultMaxResults, "result cap")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opt.Query == "" {
		return fmt.Errorf("find: -query is required")
	}

	app, err := common.Bootstrap(opt.Options)
	if err != nil {
		return err
	}
	defer app.Close()

	token, err := app.Connect(opt.Options)
	if err != nil {
		return err
	}
	defer func() { _ = app.Manager.Close(token) }()

	ex := &runner.Executor{Registry: app.Manager.Registry(), Activity: app.Activity, Log: app.Log}
	eng := &search.Engine{Registry: app.Manager.Registry(), Runner: ex, Activity: app.Activity, Log: app.Log}

	mode := search.MatchSubstring
	if opt.Regex {
		mode = search.MatchRegex
	} else if opt.CaseSense {
		mode = search.MatchSubstringCase
	}
	results, err := eng.Search(token, search.Options{
		Root:       opt.Root,
		Query:      opt.Query,
		Mode:       mode,
		Kind:       search.Kind(opt.Kind),
		MaxResults: opt.MaxResults,
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Kind", "Path"})
	for _, r := range results {
		table.Append([]string{r.Kind, r.Path})
	}
	table.Render()
	return nil
}
