// Package du implements the "connectix du" CLI subcommand.
// It reports disk capacity for a remote path.
package du

import (
	"flag"
	"fmt"

	"connectix/internal/cmd/common"
	"connectix/internal/diskusage"
	"connectix/internal/fsutil"
	"connectix/internal/runner"
)

// Options captures CLI flags for the usage report.
type Options struct {
	common.Options
	Path string
}

// Run parses du flags, connects, and prints the capacity report.
func Run(args []string) error {
	fs := flag.NewFlagSet("du", flag.ContinueOnError)
	var opt Options
	opt.RegisterFlags(fs)
	fs.StringVar(&opt.Path, "path", "/", "remote path to report on")
	if err := fs.Parse(args); err != nil {
		return err
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
	rep := &diskusage.Reporter{Registry: app.Manager.Registry(), Runner: ex, Activity: app.Activity, Log: app.Log}
	info, err := rep.Usage(token, opt.Path)
	if err != nil {
		return err
	}

	fmt.Printf("path:      %s\n", info.Path)
	fmt.Printf("total:     %s\n", fsutil.FormatSize(info.Total))
	fmt.Printf("used:      %s (%.1f%%)\n", fsutil.FormatSize(info.Used), info.UsedPercent)
	fmt.Printf("available: %s\n", fsutil.FormatSize(info.Available))
	if info.Approximate {
		fmt.Println("note: directory-size approximation, not a filesystem report")
	}
	return nil
}
