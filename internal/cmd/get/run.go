// Package get implements the "connectix get" CLI subcommand.
// It downloads one remote file to the local filesystem.
package get

import (
	"flag"
	"fmt"

	"connectix/internal/cmd/common"
	"connectix/internal/fileops"
	"connectix/internal/fsutil"
)

// Options captures CLI flags for the download.
type Options struct {
	common.Options
	Remote string
	Local  string
}

// Run parses get flags, connects, and streams the remote file down.
func Run(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	var opt Options
	opt.RegisterFlags(fs)
	fs.StringVar(&opt.Remote, "remote", "", "remote file path")
	fs.StringVar(&opt.Local, "local", "", "local destination (defaults to the remote base name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opt.Remote == "" {
		return fmt.Errorf("get: -remote is required")
	}
	if opt.Local == "" {
		opt.Local = fsutil.BaseRemote(opt.Remote)
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

	facade := &fileops.Facade{Registry: app.Manager.Registry(), Activity: app.Activity, Log: app.Log}
	n, err := facade.Download(token, opt.Remote, opt.Local)
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %s (%s)\n", opt.Remote, opt.Local, fsutil.FormatSize(n))
	return nil
}
