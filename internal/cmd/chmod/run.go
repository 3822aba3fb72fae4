// Package chmod implements the "connectix chmod" CLI subcommand.
// It applies octal permission bits to a remote path.
package chmod

import (
	"flag"
	"fmt"

	"connectix/internal/cmd/common"
	"connectix/internal/fileops"
	"connectix/internal/fsutil"
)

// Options captures CLI flags for the permission change.
type Options struct {
	common.Options
	Path string
	Mode string
}

// Run parses chmod flags, connects, and applies the mode.
func Run(args []string) error {
	fs := flag.NewFlagSet("chmod", flag.ContinueOnError)
	var opt Options
	opt.RegisterFlags(fs)
	fs.StringVar(&opt.Path, "path", "", "remote path")
	fs.StringVar(&opt.Mode, "mode", "", "octal permission bits, e.g. 644 or 0755")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opt.Path == "" || opt.Mode == "" {
		return fmt.Errorf("chmod: -path and -mode are required")
	}
	mode, err := fsutil.ParseOctalMode(opt.Mode)
	if err != nil {
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

	facade := &fileops.Facade{Registry: app.Manager.Registry(), Activity: app.Activity, Log: app.Log}
	if err := facade.Chmod(token, opt.Path, mode); err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", opt.Path, fsutil.PermString(mode))
	return nil
}
