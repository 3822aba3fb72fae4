// Package ls implements the "connectix ls" CLI subcommand.
// It lists a remote directory as a table, directories first.
package ls

import (
	"flag"
	"os"

	"github.com/olekukonko/tablewriter"

	"connectix/internal/cmd/common"
	"connectix/internal/fileops"
	"connectix/internal/fsutil"
)

// Options captures CLI flags for the listing.
type Options struct {
	common.Options
	Path string
	Long bool
}

// Run parses ls flags, connects, and prints the listing.
func Run(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	var opt Options
	opt.RegisterFlags(fs)
	fs.StringVar(&opt.Path, "path", "/", "remote directory to list")
	fs.BoolVar(&opt.Long, "l", false, "include owner, group, and modification time")
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

	facade := &fileops.Facade{Registry: app.Manager.Registry(), Activity: app.Activity, Log: app.Log}
	entries, err := facade.List(token, opt.Path)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	if opt.Long {
		table.SetHeader([]string{"Mode", "Owner", "Group", "Size", "Modified", "Kind", "Name"})
		for _, e := range entries {
			table.Append([]string{
				e.Permissions, e.Owner, e.Group,
				fsutil.FormatSize(e.Size),
				e.ModTime.Format("2006-01-02 15:04"),
				string(e.Kind), e.Name,
			})
		}
	} else {
		table.SetHeader([]string{"Mode", "Size", "Kind", "Name"})
		for _, e := range entries {
			table.Append([]string{e.Permissions, fsutil.FormatSize(e.Size), string(e.Kind), e.Name})
		}
	}
	table.Render()
	return nil
}
