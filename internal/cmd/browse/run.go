// Package browse implements the "connectix browse" CLI subcommand.
// It opens the interactive remote file browser.
package browse

import (
	"flag"

	tea "github.com/charmbracelet/bubbletea"

	"connectix/internal/browseui"
	"connectix/internal/cmd/common"
	"connectix/internal/fileops"
)

// Options captures CLI flags for the browser.
type Options struct {
	common.Options
	Path string
}

// Run parses browse flags, connects, and hands control to the TUI.
func Run(args []string) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	var opt Options
	opt.RegisterFlags(fs)
	fs.StringVar(&opt.Path, "path", "/", "starting remote directory")
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
	m := browseui.New(facade, token, opt.Host, opt.Path)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
