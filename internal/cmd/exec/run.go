// Package exec implements the "connectix exec" CLI subcommand.
// It runs one command on the target and relays its output and exit code.
package exec

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"connectix/internal/cmd/common"
	"connectix/internal/runner"
)

// Options captures CLI flags for command execution.
type Options struct {
	common.Options
}

// Run parses exec flags, connects, and executes the remaining arguments
// as a single remote command. A non-zero remote exit code becomes the
// local exit code.
func Run(args []string) error {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	var opt Options
	opt.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	command := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("exec: command is required after flags")
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

	ex := &runner.Executor{Registry: app.Manager.Registry(), Activity: app.Activity, Log: app.Log}
	res, err := ex.Execute(token, command)
	_ = app.Manager.Close(token)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)
	if res.ExitCode != 0 {
		app.Close()
		os.Exit(res.ExitCode)
	}
	return nil
}
