// Command connectix is the main entry point for the CLI binary.
// It dispatches to subcommands like ls, exec, get, find, du, and browse.
package main

import (
	"fmt"
	"os"

	"connectix/internal/cmd/browse"
	"connectix/internal/cmd/chmod"
	"connectix/internal/cmd/du"
	"connectix/internal/cmd/exec"
	"connectix/internal/cmd/find"
	"connectix/internal/cmd/get"
	"connectix/internal/cmd/ls"
	"connectix/internal/version"
)

// main is the process entry point and forwards to run for testable logic.
func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// run parses argv and invokes the matching subcommand handler.
// It returns an error for missing or unknown subcommands.
func run(argv []string) error {
	if len(argv) < 2 {
		usage()
		return fmt.Errorf("missing subcommand")
	}

	switch argv[1] {
	case "ls":
		return ls.Run(argv[2:])
	case "exec":
		return exec.Run(argv[2:])
	case "get":
		return get.Run(argv[2:])
	case "find":
		return find.Run(argv[2:])
	case "du":
		return du.Run(argv[2:])
	case "chmod":
		return chmod.Run(argv[2:])
	case "browse":
		return browse.Run(argv[2:])
	case "version":
		fmt.Printf("connectix %s\n", version.Version)
		return nil
	case "-h", "--help", "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown subcommand: %s", argv[1])
	}
}

// usage prints the canonical CLI syntax to stderr.
func usage() {
	fmt.Fprintln(os.Stderr, "connectix <ls|exec|get|find|du|chmod|browse|version> [flags]")
}
