// Package runner executes single shell commands over an existing
// session's transport. Each call uses a fresh execution channel.
package runner

import (
	"bytes"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"connectix/internal/activity"
	"connectix/internal/session"
)

// auditTruncateLen caps the stdout/stderr copies embedded in the audit
// event. The caller still receives the full streams.
const auditTruncateLen = 1000

// Result carries the full output of one command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExecError means the execution channel could not be opened or the
// command could not be driven to completion; no partial output is
// returned alongside it.
type ExecError struct {
	Command string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("command execution failed: %v", e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Executor resolves tokens and runs commands.
type Executor struct {
	Registry *session.Registry
	Activity *activity.Emitter
	Log      *slog.Logger
}

// Execute runs command against the session identified by token,
// accumulating stdout and stderr separately until the channel reports an
// exit code. A non-zero exit code is a successful execution.
func (e *Executor) Execute(token, command string) (Result, error) {
	s, err := e.Registry.Get(token)
	if err != nil {
		return Result{}, err
	}

	var stdout, stderr bytes.Buffer
	code, err := s.Transport.Exec(command, &stdout, &stderr)
	if err != nil {
		return Result{}, &ExecError{Command: command, Err: err}
	}
	s.Touch()

	res := Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}
	if e.Activity != nil {
		e.Activity.Emit(activity.Event{
			ConnectionID: s.ConnectionID,
			UserID:       s.UserID,
			Kind:         activity.KindCommandExecute,
			Detail: fmt.Sprintf("command=%s exit=%d stdout=%s stderr=%s",
				command, code, truncate(res.Stdout, auditTruncateLen), truncate(res.Stderr, auditTruncateLen)),
		})
	}
	return res, nil
}

// truncate cuts s to at most n bytes, backing off to the previous rune
// boundary so the audit copy stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
