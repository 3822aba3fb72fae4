// Package activity defines the audit event model and the fire-and-forget
// emitter used by every session-facing operation. Recording an event must
// never fail the operation that produced it.
package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind names one meaningful operation against a session.
type Kind string

const (
	KindSessionStarted Kind = "session.started"
	KindSessionEnded   Kind = "session.ended"
	KindCommandExecute Kind = "command.execute"
	KindFileRead       Kind = "file.read"
	KindFileWrite      Kind = "file.write"
	KindFileDelete     Kind = "file.delete"
	KindFileRename     Kind = "file.rename"
	KindFileCopy       Kind = "file.copy"
	KindFileMove       Kind = "file.move"
	KindFileChmod      Kind = "file.chmod"
	KindFileDownload   Kind = "file.download"
	KindDirList        Kind = "dir.list"
	KindDirCreate      Kind = "dir.create"
	KindDirDelete      Kind = "dir.delete"
	KindSearchRun      Kind = "search.run"
	KindDiskUsage      Kind = "disk.usage"
)

// Event is one audit record. Credentials never appear in Detail.
type Event struct {
	ConnectionID string
	UserID       string
	Kind         Kind
	Detail       string
	Bytes        int64
	Time         time.Time
}

// Logger receives events. Implementations may persist them; failures stay
// behind this boundary.
type Logger interface {
	Record(ctx context.Context, ev Event) error
}

// SlogLogger writes events to a structured logger. It is the default sink
// when no persistent store is configured.
type SlogLogger struct {
	Log *slog.Logger
}

// Record logs the event at info level.
func (l *SlogLogger) Record(_ context.Context, ev Event) error {
	lg := l.Log
	if lg == nil {
		lg = slog.Default()
	}
	lg.Info("activity",
		"kind", string(ev.Kind),
		"connection_id", ev.ConnectionID,
		"user_id", ev.UserID,
		"detail", ev.Detail,
		"bytes", ev.Bytes,
	)
	return nil
}

// Emitter dispatches events to a Logger on background goroutines.
// Sink errors are traced and discarded.
type Emitter struct {
	Sink Logger
	Log  *slog.Logger

	wg sync.WaitGroup
}

// Emit records the event asynchronously. It stamps Time when unset and
// returns immediately; the caller's operation never waits on the sink.
func (e *Emitter) Emit(ev Event) {
	if e == nil || e.Sink == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.Sink.Record(context.Background(), ev); err != nil {
			lg := e.Log
			if lg == nil {
				lg = slog.Default()
			}
			lg.Debug("activity sink failed", "kind", string(ev.Kind), "error", err)
		}
	}()
}

// Flush blocks until all in-flight events have been handed to the sink.
// Intended for process shutdown and tests.
func (e *Emitter) Flush() {
	if e == nil {
		return
	}
	e.wg.Wait()
}
