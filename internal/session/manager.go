package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"connectix/internal/activity"
)

const (
	// DefaultIdleTimeout is how long a session may sit without activity
	// before the sweeper evicts it.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultSweepEvery is the sweeper period.
	DefaultSweepEvery = 5 * time.Minute
)

// Options configures a Manager. Zero values get defaults.
type Options struct {
	Registry    *Registry
	Activity    *activity.Emitter
	Log         *slog.Logger
	IdleTimeout time.Duration
	SweepEvery  time.Duration
}

// Manager is the session factory and owner of the cleanup schedule.
// It is safe for concurrent use.
type Manager struct {
	reg         *Registry
	activity    *activity.Emitter
	log         *slog.Logger
	idleTimeout time.Duration
	sweepEvery  time.Duration

	// dial is swappable so tests can substitute a fake transport.
	dial func(cfg Config) (Transport, error)
	now  func() time.Time

	cron *cron.Cron
}

// NewManager builds a Manager around the given registry (a fresh one
// when nil).
func NewManager(opt Options) *Manager {
	reg := opt.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	lg := opt.Log
	if lg == nil {
		lg = slog.Default()
	}
	idle := opt.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	sweep := opt.SweepEvery
	if sweep <= 0 {
		sweep = DefaultSweepEvery
	}
	return &Manager{
		reg:         reg,
		activity:    opt.Activity,
		log:         lg,
		idleTimeout: idle,
		sweepEvery:  sweep,
		dial:        dialTransport,
		now:         time.Now,
	}
}

// Registry exposes the backing registry for the facade packages.
func (m *Manager) Registry() *Registry { return m.reg }

// Connect negotiates a new session and returns its token. On any failure
// no session is registered and no resources are left open.
func (m *Manager) Connect(connectionID, userID string, cfg Config) (string, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	tr, err := m.dial(cfg)
	if err != nil {
		m.log.Warn("connect failed",
			"host", cfg.Host, "username", cfg.Username, "error", err)
		return "", err
	}

	ch, err := tr.OpenFileChannel()
	if err != nil {
		_ = tr.Close()
		m.log.Warn("file channel init failed",
			"host", cfg.Host, "username", cfg.Username, "error", err)
		return "", &ChannelInitError{Err: err}
	}

	s := NewSession(uuid.NewString(), connectionID, userID, tr, ch, cfg)
	s.touchAt(m.now())
	m.reg.Put(s)
	go m.watch(s)

	m.log.Info("session started", "host", cfg.Host, "username", cfg.Username)
	m.emit(s, activity.KindSessionStarted,
		fmt.Sprintf("host=%s username=%s", cfg.Host, cfg.Username), 0)
	return s.Token, nil
}

// Close ends a session explicitly. Closing an unknown or already-closed
// token is a no-op, so double-close is idempotent.
func (m *Manager) Close(token string) error {
	s, ok := m.reg.Remove(token)
	if !ok {
		return nil
	}
	s.markDisconnected()
	s.closeHandles()
	m.emit(s, activity.KindSessionEnded, "session closed", 0)
	return nil
}

// Ping checks transport health for a token.
func (m *Manager) Ping(token string) error {
	s, err := m.reg.Get(token)
	if err != nil {
		return err
	}
	if err := s.Transport.Ping(); err != nil {
		return &UnavailableError{Token: token, NotConnected: true}
	}
	s.Touch()
	return nil
}

// watch removes the session when the transport reports closure. Callers
// holding the token learn of this on their next lookup.
func (m *Manager) watch(s *Session) {
	_ = s.Transport.Wait()
	s.markDisconnected()
	if _, ok := m.reg.Remove(s.Token); !ok {
		// Already closed or evicted; the ended event was emitted there.
		return
	}
	s.closeHandles()
	m.log.Info("session ended", "host", s.Config.Host, "reason", "connection closed")
	m.emit(s, activity.KindSessionEnded, "connection closed", 0)
}

// Start begins the periodic idle sweep. Stop must be called to halt it.
func (m *Manager) Start() {
	if m.cron != nil {
		return
	}
	m.cron = cron.New()
	spec := fmt.Sprintf("@every %s", m.sweepEvery)
	if _, err := m.cron.AddFunc(spec, m.Sweep); err != nil {
		m.log.Error("cleanup schedule rejected", "spec", spec, "error", err)
		return
	}
	m.cron.Start()
}

// Stop halts the idle sweep. Sessions stay registered.
func (m *Manager) Stop() {
	if m.cron == nil {
		return
	}
	m.cron.Stop()
	m.cron = nil
}

// Sweep evicts every session idle past the threshold. It races with
// in-flight operations only at whole-session granularity: an operation
// that touched its session before the sweep observed it survives.
func (m *Manager) Sweep() {
	cutoff := m.now().Add(-m.idleTimeout)
	var expired []*Session
	m.reg.ForEach(func(s *Session) {
		if s.LastActivity().Before(cutoff) {
			expired = append(expired, s)
		}
	})
	for _, s := range expired {
		if _, ok := m.reg.Remove(s.Token); !ok {
			continue
		}
		s.markDisconnected()
		s.closeHandles()
		m.log.Info("session ended", "host", s.Config.Host, "reason", "idle timeout")
		m.emit(s, activity.KindSessionEnded, "idle timeout", 0)
	}
}

func (m *Manager) emit(s *Session, kind activity.Kind, detail string, bytes int64) {
	if m.activity == nil {
		return
	}
	m.activity.Emit(activity.Event{
		ConnectionID: s.ConnectionID,
		UserID:       s.UserID,
		Kind:         kind,
		Detail:       detail,
		Bytes:        bytes,
	})
}
