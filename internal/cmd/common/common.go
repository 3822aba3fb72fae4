// Package common wires the pieces every connectix subcommand needs:
// config, logging, the activity pipeline, and a connected session.
package common

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"connectix/internal/activity"
	"connectix/internal/auditdb"
	"connectix/internal/config"
	"connectix/internal/logging"
	"connectix/internal/session"
)

// App bundles the shared runtime a subcommand operates in.
type App struct {
	Config   config.Config
	Log      *slog.Logger
	Activity *activity.Emitter
	Manager  *session.Manager

	audit *auditdb.Store
}

// Options captures the flags shared by every subcommand.
type Options struct {
	ConfigPath string
	LogLevel   string

	HostName  string
	Host      string
	Port      int
	Username  string
	Auth      string
	KeyPath   string
	ProxyJump string
}

// RegisterFlags attaches the shared connection flags to a flag set.
func (o *Options) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", "path to connectix.yaml")
	fs.StringVar(&o.LogLevel, "log-level", "", "log level: debug|info|warning|error (overrides config)")
	fs.StringVar(&o.HostName, "name", "", "saved host name from the config file")
	fs.StringVar(&o.Host, "host", "", "target host")
	fs.IntVar(&o.Port, "port", 22, "target port")
	fs.StringVar(&o.Username, "user", "", "username")
	fs.StringVar(&o.Auth, "auth", "password", "auth mode: password|private_key|private_key_passphrase")
	fs.StringVar(&o.KeyPath, "key", "", "private key path (key auth modes)")
	fs.StringVar(&o.ProxyJump, "jump", "", "proxy jump as [user@]host[:port]")
}

// Bootstrap loads config, builds the logger and activity pipeline, and
// returns an App ready to connect. Close must be called when done.
func Bootstrap(opt Options) (*App, error) {
	c, err := config.Load(opt.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := c.Log.Level
	if strings.TrimSpace(opt.LogLevel) != "" {
		level = opt.LogLevel
	}
	lg, _, err := logging.New(logging.Options{Level: level, JSON: c.Log.JSON, DefaultSlog: true})
	if err != nil {
		return nil, err
	}

	app := &App{Config: c, Log: lg}

	var sink activity.Logger = &activity.SlogLogger{Log: logging.Component(lg, "activity")}
	if c.Audit.Path != "" {
		store, err := auditdb.Open(context.Background(), c.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("open audit db: %w", err)
		}
		app.audit = store
		sink = store
	}
	app.Activity = &activity.Emitter{Sink: sink, Log: lg}

	app.Manager = session.NewManager(session.Options{
		Activity:    app.Activity,
		Log:         logging.Component(lg, "session"),
		IdleTimeout: c.IdleTimeout(),
		SweepEvery:  c.SweepEvery(),
	})
	app.Manager.Start()
	return app, nil
}

// Close flushes in-flight activity and releases the audit store.
func (a *App) Close() {
	a.Manager.Stop()
	a.Activity.Flush()
	if a.audit != nil {
		_ = a.audit.Close()
	}
}

// Connect resolves the target from flags or a saved host, collects the
// credential interactively, and opens a session. The returned token is
// registered with the App's manager.
func (a *App) Connect(opt Options) (string, error) {
	cfg, err := a.sessionConfig(opt)
	if err != nil {
		return "", err
	}
	return a.Manager.Connect("cli", currentUser(), cfg)
}

// sessionConfig builds the session.Config for the target, merging the
// saved host entry (when -name is given) with explicit flags.
func (a *App) sessionConfig(opt Options) (session.Config, error) {
	if opt.HostName != "" {
		h, ok := a.Config.FindHost(opt.HostName)
		if !ok {
			return session.Config{}, fmt.Errorf("unknown host name %q", opt.HostName)
		}
		if opt.Host == "" {
			opt.Host = h.Host
		}
		if h.Port != 0 {
			opt.Port = h.Port
		}
		if opt.Username == "" {
			opt.Username = h.Username
		}
		if h.Auth != "" {
			opt.Auth = h.Auth
		}
		if opt.KeyPath == "" {
			opt.KeyPath = h.KeyPath
		}
		if opt.ProxyJump == "" {
			opt.ProxyJump = h.ProxyJump
		}
	}
	if strings.TrimSpace(opt.Host) == "" {
		return session.Config{}, fmt.Errorf("target host is required (-host or -name)")
	}
	if strings.TrimSpace(opt.Username) == "" {
		return session.Config{}, fmt.Errorf("username is required (-user)")
	}

	cfg := session.Config{
		Host:             opt.Host,
		Port:             opt.Port,
		Username:         opt.Username,
		ProxyJump:        opt.ProxyJump,
		ConnectTimeout:   a.Config.ConnectTimeout(),
		StrictHostVerify: a.Config.Session.StrictHostKey,
		KnownHostsPath:   a.Config.Session.KnownHostsPath,
	}

	switch session.AuthMode(opt.Auth) {
	case session.AuthPassword:
		cfg.AuthMode = session.AuthPassword
		pw, err := promptSecret(fmt.Sprintf("%s@%s password: ", opt.Username, opt.Host))
		if err != nil {
			return session.Config{}, err
		}
		cfg.Password = pw
	case session.AuthPrivateKey:
		cfg.AuthMode = session.AuthPrivateKey
		key, err := os.ReadFile(opt.KeyPath)
		if err != nil {
			return session.Config{}, fmt.Errorf("read private key: %w", err)
		}
		cfg.PrivateKey = key
	case session.AuthKeyWithPassphrase:
		cfg.AuthMode = session.AuthKeyWithPassphrase
		key, err := os.ReadFile(opt.KeyPath)
		if err != nil {
			return session.Config{}, fmt.Errorf("read private key: %w", err)
		}
		cfg.PrivateKey = key
		pp, err := promptSecret(fmt.Sprintf("passphrase for %s: ", opt.KeyPath))
		if err != nil {
			return session.Config{}, err
		}
		cfg.Passphrase = pp
	default:
		return session.Config{}, fmt.Errorf("unknown auth mode %q", opt.Auth)
	}
	return cfg, nil
}

// promptSecret reads a secret from the terminal without echo. A
// CONNECTIX_PASSWORD variable short-circuits the prompt for scripting.
func promptSecret(prompt string) (string, error) {
	if pw, ok := os.LookupEnv("CONNECTIX_PASSWORD"); ok {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
