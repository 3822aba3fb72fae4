// Package config tests validate config loading behavior.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadAppliesDefaults confirms defaults are applied on load.
func TestLoadAppliesDefaults(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "connectix.yaml")
	if err := os.WriteFile(p, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Log.Level != "debug" {
		t.Fatalf("expected log.level debug, got %q", c.Log.Level)
	}
	if c.ConnectTimeout() != 30*time.Second {
		t.Fatalf("expected default connect timeout 30s, got %s", c.ConnectTimeout())
	}
	if c.IdleTimeout() != 30*time.Minute {
		t.Fatalf("expected default idle timeout 30m, got %s", c.IdleTimeout())
	}
	if c.SweepEvery() != 5*time.Minute {
		t.Fatalf("expected default sweep period 5m, got %s", c.SweepEvery())
	}
}

// TestLoadEmptyPathYieldsDefaults allows running without a config file.
func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Log.Level != "info" {
		t.Fatalf("expected default log.level info, got %q", c.Log.Level)
	}
}

// TestHostDefaultsAndLookup checks saved-host defaulting and FindHost.
func TestHostDefaultsAndLookup(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "connectix.yaml")
	data := `hosts:
  - name: web
    host: web.example.com
    username: deploy
  - name: db
    host: db.internal
    port: 2222
    auth: private_key
    key_path: /home/op/.ssh/id_ed25519
`
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h, ok := c.FindHost("web")
	if !ok {
		t.Fatalf("expected host web")
	}
	if h.Port != 22 || h.Auth != "password" {
		t.Fatalf("expected defaulted port 22 and password auth, got %d %q", h.Port, h.Auth)
	}
	if _, ok := c.FindHost("missing"); ok {
		t.Fatalf("expected missing host to be absent")
	}
}

// TestValidateRejectsBadHost surfaces schema problems at load time.
func TestValidateRejectsBadHost(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "connectix.yaml")
	data := `hosts:
  - name: broken
    host: x.example.com
    auth: private_key
`
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for key auth without key_path")
	}
}

// TestStrictHostKeyRequiresKnownHosts enforces the pairing.
func TestStrictHostKeyRequiresKnownHosts(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "connectix.yaml")
	if err := os.WriteFile(p, []byte("session:\n  strict_host_key: true\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for strict_host_key without known_hosts_path")
	}
}

// TestEnvOverride lets CONNECTIX_LOG_LEVEL win over the file.
func TestEnvOverride(t *testing.T) {
	t.Setenv("CONNECTIX_LOG_LEVEL", "warn")
	tmp := t.TempDir()
	p := filepath.Join(tmp, "connectix.yaml")
	if err := os.WriteFile(p, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Log.Level != "warn" {
		t.Fatalf("expected env override warn, got %q", c.Log.Level)
	}
}
