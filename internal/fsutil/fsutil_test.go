// Package fsutil tests cover size parsing and remote path handling.
package fsutil

import (
	"io/fs"
	"testing"
)

// TestParseSizeUnits checks each df-style unit suffix normalizes to bytes.
func TestParseSizeUnits(t *testing.T) {
	cases := map[string]int64{
		"0":    0,
		"118":  118,
		"118B": 118,
		"1K":   1024,
		"1.5K": 1536,
		"2M":   2 << 20,
		"1G":   1 << 30,
		"1T":   1 << 40,
		"2.0G": 2 << 30,
	}
	for in, want := range cases {
		got, err := ParseSize(in)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

// TestParseSizeRejectsGarbage rejects empty and non-size inputs.
func TestParseSizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "-", "abc", "12Q"} {
		if _, err := ParseSize(in); err == nil {
			t.Fatalf("ParseSize(%q): expected error", in)
		}
	}
}

// TestJoinRemote always produces forward-slash paths.
func TestJoinRemote(t *testing.T) {
	if got := JoinRemote("/var/log", "syslog"); got != "/var/log/syslog" {
		t.Fatalf("got %q", got)
	}
	if got := JoinRemote("/var/log/", "syslog"); got != "/var/log/syslog" {
		t.Fatalf("got %q", got)
	}
	if got := JoinRemote("", "syslog"); got != "syslog" {
		t.Fatalf("got %q", got)
	}
	if got := JoinRemote("/", "etc"); got != "/etc" {
		t.Fatalf("got %q", got)
	}
}

// TestParseOctalMode accepts common forms and rejects out-of-range values.
func TestParseOctalMode(t *testing.T) {
	m, err := ParseOctalMode("644")
	if err != nil {
		t.Fatalf("ParseOctalMode: %v", err)
	}
	if m != fs.FileMode(0o644) {
		t.Fatalf("got %v", m)
	}
	if _, err := ParseOctalMode("999"); err == nil {
		t.Fatalf("expected error for non-octal input")
	}
	if _, err := ParseOctalMode(""); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

// TestMIMEByName falls back to octet-stream for unknown extensions.
func TestMIMEByName(t *testing.T) {
	if got := MIMEByName("notes.unknownext"); got != "application/octet-stream" {
		t.Fatalf("got %q", got)
	}
	if got := MIMEByName("archive"); got != "application/octet-stream" {
		t.Fatalf("got %q", got)
	}
}
