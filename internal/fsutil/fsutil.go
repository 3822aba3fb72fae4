// Package fsutil provides helpers for remote paths, size units,
// permission rendering, and MIME type inference.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"mime"
	"path"
	"strconv"
	"strings"
)

var ErrBadSize = errors.New("unparseable size")

// JoinRemote joins remote path segments using forward slashes.
// Remote paths are always Unix-style regardless of the local OS.
func JoinRemote(base, name string) string {
	if base == "" {
		return name
	}
	if name == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + name
}

// CleanRemote normalizes a remote path: collapses separators and dots,
// keeps it absolute when it was absolute. Empty input maps to ".".
func CleanRemote(p string) string {
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

// BaseRemote returns the last element of a remote path.
func BaseRemote(p string) string {
	return path.Base(CleanRemote(p))
}

// unit multipliers for single-letter suffixes as printed by df/du -h.
var unitBytes = map[byte]float64{
	'B': 1,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
}

// ParseSize converts a human-readable size like "1.5G", "512K", "0" or
// "118B" into a byte count. A bare number is taken as bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "-" {
		return 0, ErrBadSize
	}
	// Tolerate "Gi"/"GB" style suffixes by keeping the leading letter.
	mult := float64(1)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			continue
		}
		m, ok := unitBytes[c]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrBadSize, s)
		}
		mult = m
		s = s[:i]
		break
	}
	if s == "" {
		return 0, fmt.Errorf("%w: missing digits", ErrBadSize)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadSize, err)
	}
	return int64(math.Round(f * mult)), nil
}

// FormatSize renders a byte count using the same single-letter units.
func FormatSize(n int64) string {
	switch {
	case n >= 1<<40:
		return trimZero(float64(n)/(1<<40)) + "T"
	case n >= 1<<30:
		return trimZero(float64(n)/(1<<30)) + "G"
	case n >= 1<<20:
		return trimZero(float64(n)/(1<<20)) + "M"
	case n >= 1<<10:
		return trimZero(float64(n)/(1<<10)) + "K"
	default:
		return strconv.FormatInt(n, 10) + "B"
	}
}

func trimZero(f float64) string {
	s := strconv.FormatFloat(f, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// PermString renders permission bits as an ls-style string, e.g.
// "drwxr-xr-x" for a 0755 directory.
func PermString(mode fs.FileMode) string {
	return mode.String()
}

// ParseOctalMode parses an octal permission string such as "644" or "0755".
func ParseOctalMode(s string) (fs.FileMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty mode")
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q: %w", s, err)
	}
	if v > 0o7777 {
		return 0, fmt.Errorf("mode %q out of range", s)
	}
	return fs.FileMode(v), nil
}

// MIMEByName guesses a MIME type from a file name's extension.
// Unknown extensions fall back to application/octet-stream.
func MIMEByName(name string) string {
	ext := path.Ext(name)
	if ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return "application/octet-stream"
}
