package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// TransportReason classifies why the secure transport could not be opened.
// Callers map these to user-facing remediation messages.
type TransportReason string

const (
	ReasonAuthDenied  TransportReason = "auth_denied"
	ReasonUnreachable TransportReason = "unreachable"
	ReasonRefused     TransportReason = "refused"
	ReasonTimeout     TransportReason = "timeout"
	ReasonHostKey     TransportReason = "host_key_mismatch"
	ReasonUnknown     TransportReason = "unknown"
)

// TransportError reports a failed transport negotiation with the
// underlying cause preserved.
type TransportError struct {
	Reason TransportReason
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed (%s): %v", e.Reason, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ChannelInitError means the transport came up but the file-transfer
// channel could not be opened. The transport is already torn down.
type ChannelInitError struct {
	Err error
}

func (e *ChannelInitError) Error() string {
	return fmt.Sprintf("file channel init failed: %v", e.Err)
}

func (e *ChannelInitError) Unwrap() error { return e.Err }

// UnavailableError is returned on any lookup of a token that does not
// resolve to a usable session. The message tells the caller whether the
// token was unknown or the session lost its connection; the remediation
// is the same either way: reconnect.
type UnavailableError struct {
	Token        string
	NotConnected bool
}

func (e *UnavailableError) Error() string {
	if e.NotConnected {
		return "session found but not connected; reconnect required"
	}
	return "session not found; reconnect required"
}

// IsUnavailable reports whether err is a session-availability failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// classifyDialError maps a dial failure onto a TransportReason.
func classifyDialError(err error) TransportReason {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonRefused
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return ReasonUnreachable
	}
	var de *net.DNSError
	if errors.As(err, &de) {
		return ReasonUnreachable
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"),
		strings.Contains(msg, "no supported methods remain"),
		strings.Contains(msg, "permission denied"):
		return ReasonAuthDenied
	case strings.Contains(msg, "knownhosts:"), strings.Contains(msg, "host key"):
		return ReasonHostKey
	case strings.Contains(msg, "no route to host"):
		return ReasonUnreachable
	case strings.Contains(msg, "connection refused"):
		return ReasonRefused
	case strings.Contains(msg, "i/o timeout"), strings.Contains(msg, "handshake deadline"):
		return ReasonTimeout
	default:
		return ReasonUnknown
	}
}
