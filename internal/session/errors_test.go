package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

// timeoutErr mimics the net.Error a dialer returns when the handshake
// deadline passes.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp 10.0.0.5:22: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

// TestClassifyDialError maps real dialer and handshake failures onto
// transport reasons.
func TestClassifyDialError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want TransportReason
	}{
		{"refused errno", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, ReasonRefused},
		{"host unreachable errno", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH}, ReasonUnreachable},
		{"net unreachable errno", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ENETUNREACH}, ReasonUnreachable},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "gone.example.com", IsNotFound: true}, ReasonUnreachable},
		{"net timeout", timeoutErr{}, ReasonTimeout},
		{"context deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), ReasonTimeout},
		{"auth handshake", errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"), ReasonAuthDenied},
		{"no methods remain", errors.New("ssh: handshake failed: ssh: no supported methods remain"), ReasonAuthDenied},
		{"host key mismatch", errors.New("ssh: handshake failed: knownhosts: key mismatch for 10.0.0.5:22"), ReasonHostKey},
		{"unclassified", errors.New("ssh: unexpected packet"), ReasonUnknown},
		{"nil", nil, ReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyDialError(tc.err))
		})
	}
}
