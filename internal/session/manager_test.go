package session

import (
	"errors"
	"io"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport satisfies Transport without any network.
type fakeTransport struct {
	mu         sync.Mutex
	closed     bool
	waitCh     chan struct{}
	channelErr error
	pingErr    error
	execCode   int
	execStdout string
	execStderr string
	execErr    error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{waitCh: make(chan struct{})}
}

func (t *fakeTransport) Exec(_ string, stdout, stderr io.Writer) (int, error) {
	if t.execErr != nil {
		return -1, t.execErr
	}
	_, _ = io.WriteString(stdout, t.execStdout)
	_, _ = io.WriteString(stderr, t.execStderr)
	return t.execCode, nil
}

func (t *fakeTransport) OpenFileChannel() (FileChannel, error) {
	if t.channelErr != nil {
		return nil, t.channelErr
	}
	return &nopChannel{}, nil
}

func (t *fakeTransport) Ping() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pingErr
}

func (t *fakeTransport) setPingErr(err error) {
	t.mu.Lock()
	t.pingErr = err
	t.mu.Unlock()
}

func (t *fakeTransport) Wait() error {
	<-t.waitCh
	return errors.New("connection lost")
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.waitCh)
	}
	return nil
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// nopChannel is a FileChannel that refuses everything; session tests
// never exercise file operations.
type nopChannel struct{}

var errNop = errors.New("not implemented")

func (nopChannel) Stat(string) (fs.FileInfo, error)      { return nil, errNop }
func (nopChannel) Lstat(string) (fs.FileInfo, error)     { return nil, errNop }
func (nopChannel) ReadDir(string) ([]fs.FileInfo, error) { return nil, errNop }
func (nopChannel) Open(string) (io.ReadCloser, error)    { return nil, errNop }
func (nopChannel) Create(string) (io.WriteCloser, error) { return nil, errNop }
func (nopChannel) Remove(string) error                   { return errNop }
func (nopChannel) RemoveDirectory(string) error          { return errNop }
func (nopChannel) Mkdir(string) error                    { return errNop }
func (nopChannel) Rename(string, string) error           { return errNop }
func (nopChannel) Chmod(string, fs.FileMode) error       { return errNop }
func (nopChannel) ReadLink(string) (string, error)       { return "", errNop }
func (nopChannel) Close() error                          { return nil }

func testManager(t *testing.T, tr Transport, dialErr error) *Manager {
	t.Helper()
	m := NewManager(Options{})
	m.dial = func(Config) (Transport, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return tr, nil
	}
	return m
}

// TestConnectRegistersSession verifies a successful negotiation yields a
// unique, immediately resolvable token.
func TestConnectRegistersSession(t *testing.T) {
	m := testManager(t, newFakeTransport(), nil)

	tok, err := m.Connect("conn-1", "user-1", Config{Host: "h", Username: "u", AuthMode: AuthPassword})
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	s, err := m.Registry().Get(tok)
	require.NoError(t, err)
	assert.Equal(t, "conn-1", s.ConnectionID)
	assert.Equal(t, "user-1", s.UserID)
	assert.True(t, s.Connected())

	tok2, err := m.Connect("conn-2", "user-1", Config{Host: "h", Username: "u", AuthMode: AuthPassword})
	require.NoError(t, err)
	assert.NotEqual(t, tok, tok2)
}

// TestConnectDialFailure propagates the transport error and registers nothing.
func TestConnectDialFailure(t *testing.T) {
	dialErr := &TransportError{Reason: ReasonUnreachable, Err: errors.New("no route to host")}
	m := testManager(t, nil, dialErr)

	_, err := m.Connect("c", "u", Config{Host: "10.0.0.5", AuthMode: AuthPassword})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ReasonUnreachable, te.Reason)
	assert.Equal(t, 0, m.Registry().Len())
}

// TestConnectChannelFailureTearsDownTransport checks the factory closes
// the transport and never registers a token when SFTP setup fails.
func TestConnectChannelFailureTearsDownTransport(t *testing.T) {
	tr := newFakeTransport()
	tr.channelErr = errors.New("subsystem request denied")
	m := testManager(t, tr, nil)

	_, err := m.Connect("c", "u", Config{Host: "h", AuthMode: AuthPassword})
	var ce *ChannelInitError
	require.ErrorAs(t, err, &ce)
	assert.True(t, tr.isClosed())
	assert.Equal(t, 0, m.Registry().Len())
}

// TestCloseIsIdempotent makes closing twice (and closing unknown tokens)
// error-free, while lookups after close fail.
func TestCloseIsIdempotent(t *testing.T) {
	m := testManager(t, newFakeTransport(), nil)
	tok, err := m.Connect("c", "u", Config{Host: "h", AuthMode: AuthPassword})
	require.NoError(t, err)

	require.NoError(t, m.Close(tok))
	require.NoError(t, m.Close(tok))
	require.NoError(t, m.Close("no-such-token"))

	_, err = m.Registry().Get(tok)
	assert.True(t, IsUnavailable(err))
}

// TestWatchEvictsOnTransportClose removes the session when the peer
// closes the connection underneath it.
func TestWatchEvictsOnTransportClose(t *testing.T) {
	tr := newFakeTransport()
	m := testManager(t, tr, nil)
	tok, err := m.Connect("c", "u", Config{Host: "h", AuthMode: AuthPassword})
	require.NoError(t, err)

	// Simulate a network-initiated close.
	_ = tr.Close()

	require.Eventually(t, func() bool {
		_, err := m.Registry().Get(tok)
		return IsUnavailable(err)
	}, 2*time.Second, 10*time.Millisecond)
}

// TestSweepEvictsIdleSessions ages a session past the threshold and
// expects the next sweep to remove it, while a fresh session survives.
func TestSweepEvictsIdleSessions(t *testing.T) {
	m := testManager(t, newFakeTransport(), nil)
	idleTok, err := m.Connect("c1", "u", Config{Host: "h", AuthMode: AuthPassword})
	require.NoError(t, err)

	// Jump the manager clock forward; the idle session's last activity
	// stays in the past while the fresh one is touched at "now".
	base := time.Now()
	m.now = func() time.Time { return base.Add(DefaultIdleTimeout + time.Minute) }

	freshTr := newFakeTransport()
	m.dial = func(Config) (Transport, error) { return freshTr, nil }
	freshTok, err := m.Connect("c2", "u", Config{Host: "h", AuthMode: AuthPassword})
	require.NoError(t, err)

	m.Sweep()

	_, err = m.Registry().Get(idleTok)
	assert.True(t, IsUnavailable(err))
	_, err = m.Registry().Get(freshTok)
	assert.NoError(t, err)
}

// TestPingHealthCheck touches the session on a healthy check and
// reports the session unavailable when the keepalive fails.
func TestPingHealthCheck(t *testing.T) {
	tr := newFakeTransport()
	m := testManager(t, tr, nil)
	tok, err := m.Connect("c", "u", Config{Host: "h", AuthMode: AuthPassword})
	require.NoError(t, err)

	s, err := m.Registry().Get(tok)
	require.NoError(t, err)
	before := s.LastActivity()

	require.NoError(t, m.Ping(tok))
	assert.False(t, s.LastActivity().Before(before))

	tr.setPingErr(errors.New("keepalive lost"))
	assert.True(t, IsUnavailable(m.Ping(tok)))

	assert.True(t, IsUnavailable(m.Ping("no-such-token")))
}

// TestUnavailableMessages distinguishes unknown tokens from known but
// disconnected sessions.
func TestUnavailableMessages(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	s := &Session{Token: "t1", connected: false}
	reg.Put(s)
	_, err = reg.Get("t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}
