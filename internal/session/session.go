// Package session manages live SSH sessions: an in-memory registry of
// token-addressed session records, the connect state machine (password,
// private-key, and passphrase-protected-key auth, optional proxy jump,
// strict host verification), and the idle-session reaper.
//
// Session state is deliberately volatile. Credentials and transport
// handles live only inside this process; losing the process loses every
// session.
package session

import (
	"io"
	"io/fs"
	"net"
	"strconv"
	"sync"
	"time"
)

// AuthMode selects how the transport authenticates. The caller's declared
// mode is authoritative; it is never inferred from credential shape.
type AuthMode string

const (
	AuthPassword          AuthMode = "password"
	AuthPrivateKey        AuthMode = "private_key"
	AuthKeyWithPassphrase AuthMode = "private_key_passphrase"
)

// DefaultConnectTimeout bounds transport negotiation when the config
// does not supply its own timeout.
const DefaultConnectTimeout = 30 * time.Second

// Config describes one connection target. Credentials arrive already
// decrypted; Config is immutable once a session is created from it.
type Config struct {
	Host     string
	Port     int
	Username string

	AuthMode   AuthMode
	Password   string
	PrivateKey []byte
	Passphrase string

	// ProxyJump is an optional bastion in [user@]host[:port] form.
	ProxyJump string

	ConnectTimeout   time.Duration
	StrictHostVerify bool
	// KnownHostsPath backs strict host verification.
	KnownHostsPath string
}

// Addr returns the host:port dial target.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return joinHostPort(c.Host, port)
}

// Transport is the live secure connection underneath a session.
// *SSHTransport is the production implementation.
type Transport interface {
	// Exec runs one command on a fresh execution channel, streaming
	// stdout and stderr separately, and returns the exit code.
	Exec(command string, stdout, stderr io.Writer) (int, error)
	// OpenFileChannel starts the file-transfer subprotocol.
	OpenFileChannel() (FileChannel, error)
	// Ping probes connection health without opening a channel.
	Ping() error
	// Wait blocks until the transport closes, peer- or network-initiated.
	Wait() error
	Close() error
}

// FileChannel is the file-transfer subprotocol surface the file
// operations facade and the search engine drive. *sftp.Client is adapted
// onto it by sftpChannel.
type FileChannel interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	ReadDir(path string) ([]fs.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	Remove(path string) error
	RemoveDirectory(path string) error
	Mkdir(path string) error
	Rename(oldPath, newPath string) error
	Chmod(path string, mode fs.FileMode) error
	ReadLink(path string) (string, error)
	Close() error
}

// Session is one authenticated live connection. Exactly one Session
// exists per token; tokens are never reused.
type Session struct {
	Token        string
	ConnectionID string
	UserID       string
	Transport    Transport
	// Channel is nil when the file subprotocol is unavailable; such a
	// session can still execute commands.
	Channel FileChannel
	Config  Config

	mu           sync.Mutex
	connected    bool
	lastActivity time.Time
}

// NewSession assembles a connected session record. The manager is the
// normal caller; tests wire fake transports through here.
func NewSession(token, connectionID, userID string, tr Transport, ch FileChannel, cfg Config) *Session {
	return &Session{
		Token:        token,
		ConnectionID: connectionID,
		UserID:       userID,
		Transport:    tr,
		Channel:      ch,
		Config:       cfg,
		connected:    true,
		lastActivity: time.Now(),
	}
}

// Connected reports whether the transport is still considered live.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Touch records activity now. Every successful operation calls this
// before returning, so the reaper never evicts a session that just
// served a request.
func (s *Session) Touch() {
	s.touchAt(time.Now())
}

func (s *Session) touchAt(t time.Time) {
	s.mu.Lock()
	s.lastActivity = t
	s.mu.Unlock()
}

// LastActivity returns the most recent activity timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) markDisconnected() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

// closeHandles tears down the channel then the transport, ignoring
// errors; used on eviction and explicit close.
func (s *Session) closeHandles() {
	if s.Channel != nil {
		_ = s.Channel.Close()
	}
	if s.Transport != nil {
		_ = s.Transport.Close()
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
