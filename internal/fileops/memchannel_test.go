package fileops

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/afero"

	"connectix/internal/session"
)

// memChannel backs the FileChannel interface with an in-memory afero
// filesystem so facade tests run without a network.
type memChannel struct {
	fsys afero.Fs
}

func newMemChannel() *memChannel {
	return &memChannel{fsys: afero.NewMemMapFs()}
}

var _ session.FileChannel = (*memChannel)(nil)

func (m *memChannel) Stat(path string) (fs.FileInfo, error)  { return m.fsys.Stat(path) }
func (m *memChannel) Lstat(path string) (fs.FileInfo, error) { return m.fsys.Stat(path) }

func (m *memChannel) ReadDir(path string) ([]fs.FileInfo, error) {
	fi, err := m.fsys.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("not a directory")
	}
	return afero.ReadDir(m.fsys, path)
}

func (m *memChannel) Open(path string) (io.ReadCloser, error) {
	fi, err := m.fsys.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, errors.New("is a directory")
	}
	return m.fsys.Open(path)
}

func (m *memChannel) Create(path string) (io.WriteCloser, error) {
	return m.fsys.Create(path)
}

func (m *memChannel) Remove(path string) error {
	fi, err := m.fsys.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return errors.New("is a directory")
	}
	return m.fsys.Remove(path)
}

func (m *memChannel) RemoveDirectory(path string) error {
	fi, err := m.fsys.Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.New("not a directory")
	}
	entries, err := afero.ReadDir(m.fsys, path)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return errors.New("directory not empty")
	}
	return m.fsys.Remove(path)
}

func (m *memChannel) Mkdir(path string) error {
	if _, err := m.fsys.Stat(path); err == nil {
		return errors.New("file exists")
	}
	return m.fsys.Mkdir(path, 0o755)
}

func (m *memChannel) Rename(oldPath, newPath string) error {
	return m.fsys.Rename(oldPath, newPath)
}

func (m *memChannel) Chmod(path string, mode fs.FileMode) error {
	return m.fsys.Chmod(path, mode)
}

func (m *memChannel) ReadLink(string) (string, error) {
	return "", errors.New("no symlink support")
}

func (m *memChannel) Close() error { return nil }

// linkChannel overlays symlink behavior on memChannel: Lstat reports
// the link entry itself, Stat follows it to the target.
type linkChannel struct {
	*memChannel
	links map[string]string
}

func (c *linkChannel) Lstat(path string) (fs.FileInfo, error) {
	if _, ok := c.links[path]; ok {
		return linkInfo{name: path}, nil
	}
	return c.memChannel.Lstat(path)
}

func (c *linkChannel) Stat(path string) (fs.FileInfo, error) {
	if target, ok := c.links[path]; ok {
		return c.memChannel.Stat(target)
	}
	return c.memChannel.Stat(path)
}

func (c *linkChannel) Remove(path string) error {
	if _, ok := c.links[path]; ok {
		delete(c.links, path)
		return nil
	}
	return c.memChannel.Remove(path)
}

func (c *linkChannel) RemoveDirectory(path string) error {
	if _, ok := c.links[path]; ok {
		return errors.New("not a directory")
	}
	return c.memChannel.RemoveDirectory(path)
}

func (c *linkChannel) ReadLink(path string) (string, error) {
	if target, ok := c.links[path]; ok {
		return target, nil
	}
	return "", errors.New("not a symlink")
}

// linkInfo is the Lstat result for an overlay symlink.
type linkInfo struct {
	name string
}

func (l linkInfo) Name() string {
	if i := strings.LastIndexByte(l.name, '/'); i >= 0 {
		return l.name[i+1:]
	}
	return l.name
}
func (l linkInfo) Size() int64        { return 0 }
func (l linkInfo) Mode() fs.FileMode  { return fs.ModeSymlink | 0o777 }
func (l linkInfo) ModTime() time.Time { return time.Time{} }
func (l linkInfo) IsDir() bool        { return false }
func (l linkInfo) Sys() any           { return nil }

func (m *memChannel) mustWrite(path string, data []byte) {
	if err := afero.WriteFile(m.fsys, path, data, 0o644); err != nil {
		panic(err)
	}
}

func (m *memChannel) mustMkdirAll(path string) {
	if err := m.fsys.MkdirAll(path, 0o755); err != nil {
		panic(err)
	}
}
