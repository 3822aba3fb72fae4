// Package fileops is the stateless file-operations facade. Every
// operation resolves the session first, drives the file-transfer
// channel, touches last-activity on success, and emits an audit event.
package fileops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"

	"connectix/internal/activity"
	"connectix/internal/fsutil"
	"connectix/internal/session"
)

// Kind classifies a directory entry.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
	KindSymlink   Kind = "symlink"
	KindUnknown   Kind = "unknown"
)

// FileInfo is the transient listing/stat record returned to callers.
type FileInfo struct {
	Name        string
	Path        string
	Kind        Kind
	Size        int64
	Mode        fs.FileMode
	Permissions string
	ModTime     time.Time
	Owner       string
	Group       string
	MIME        string
	LinkTarget  string
}

// ErrDestinationExists is returned by Copy/Move when overwrite is false
// and the destination is already present.
var ErrDestinationExists = errors.New("destination already exists")

// ErrNoFileChannel marks a session that can run commands but has no
// file-transfer channel.
var ErrNoFileChannel = errors.New("session has no file-transfer channel")

// ErrUnsupported marks operations this facade deliberately does not
// implement, e.g. multi-file archive download.
var ErrUnsupported = errors.New("operation not supported")

// OpError wraps a failed channel call with the operation name and path.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Facade performs file operations against registered sessions.
// Local is the filesystem downloads land on; nil means the host OS.
type Facade struct {
	Registry *session.Registry
	Activity *activity.Emitter
	Log      *slog.Logger
	Local    afero.Fs
}

// resolve fails fast when the token is unusable or the session carries
// no file channel.
func (f *Facade) resolve(token string) (*session.Session, session.FileChannel, error) {
	s, err := f.Registry.Get(token)
	if err != nil {
		return nil, nil, err
	}
	if s.Channel == nil {
		return nil, nil, ErrNoFileChannel
	}
	return s, s.Channel, nil
}

// List returns the entries of a directory, directories sorted before
// files, each group alphabetical. Symlink targets are resolved
// best-effort.
func (f *Facade) List(token, path string) ([]FileInfo, error) {
	s, ch, err := f.resolve(token)
	if err != nil {
		return nil, err
	}
	path = fsutil.CleanRemote(path)

	entries, err := ch.ReadDir(path)
	if err != nil {
		return nil, &OpError{Op: "list", Path: path, Err: err}
	}

	out := make([]FileInfo, 0, len(entries))
	for _, fi := range entries {
		info := infoFrom(fsutil.JoinRemote(path, fi.Name()), fi)
		if info.Kind == KindSymlink {
			if target, err := ch.ReadLink(info.Path); err == nil {
				info.LinkTarget = target
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].Kind == KindDirectory, out[j].Kind == KindDirectory
		if di != dj {
			return di
		}
		return out[i].Name < out[j].Name
	})

	s.Touch()
	f.emit(s, activity.KindDirList, path, 0)
	return out, nil
}

// Stat returns metadata for one path.
func (f *Facade) Stat(token, path string) (FileInfo, error) {
	s, ch, err := f.resolve(token)
	if err != nil {
		return FileInfo{}, err
	}
	path = fsutil.CleanRemote(path)

	fi, err := ch.Stat(path)
	if err != nil {
		return FileInfo{}, &OpError{Op: "stat", Path: path, Err: err}
	}
	s.Touch()
	return infoFrom(path, fi), nil
}

// ReadFile returns the raw bytes of a remote file.
func (f *Facade) ReadFile(token, path string) ([]byte, error) {
	s, ch, err := f.resolve(token)
	if err != nil {
		return nil, err
	}
	path = fsutil.CleanRemote(path)

	data, err := readAll(ch, path)
	if err != nil {
		return nil, &OpError{Op: "read", Path: path, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindFileRead, path, int64(len(data)))
	return data, nil
}

// ReadText returns file contents as a UTF-8 string.
func (f *Facade) ReadText(token, path string) (string, error) {
	b, err := f.ReadFile(token, path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteFile replaces the remote file with data.
func (f *Facade) WriteFile(token, path string, data []byte) error {
	s, ch, err := f.resolve(token)
	if err != nil {
		return err
	}
	path = fsutil.CleanRemote(path)

	if err := writeAll(ch, path, data); err != nil {
		return &OpError{Op: "write", Path: path, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindFileWrite, path, int64(len(data)))
	return nil
}

// WriteText writes a UTF-8 string to the remote file.
func (f *Facade) WriteText(token, path, text string) error {
	return f.WriteFile(token, path, []byte(text))
}

// WriteFrom streams r into the remote file and returns the byte count.
func (f *Facade) WriteFrom(token, path string, r io.Reader) (int64, error) {
	s, ch, err := f.resolve(token)
	if err != nil {
		return 0, err
	}
	path = fsutil.CleanRemote(path)

	w, err := ch.Create(path)
	if err != nil {
		return 0, &OpError{Op: "write", Path: path, Err: err}
	}
	n, err := io.Copy(w, r)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, &OpError{Op: "write", Path: path, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindFileWrite, path, n)
	return n, nil
}

// Delete inspects the target first and calls the matching removal
// primitive. Lstat keeps the dispatch on the entry itself, so a symlink
// to a directory is removed as a link, never as a directory. Non-empty
// directories are not handled here; the channel's own removal semantics
// apply.
func (f *Facade) Delete(token, path string) error {
	s, ch, err := f.resolve(token)
	if err != nil {
		return err
	}
	path = fsutil.CleanRemote(path)

	fi, err := ch.Lstat(path)
	if err != nil {
		return &OpError{Op: "delete", Path: path, Err: err}
	}
	if fi.IsDir() {
		if err := ch.RemoveDirectory(path); err != nil {
			return &OpError{Op: "delete", Path: path, Err: err}
		}
		s.Touch()
		f.emit(s, activity.KindDirDelete, path, 0)
		return nil
	}
	if err := ch.Remove(path); err != nil {
		return &OpError{Op: "delete", Path: path, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindFileDelete, path, 0)
	return nil
}

// DeleteRecursive removes a directory tree bottom-up. Plain files and
// symlinks degrade to a single remove; the tree behind a symlink is
// never followed.
func (f *Facade) DeleteRecursive(token, path string) error {
	s, ch, err := f.resolve(token)
	if err != nil {
		return err
	}
	path = fsutil.CleanRemote(path)

	fi, err := ch.Lstat(path)
	if err != nil {
		return &OpError{Op: "delete", Path: path, Err: err}
	}
	if !fi.IsDir() {
		if err := ch.Remove(path); err != nil {
			return &OpError{Op: "delete", Path: path, Err: err}
		}
		s.Touch()
		f.emit(s, activity.KindFileDelete, path, 0)
		return nil
	}
	if err := removeTree(ch, path); err != nil {
		return &OpError{Op: "delete", Path: path, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindDirDelete, path, 0)
	return nil
}

// Mkdir creates one directory. Creating an existing directory fails
// cleanly without disturbing the session.
func (f *Facade) Mkdir(token, path string) error {
	s, ch, err := f.resolve(token)
	if err != nil {
		return err
	}
	path = fsutil.CleanRemote(path)

	if err := ch.Mkdir(path); err != nil {
		return &OpError{Op: "mkdir", Path: path, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindDirCreate, path, 0)
	return nil
}

// Rename moves a path within the same filesystem.
func (f *Facade) Rename(token, oldPath, newPath string) error {
	s, ch, err := f.resolve(token)
	if err != nil {
		return err
	}
	oldPath = fsutil.CleanRemote(oldPath)
	newPath = fsutil.CleanRemote(newPath)

	if err := ch.Rename(oldPath, newPath); err != nil {
		return &OpError{Op: "rename", Path: oldPath, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindFileRename, oldPath+" -> "+newPath, 0)
	return nil
}

// Copy duplicates src to dst. The whole file is held in memory between
// the read and the write; this is intentional simplicity, not a
// streaming transfer. With overwrite false an existing destination fails
// with ErrDestinationExists.
func (f *Facade) Copy(token, src, dst string, overwrite bool) error {
	s, ch, err := f.resolve(token)
	if err != nil {
		return err
	}
	src = fsutil.CleanRemote(src)
	dst = fsutil.CleanRemote(dst)

	if !overwrite && destinationExists(ch, dst) {
		return ErrDestinationExists
	}
	data, err := readAll(ch, src)
	if err != nil {
		return &OpError{Op: "copy", Path: src, Err: err}
	}
	if err := writeAll(ch, dst, data); err != nil {
		return &OpError{Op: "copy", Path: dst, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindFileCopy, src+" -> "+dst, int64(len(data)))
	return nil
}

// Move is copy-then-delete-source and therefore not atomic: a crash
// between the steps leaves both copies present.
func (f *Facade) Move(token, src, dst string, overwrite bool) error {
	s, ch, err := f.resolve(token)
	if err != nil {
		return err
	}
	src = fsutil.CleanRemote(src)
	dst = fsutil.CleanRemote(dst)

	if !overwrite && destinationExists(ch, dst) {
		return ErrDestinationExists
	}
	data, err := readAll(ch, src)
	if err != nil {
		return &OpError{Op: "move", Path: src, Err: err}
	}
	if err := writeAll(ch, dst, data); err != nil {
		return &OpError{Op: "move", Path: dst, Err: err}
	}
	if err := ch.Remove(src); err != nil {
		return &OpError{Op: "move", Path: src, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindFileMove, src+" -> "+dst, int64(len(data)))
	return nil
}

// Chmod passes octal mode bits straight through to the channel.
func (f *Facade) Chmod(token, path string, mode fs.FileMode) error {
	s, ch, err := f.resolve(token)
	if err != nil {
		return err
	}
	path = fsutil.CleanRemote(path)

	if err := ch.Chmod(path, mode); err != nil {
		return &OpError{Op: "chmod", Path: path, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindFileChmod, fmt.Sprintf("%s mode=%o", path, mode), 0)
	return nil
}

// Download copies a remote file onto the local filesystem and returns
// the byte count. Directories are not archived; that is unsupported.
func (f *Facade) Download(token, remotePath, localPath string) (int64, error) {
	s, ch, err := f.resolve(token)
	if err != nil {
		return 0, err
	}
	remotePath = fsutil.CleanRemote(remotePath)

	fi, err := ch.Stat(remotePath)
	if err != nil {
		return 0, &OpError{Op: "download", Path: remotePath, Err: err}
	}
	if fi.IsDir() {
		return 0, fmt.Errorf("%w: directory download", ErrUnsupported)
	}

	src, err := ch.Open(remotePath)
	if err != nil {
		return 0, &OpError{Op: "download", Path: remotePath, Err: err}
	}
	defer src.Close()

	local := f.Local
	if local == nil {
		local = afero.NewOsFs()
	}
	dst, err := local.Create(localPath)
	if err != nil {
		return 0, &OpError{Op: "download", Path: localPath, Err: err}
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, &OpError{Op: "download", Path: remotePath, Err: err}
	}
	s.Touch()
	f.emit(s, activity.KindFileDownload, remotePath, n)
	return n, nil
}

// destinationExists treats any stat failure as "does not exist"; the
// stat error reason is not otherwise distinguished here.
func destinationExists(ch session.FileChannel, path string) bool {
	_, err := ch.Stat(path)
	return err == nil
}

func readAll(ch session.FileChannel, path string) ([]byte, error) {
	r, err := ch.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func writeAll(ch session.FileChannel, path string, data []byte) error {
	w, err := ch.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func removeTree(ch session.FileChannel, dir string) error {
	entries, err := ch.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, fi := range entries {
		full := fsutil.JoinRemote(dir, fi.Name())
		if fi.IsDir() {
			if err := removeTree(ch, full); err != nil {
				return err
			}
			continue
		}
		if err := ch.Remove(full); err != nil {
			return err
		}
	}
	return ch.RemoveDirectory(dir)
}

// infoFrom builds the caller-facing record from channel metadata.
// Owner and group come through as numeric ids when the subprotocol
// reports them.
func infoFrom(path string, fi fs.FileInfo) FileInfo {
	info := FileInfo{
		Name:        fi.Name(),
		Path:        path,
		Kind:        kindOf(fi.Mode()),
		Size:        fi.Size(),
		Mode:        fi.Mode(),
		Permissions: fsutil.PermString(fi.Mode()),
		ModTime:     fi.ModTime(),
	}
	if info.Kind == KindFile {
		info.MIME = fsutil.MIMEByName(fi.Name())
	}
	if st, ok := fi.Sys().(*sftp.FileStat); ok && st != nil {
		info.Owner = strconv.FormatUint(uint64(st.UID), 10)
		info.Group = strconv.FormatUint(uint64(st.GID), 10)
	}
	return info
}

func kindOf(mode fs.FileMode) Kind {
	switch {
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	case mode.IsDir():
		return KindDirectory
	default:
		return KindFile
	}
}

func (f *Facade) emit(s *session.Session, kind activity.Kind, detail string, bytes int64) {
	if f.Activity == nil {
		return
	}
	f.Activity.Emit(activity.Event{
		ConnectionID: s.ConnectionID,
		UserID:       s.UserID,
		Kind:         kind,
		Detail:       detail,
		Bytes:        bytes,
	})
}
