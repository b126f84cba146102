package layerfs

import (
	"io"
	"os"
	"time"

	"github.com/absfs/absfs"
	"github.com/spf13/afero"
)

// fileInfo adapts this module's Stat to os.FileInfo, the return type
// every compatibility adapter below must produce.
type fileInfo struct {
	name string
	st   Stat
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.st.Size }
func (fi fileInfo) Mode() os.FileMode  { return fi.st.Mode }
func (fi fileInfo) ModTime() time.Time { return fi.st.Mtime }
func (fi fileInfo) IsDir() bool        { return fi.st.IsDir() }
func (fi fileInfo) Sys() any           { return fi.st }

// modeToOpenMode translates an os.O_* flag combination (as used by
// absfs.Filer.OpenFile and afero.Fs.OpenFile) into this module's
// "rb"/"wb"/"r+b"/... mode string.
func modeToOpenMode(flag int) string {
	var body string
	switch {
	case flag&os.O_APPEND != 0:
		body = "a"
	case flag&os.O_EXCL != 0 && flag&os.O_CREATE != 0:
		body = "x"
	case flag&os.O_TRUNC != 0 || (flag&os.O_CREATE != 0 && flag&os.O_WRONLY != 0):
		body = "w"
	default:
		body = "r"
	}
	if flag&os.O_RDWR != 0 {
		body += "+"
	}
	return body + "b"
}

// compatFile adapts this module's File to the richer os.FileInfo-
// returning, Readdir-capable surface both absfs.File and afero.File
// require. Directory handles are backed by a FileSystem reference and
// a pre-loaded name listing instead of a real File, since OpenBinary
// has no notion of a directory stream.
type compatFile struct {
	fs       FileSystem
	path     string
	file     File // nil for a directory handle
	dirNames []string
	dirOff   int
}

func newCompatFile(fs FileSystem, path string, f File) *compatFile {
	return &compatFile{fs: fs, path: path, file: f}
}

func newCompatDir(fs FileSystem, path string) (*compatFile, error) {
	names, err := fs.Listdir(path)
	if err != nil {
		return nil, err
	}
	return &compatFile{fs: fs, path: path, dirNames: names}, nil
}

func (c *compatFile) Name() string { return c.path }

func (c *compatFile) Read(p []byte) (int, error) {
	if c.file == nil {
		return 0, New("read", c.path, EISDIR)
	}
	return c.file.Read(p)
}

func (c *compatFile) ReadAt(p []byte, off int64) (int, error) {
	if c.file == nil {
		return 0, New("read", c.path, EISDIR)
	}
	return c.file.ReadAt(p, off)
}

func (c *compatFile) Write(p []byte) (int, error) {
	if c.file == nil {
		return 0, New("write", c.path, EISDIR)
	}
	return c.file.Write(p)
}

func (c *compatFile) WriteAt(p []byte, off int64) (int, error) {
	if c.file == nil {
		return 0, New("write", c.path, EISDIR)
	}
	return c.file.WriteAt(p, off)
}

func (c *compatFile) WriteString(s string) (int, error) { return c.Write([]byte(s)) }

func (c *compatFile) Seek(offset int64, whence int) (int64, error) {
	if c.file == nil {
		return 0, New("seek", c.path, EISDIR)
	}
	return c.file.Seek(offset, whence)
}

func (c *compatFile) Truncate(size int64) error {
	if c.file == nil {
		return New("truncate", c.path, EISDIR)
	}
	return c.file.Truncate(size)
}

func (c *compatFile) Sync() error { return nil }

func (c *compatFile) Close() error {
	if c.file == nil {
		return nil
	}
	return c.file.Close()
}

func (c *compatFile) Stat() (os.FileInfo, error) {
	st, err := c.fs.Lstat(c.path)
	if err != nil {
		return nil, err
	}
	return fileInfo{name: baseName(c.path), st: st}, nil
}

func (c *compatFile) Readdir(n int) ([]os.FileInfo, error) {
	names, err := c.Readdirnames(n)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(names))
	for _, name := range names {
		st, err := c.fs.Lstat(JoinPath(c.path, name))
		if err != nil {
			continue
		}
		infos = append(infos, fileInfo{name: name, st: st})
	}
	return infos, nil
}

func (c *compatFile) Readdirnames(n int) ([]string, error) {
	if c.dirOff >= len(c.dirNames) {
		if n > 0 {
			return nil, io.EOF
		}
		return nil, nil
	}
	end := len(c.dirNames)
	if n > 0 && c.dirOff+n < end {
		end = c.dirOff + n
	}
	out := c.dirNames[c.dirOff:end]
	c.dirOff = end
	return out, nil
}

var (
	_ absfs.File = (*compatFile)(nil)
	_ afero.File = (*compatFile)(nil)
)

// filerAdapter implements absfs.Filer over a FileSystem, letting any
// layer stack (MemoryFS, UnionFS, MountFS, ...) be presented to code
// written against the absfs ecosystem via absfs.ExtendFiler.
type filerAdapter struct {
	fs FileSystem
}

// AbsFiler wraps fs as an absfs.FileSystem. Rename only supports
// regular files and symlinks, not directories, since this module's
// FileSystem contract has no native rename/move primitive to build a
// recursive one on top of.
func AbsFiler(fs FileSystem) absfs.FileSystem {
	return absfs.ExtendFiler(&filerAdapter{fs: fs})
}

func (a *filerAdapter) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	name = CleanPath(name)
	if st, err := a.fs.Stat(name); err == nil && st.IsDir() {
		return newCompatDir(a.fs, name)
	}
	f, err := a.fs.OpenBinary(name, modeToOpenMode(flag))
	if err != nil {
		return nil, err
	}
	return newCompatFile(a.fs, name, f), nil
}

func (a *filerAdapter) Mkdir(name string, perm os.FileMode) error {
	return a.fs.Mkdir(CleanPath(name), perm)
}

func (a *filerAdapter) Remove(name string) error {
	name = CleanPath(name)
	st, err := a.fs.Lstat(name)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return a.fs.Rmdir(name)
	}
	return a.fs.Unlink(name)
}

func (a *filerAdapter) Rename(oldpath, newpath string) error {
	return renameViaCopy(a.fs, oldpath, newpath)
}

func (a *filerAdapter) Stat(name string) (os.FileInfo, error) {
	name = CleanPath(name)
	st, err := a.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	return fileInfo{name: baseName(name), st: st}, nil
}

func (a *filerAdapter) Chmod(name string, mode os.FileMode) error {
	return a.fs.Chmod(CleanPath(name), mode)
}

func (a *filerAdapter) Chtimes(name string, atime, mtime time.Time) error {
	ct, ok := a.fs.(chtimer)
	if !ok {
		return New("chtimes", name, EINVAL)
	}
	return ct.Chtimes(CleanPath(name), atime, mtime)
}

func (a *filerAdapter) Chown(name string, uid, gid int) error {
	return a.fs.Chown(CleanPath(name), uid, gid)
}

func (a *filerAdapter) Separator() uint8     { return '/' }
func (a *filerAdapter) ListSeparator() uint8 { return ':' }

func (a *filerAdapter) Truncate(name string, size int64) error {
	name = CleanPath(name)
	f, err := a.fs.OpenBinary(name, "r+b")
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(size)
}

var _ absfs.Filer = (*filerAdapter)(nil)

// renameViaCopy implements move-by-copy-then-delete for a regular file
// or symlink; directories are rejected with EINVAL.
func renameViaCopy(fs FileSystem, oldpath, newpath string) error {
	oldpath, newpath = CleanPath(oldpath), CleanPath(newpath)
	st, err := fs.Lstat(oldpath)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return New("rename", oldpath, EINVAL)
	}
	if st.IsSymlink() {
		target, err := fs.Readlink(oldpath)
		if err != nil {
			return err
		}
		if err := fs.Symlink(newpath, target); err != nil {
			return err
		}
		return fs.Unlink(oldpath)
	}

	src, err := fs.OpenBinary(oldpath, "rb")
	if err != nil {
		return err
	}
	dst, err := fs.OpenBinary(newpath, "wb")
	if err != nil {
		src.Close()
		return err
	}
	_, copyErr := io.Copy(dst, src)
	src.Close()
	dst.Close()
	if copyErr != nil {
		return copyErr
	}
	return fs.Unlink(oldpath)
}

// aferoAdapter implements afero.Fs over a FileSystem.
type aferoAdapter struct {
	fs FileSystem
}

// AferoFS wraps fs as an afero.Fs, so it can be handed to any code
// written against the afero ecosystem.
func AferoFS(fs FileSystem) afero.Fs {
	return &aferoAdapter{fs: fs}
}

func (a *aferoAdapter) Create(name string) (afero.File, error) {
	return a.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, defaultFilePerm)
}

func (a *aferoAdapter) Mkdir(name string, perm os.FileMode) error {
	return a.fs.Mkdir(CleanPath(name), perm)
}

func (a *aferoAdapter) MkdirAll(path string, perm os.FileMode) error {
	path = CleanPath(path)
	for _, anc := range Ancestors(path) {
		if anc == Root {
			continue
		}
		if _, err := a.fs.Stat(anc); err == nil {
			continue
		}
		if err := a.fs.Mkdir(anc, perm); err != nil && !IsKind(err, EEXIST) {
			return err
		}
	}
	return nil
}

func (a *aferoAdapter) Open(name string) (afero.File, error) {
	return a.OpenFile(name, os.O_RDONLY, 0)
}

func (a *aferoAdapter) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	name = CleanPath(name)
	if st, err := a.fs.Stat(name); err == nil && st.IsDir() {
		return newCompatDir(a.fs, name)
	}
	f, err := a.fs.OpenBinary(name, modeToOpenMode(flag))
	if err != nil {
		return nil, err
	}
	return newCompatFile(a.fs, name, f), nil
}

func (a *aferoAdapter) Remove(name string) error {
	name = CleanPath(name)
	st, err := a.fs.Lstat(name)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return a.fs.Rmdir(name)
	}
	return a.fs.Unlink(name)
}

func (a *aferoAdapter) RemoveAll(path string) error {
	path = CleanPath(path)
	st, err := a.fs.Lstat(path)
	if err != nil {
		if IsNotExist(err) {
			return nil
		}
		return err
	}
	if st.IsDir() {
		names, err := a.fs.Listdir(path)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := a.RemoveAll(JoinPath(path, name)); err != nil {
				return err
			}
		}
		return a.fs.Rmdir(path)
	}
	return a.fs.Unlink(path)
}

func (a *aferoAdapter) Rename(oldname, newname string) error {
	return renameViaCopy(a.fs, oldname, newname)
}

func (a *aferoAdapter) Stat(name string) (os.FileInfo, error) {
	name = CleanPath(name)
	st, err := a.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	return fileInfo{name: baseName(name), st: st}, nil
}

func (a *aferoAdapter) Name() string { return "layerfs" }

func (a *aferoAdapter) Chmod(name string, mode os.FileMode) error {
	return a.fs.Chmod(CleanPath(name), mode)
}

func (a *aferoAdapter) Chown(name string, uid, gid int) error {
	return a.fs.Chown(CleanPath(name), uid, gid)
}

func (a *aferoAdapter) Chtimes(name string, atime, mtime time.Time) error {
	ct, ok := a.fs.(chtimer)
	if !ok {
		return New("chtimes", name, EINVAL)
	}
	return ct.Chtimes(CleanPath(name), atime, mtime)
}

var _ afero.Fs = (*aferoAdapter)(nil)
