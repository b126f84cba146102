package layerfs

import (
	"bufio"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
)

// OSFS adapts the host operating system's real filesystem, rooted at
// root, to the FileSystem contract, backed by afero's OS filesystem so
// that OSFS and MemoryFS can both sit underneath the same composition
// layers (WhiteoutFS, UnionFS, MountFS) without those layers knowing
// which kind of storage they're stacking.
type OSFS struct {
	fs   afero.Fs
	root string
}

// NewOSFS roots an OSFS at root on the host filesystem. root must
// already exist.
func NewOSFS(root string) *OSFS {
	return &OSFS{fs: afero.NewOsFs(), root: root}
}

func (o *OSFS) native(path string) string {
	return o.root + CleanPath(path)
}

// Access grants each bit of mask if the owner, group or other class of
// path's permission bits allows it; it does not consult the owning
// uid/gid the way MemoryFS does, since the host
// kernel's own permission model already gates every real open/read/
// write this FileSystem delegates to.
func (o *OSFS) Access(path string, mask AccessMask) bool {
	info, err := o.fs.Stat(o.native(path))
	if err != nil {
		return false
	}
	if mask == FOK {
		return true
	}
	perm := info.Mode().Perm()
	if mask.Has(ROK) && perm&0o444 == 0 {
		return false
	}
	if mask.Has(WOK) && perm&0o222 == 0 {
		return false
	}
	if mask.Has(XOK) && perm&0o111 == 0 {
		return false
	}
	return true
}

func (o *OSFS) Stat(path string) (Stat, error) {
	info, err := o.fs.Stat(o.native(path))
	if err != nil {
		return Stat{}, translateOSErr("stat", path, err)
	}
	return statFromOSInfo(info), nil
}

func (o *OSFS) Lstat(path string) (Stat, error) {
	lfs, ok := o.fs.(afero.Lstater)
	if !ok {
		return o.Stat(path)
	}
	info, _, err := lfs.LstatIfPossible(o.native(path))
	if err != nil {
		return Stat{}, translateOSErr("lstat", path, err)
	}
	return statFromOSInfo(info), nil
}

func (o *OSFS) Listdir(path string) ([]string, error) {
	f, err := o.fs.Open(o.native(path))
	if err != nil {
		return nil, translateOSErr("listdir", path, err)
	}
	defer f.Close()
	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, translateOSErr("listdir", path, err)
	}
	return names, nil
}

func (o *OSFS) Readlink(path string) (string, error) {
	linker, ok := o.fs.(afero.LinkReader)
	if !ok {
		return "", New("readlink", path, EINVAL)
	}
	target, err := linker.ReadlinkIfPossible(o.native(path))
	if err != nil {
		return "", translateOSErr("readlink", path, err)
	}
	return target, nil
}

func (o *OSFS) OpenBinary(path string, mode string) (File, error) {
	flag, err := osOpenFlag(mode)
	if err != nil {
		return nil, err
	}
	f, oerr := o.fs.OpenFile(o.native(path), flag, defaultFilePerm)
	if oerr != nil {
		return nil, translateOSErr("open", path, oerr)
	}
	return &osFile{f: f}, nil
}

func (o *OSFS) OpenText(path string, mode string, encoding string) (TextFile, error) {
	if encoding != "" && !strings.EqualFold(encoding, "utf-8") {
		return nil, New("open", path, EINVAL)
	}
	f, err := o.OpenBinary(path, mode)
	if err != nil {
		return nil, err
	}
	return newOSTextFile(f.(*osFile)), nil
}

func (o *OSFS) Chmod(path string, mode os.FileMode) error {
	return translateOSErr("chmod", path, o.fs.Chmod(o.native(path), mode))
}

func (o *OSFS) Chown(path string, uid, gid int) error {
	return translateOSErr("chown", path, o.fs.Chown(o.native(path), uid, gid))
}

// Chtimes sets the access and modification time of path. It lets OSFS
// serve as a UnionFS copy-up target with full timestamp fidelity (see
// unionfs_copyup.go's chtimer interface).
func (o *OSFS) Chtimes(path string, atime, mtime time.Time) error {
	return translateOSErr("chtimes", path, o.fs.Chtimes(o.native(path), atime, mtime))
}

func (o *OSFS) Mkdir(path string, perm os.FileMode) error {
	return translateOSErr("mkdir", path, o.fs.Mkdir(o.native(path), perm))
}

func (o *OSFS) Symlink(link, target string) error {
	linker, ok := o.fs.(afero.Linker)
	if !ok {
		return New("symlink", link, EINVAL)
	}
	return translateOSErr("symlink", link, linker.SymlinkIfPossible(target, o.native(link)))
}

func (o *OSFS) Rmdir(path string) error {
	return translateOSErr("rmdir", path, o.fs.Remove(o.native(path)))
}

func (o *OSFS) Unlink(path string) error {
	return translateOSErr("unlink", path, o.fs.Remove(o.native(path)))
}

// HasFeature always reports false: OSFS carries no whiteout or
// read-only wrapping of its own. Compose it with WhiteoutFS or
// ReadOnlyFS, the same as MemoryFS.
func (o *OSFS) HasFeature(f Feature) bool { return false }

var _ FileSystem = (*OSFS)(nil)

func statFromOSInfo(info os.FileInfo) Stat {
	mode := info.Mode()
	st := Stat{
		Mode:  mode,
		Size:  info.Size(),
		Nlink: 1,
		Mtime: info.ModTime(),
	}
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		st.Uid = int(sys.Uid)
		st.Gid = int(sys.Gid)
		st.Nlink = uint32(sys.Nlink)
	}
	return st
}

// osOpenFlag translates a "rb"/"wb"/"ab"/"r+b"/"xb"/... mode string
// into the os.O_* flag combination afero.OpenFile expects.
func osOpenFlag(mode string) (int, error) {
	body := strings.TrimRight(mode, "bt")
	plus := strings.Contains(body, "+")
	disposition := strings.TrimSuffix(body, "+")

	switch disposition {
	case "r":
		if plus {
			return os.O_RDWR, nil
		}
		return os.O_RDONLY, nil
	case "w":
		if plus {
			return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
		}
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "a":
		if plus {
			return os.O_RDWR | os.O_CREATE | os.O_APPEND, nil
		}
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "x":
		if plus {
			return os.O_RDWR | os.O_CREATE | os.O_EXCL, nil
		}
		return os.O_WRONLY | os.O_CREATE | os.O_EXCL, nil
	default:
		return 0, New("open", mode, EINVAL)
	}
}

// translateOSErr maps an afero/os error into this module's *Error
// taxonomy, preserving nil.
func translateOSErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case os.IsNotExist(err):
		return New(op, path, ENOENT)
	case os.IsExist(err):
		return New(op, path, EEXIST)
	case os.IsPermission(err):
		return New(op, path, EACCES)
	}
	if errno, ok := underlyingErrno(err); ok {
		switch errno {
		case syscall.ENOTDIR:
			return New(op, path, ENOTDIR)
		case syscall.EISDIR:
			return New(op, path, EISDIR)
		case syscall.ENOTEMPTY:
			return New(op, path, ENOTEMPTY)
		case syscall.EBUSY:
			return New(op, path, EBUSY)
		case syscall.EROFS:
			return New(op, path, EROFS)
		}
	}
	return err
}

func underlyingErrno(err error) (syscall.Errno, bool) {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if errno, ok := err.(syscall.Errno); ok {
			return errno, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return 0, false
		}
		err = u.Unwrap()
	}
	return 0, false
}

// osFile adapts afero.File to this module's File interface; the two
// are already structurally identical except for Stat's return type.
type osFile struct {
	f afero.File
}

func (o *osFile) Read(p []byte) (int, error)                { return o.f.Read(p) }
func (o *osFile) Write(p []byte) (int, error)                { return o.f.Write(p) }
func (o *osFile) Seek(offset int64, whence int) (int64, error) { return o.f.Seek(offset, whence) }
func (o *osFile) Close() error                                { return o.f.Close() }
func (o *osFile) ReadAt(p []byte, off int64) (int, error)     { return o.f.ReadAt(p, off) }
func (o *osFile) WriteAt(p []byte, off int64) (int, error)    { return o.f.WriteAt(p, off) }
func (o *osFile) Truncate(size int64) error                   { return o.f.Truncate(size) }

func (o *osFile) Stat() (Stat, error) {
	info, err := o.f.Stat()
	if err != nil {
		return Stat{}, err
	}
	return statFromOSInfo(info), nil
}

var _ File = (*osFile)(nil)

// osTextFile decodes/encodes an osFile as UTF-8 text, mirroring
// memTextFile's shape.
type osTextFile struct {
	bin *osFile
	r   *bufio.Reader
}

func newOSTextFile(bin *osFile) *osTextFile {
	return &osTextFile{bin: bin, r: bufio.NewReader(bin)}
}

func (t *osTextFile) Read(p []byte) (int, error)  { return t.r.Read(p) }
func (t *osTextFile) Write(p []byte) (int, error) { return t.bin.Write(p) }
func (t *osTextFile) Close() error                { return t.bin.Close() }

func (t *osTextFile) ReadLine() (string, error) {
	line, err := t.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

var _ TextFile = (*osTextFile)(nil)
