package layerfs

import (
	"crypto/md5"
	"hash"
	"io"
	"os"
)

// Facade is the high-level, convenience-method view over a FileSystem:
// existence predicates, line-oriented reads/writes, content hashing and
// a recursive mkdir -p, all built from the uniform low-level contract.
// Most callers want Facade rather than talking to a FileSystem layer
// stack directly.
type Facade struct {
	Backend       FileSystem
	FilesEncoding string
}

// NewFacade wraps backend. filesEncoding defaults to "utf-8" when
// empty, the only encoding this module's OpenText actually supports.
func NewFacade(backend FileSystem, filesEncoding string) *Facade {
	if filesEncoding == "" {
		filesEncoding = "utf-8"
	}
	return &Facade{Backend: backend, FilesEncoding: filesEncoding}
}

// NewOverlay builds the common single-layer writable setup: a
// MemoryFS wrapped in a WhiteoutFS backed by an in-memory whiteout
// cache, faceted for convenience-method access.
func NewOverlay(umask os.FileMode, uid, gid int) *Facade {
	mem := NewMemoryFS(umask, uid, gid)
	wh := NewWhiteoutFS(NewMemCache(), mem)
	return NewFacade(wh, "")
}

// Access reports whether path exists and, for each of read and write
// that is set, grants that access.
func (fc *Facade) Access(path string, read, write bool) bool {
	var mask AccessMask
	if read {
		mask |= ROK
	}
	if write {
		mask |= WOK
	}
	return fc.Backend.Access(path, mask)
}

// Stat resolves path, following a trailing symlink.
func (fc *Facade) Stat(path string) (Stat, error) { return fc.Backend.Stat(path) }

// FileExists reports whether path exists and is a regular file.
func (fc *Facade) FileExists(path string) bool {
	st, err := fc.Backend.Stat(path)
	return err == nil && st.IsRegular()
}

// DirExists reports whether path exists and is a directory.
func (fc *Facade) DirExists(path string) bool {
	st, err := fc.Backend.Stat(path)
	return err == nil && st.IsDir()
}

// SymlinkExists reports whether path exists and is a symlink, checked
// with Lstat so the link itself (not its target) is inspected.
func (fc *Facade) SymlinkExists(path string) bool {
	st, err := fc.Backend.Lstat(path)
	return err == nil && st.IsSymlink()
}

// ReadOneLine reads and returns the first line of path, its trailing
// newline stripped. Typically used to read a single secret or token
// from a file.
func (fc *Facade) ReadOneLine(path string) (string, error) {
	f, err := fc.Backend.OpenText(path, "rt", fc.FilesEncoding)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return f.ReadLine()
}

// ReadLines returns every line of path, each with its trailing newline
// stripped.
func (fc *Facade) ReadLines(path string) ([]string, error) {
	f, err := fc.Backend.OpenText(path, "rt", fc.FilesEncoding)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	for {
		line, err := f.ReadLine()
		if err != nil {
			if err == io.EOF {
				return lines, nil
			}
			return nil, err
		}
		lines = append(lines, line)
	}
}

// WriteLines writes lines to path, appending "\n" after each.
func (fc *Facade) WriteLines(path string, lines []string) error {
	f, err := fc.Backend.OpenText(path, "wt", fc.FilesEncoding)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.Write([]byte(line + "\n")); err != nil {
			return err
		}
	}
	return nil
}

// GetHash hashes path's contents with newHash (defaulting to MD5 when
// nil), streaming in 32KiB chunks the way the original implementation
// did to avoid reading an entire large file into memory at once.
func (fc *Facade) GetHash(path string, newHash func() hash.Hash) (hash.Hash, error) {
	if newHash == nil {
		newHash = md5.New
	}
	f, err := fc.Backend.OpenBinary(path, "rb")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := newHash()
	if _, err := io.CopyBuffer(h, f, make([]byte, 32*1024)); err != nil {
		return nil, err
	}
	return h, nil
}

// Open opens path with mode, dispatching to OpenBinary or OpenText by
// whether mode contains 'b'.
func (fc *Facade) Open(path, mode string) (io.ReadWriteCloser, error) {
	for _, c := range mode {
		if c == 'b' {
			return fc.Backend.OpenBinary(path, mode)
		}
	}
	return fc.Backend.OpenText(path, mode, fc.FilesEncoding)
}

// Mkdir creates a single directory; its parent must already exist.
func (fc *Facade) Mkdir(path string, perm os.FileMode) error {
	return fc.Backend.Mkdir(path, perm)
}

// MakeDirs creates path and every missing ancestor directory, the
// equivalent of mkdir -p.
func (fc *Facade) MakeDirs(path string, perm os.FileMode) error {
	if fc.DirExists(path) {
		return nil
	}
	for _, anc := range Ancestors(path) {
		if anc == Root || fc.DirExists(anc) {
			continue
		}
		if err := fc.Backend.Mkdir(anc, perm); err != nil && !IsKind(err, EEXIST) {
			return err
		}
	}
	return nil
}

// Chmod replaces the permission bits of path.
func (fc *Facade) Chmod(path string, mode os.FileMode) error {
	return fc.Backend.Chmod(path, mode.Perm())
}

// Chown replaces the uid/gid of path.
func (fc *Facade) Chown(path string, uid, gid int) error {
	return fc.Backend.Chown(path, uid, gid)
}

// Symlink creates a symlink named link pointing at target.
func (fc *Facade) Symlink(link, target string) error {
	return fc.Backend.Symlink(link, target)
}

// CreateSymlink creates a symlink at link pointing at target,
// replacing whatever is already there unless it is a directory (always
// an error) or force is false and the existing entry isn't itself a
// symlink.
func (fc *Facade) CreateSymlink(link, target string, force bool) error {
	if fc.Backend.Access(link, FOK) {
		st, err := fc.Backend.Lstat(link)
		if err != nil {
			return err
		}
		if st.IsDir() {
			return New("symlink", link, EISDIR)
		}
		if !st.IsSymlink() && !force {
			return New("symlink", link, EEXIST)
		}
		if err := fc.Remove(link); err != nil {
			return err
		}
	}
	return fc.Backend.Symlink(link, target)
}

// Copy copies source's contents to destination, optionally mirroring
// its permission bits and/or ownership.
func (fc *Facade) Copy(source, destination string, copyMode, copyUser bool) error {
	src, err := fc.Backend.OpenBinary(source, "rb")
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := fc.Backend.OpenBinary(destination, "wb")
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}

	if !copyMode && !copyUser {
		return nil
	}
	st, err := fc.Backend.Stat(source)
	if err != nil {
		return err
	}
	if copyMode {
		if err := fc.Backend.Chmod(destination, st.Perm()); err != nil {
			return err
		}
	}
	if copyUser {
		if err := fc.Backend.Chown(destination, st.Uid, st.Gid); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes path, whether it is a directory or not.
func (fc *Facade) Remove(path string) error {
	if st, err := fc.Backend.Lstat(path); err == nil && st.IsDir() {
		return fc.Backend.Rmdir(path)
	}
	return fc.Backend.Unlink(path)
}
