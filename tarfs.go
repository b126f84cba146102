package layerfs

import (
	"archive/tar"
	"bufio"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// tarEntry is one archive member, indexed by its cleaned absolute path.
// Directory and symlink entries carry no data.
type tarEntry struct {
	header *tar.Header
	data   []byte
}

// TarFS is a read-only FileSystem backed by the contents of a tar
// archive, fully indexed into memory at construction time since tar's
// sequential framing has no random-access directory structure of its
// own. Directories implied by a member's path but never given their
// own header (the common case for archives built without explicit
// directory entries) are synthesized with mode 0755.
//
// The original fslib implementation this is ported from has a known
// defect in its own access-check method: it sometimes returns an
// unraised exception object where a boolean was expected, rather than
// actually signaling the error. TarFS.Access does not reproduce that:
// Go's typed, single-return-path error handling doesn't admit the same
// category of mistake.
type TarFS struct {
	entries  map[string]*tarEntry
	children map[string]map[string]bool
}

// NewTarFS indexes every member of the archive read from r.
func NewTarFS(r io.Reader) (*TarFS, error) {
	fs := &TarFS{
		entries:  map[string]*tarEntry{Root: {header: &tar.Header{Typeflag: tar.TypeDir, Mode: 0o755}}},
		children: map[string]map[string]bool{Root: {}},
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		p := CleanPath(hdr.Name)
		var data []byte
		if hdr.Typeflag == tar.TypeReg {
			data, err = io.ReadAll(tr)
			if err != nil {
				return nil, err
			}
		}
		fs.entries[p] = &tarEntry{header: hdr, data: data}
		fs.linkAncestors(p)
	}
	return fs, nil
}

// linkAncestors registers p as a child of its parent, synthesizing any
// ancestor directory the archive never listed explicitly, all the way
// up to Root.
func (fs *TarFS) linkAncestors(p string) {
	for p != Root {
		parent := ParentPath(p)
		if _, ok := fs.entries[parent]; !ok {
			fs.entries[parent] = &tarEntry{header: &tar.Header{Typeflag: tar.TypeDir, Mode: 0o755}}
		}
		if fs.children[parent] == nil {
			fs.children[parent] = make(map[string]bool)
		}
		fs.children[parent][baseName(p)] = true
		p = parent
	}
}

func statFromTarHeader(h *tar.Header) Stat {
	mode := os.FileMode(h.Mode) & os.ModePerm
	switch h.Typeflag {
	case tar.TypeDir:
		mode |= os.ModeDir
	case tar.TypeSymlink:
		mode |= os.ModeSymlink
	}
	return Stat{
		Mode:  mode,
		Nlink: 1,
		Uid:   h.Uid,
		Gid:   h.Gid,
		Size:  h.Size,
		Atime: h.ModTime,
		Mtime: h.ModTime,
		Ctime: h.ModTime,
	}
}

func (fs *TarFS) Access(path string, mask AccessMask) bool {
	path = CleanPath(path)
	e, ok := fs.entries[path]
	if !ok {
		return false
	}
	if mask == FOK {
		return true
	}
	if mask.Has(WOK) {
		return false // TarFS never grants write access
	}
	perm := os.FileMode(e.header.Mode) & os.ModePerm
	if mask.Has(ROK) && perm&0o444 == 0 {
		return false
	}
	if mask.Has(XOK) && perm&0o111 == 0 {
		return false
	}
	return true
}

func (fs *TarFS) Lstat(path string) (Stat, error) {
	path = CleanPath(path)
	e, ok := fs.entries[path]
	if !ok {
		return Stat{}, New("lstat", path, ENOENT)
	}
	return statFromTarHeader(e.header), nil
}

func (fs *TarFS) Stat(path string) (Stat, error) {
	path = CleanPath(path)
	seen := make(map[string]bool)
	for i := 0; i < maxSymlinkDepth; i++ {
		e, ok := fs.entries[path]
		if !ok {
			return Stat{}, New("stat", path, ENOENT)
		}
		if e.header.Typeflag != tar.TypeSymlink {
			return statFromTarHeader(e.header), nil
		}
		if seen[path] {
			return Stat{}, New("stat", path, EINVAL)
		}
		seen[path] = true
		path = CleanPath(e.header.Linkname)
	}
	return Stat{}, New("stat", path, EINVAL)
}

func (fs *TarFS) Listdir(path string) ([]string, error) {
	path = CleanPath(path)
	e, ok := fs.entries[path]
	if !ok {
		return nil, New("listdir", path, ENOENT)
	}
	if e.header.Typeflag != tar.TypeDir {
		return nil, New("listdir", path, ENOTDIR)
	}
	names := make([]string, 0, len(fs.children[path]))
	for name := range fs.children[path] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (fs *TarFS) Readlink(path string) (string, error) {
	path = CleanPath(path)
	e, ok := fs.entries[path]
	if !ok {
		return "", New("readlink", path, ENOENT)
	}
	if e.header.Typeflag != tar.TypeSymlink {
		return "", New("readlink", path, EINVAL)
	}
	return e.header.Linkname, nil
}

func (fs *TarFS) OpenBinary(path string, mode string) (File, error) {
	path = CleanPath(path)
	if !IsReadOnlyMode(mode) {
		return nil, New("open", path, EROFS)
	}
	e, ok := fs.entries[path]
	if !ok {
		return nil, New("open", path, ENOENT)
	}
	if e.header.Typeflag == tar.TypeDir {
		return nil, New("open", path, EISDIR)
	}
	return &tarFile{path: path, data: e.data}, nil
}

func (fs *TarFS) OpenText(path string, mode string, encoding string) (TextFile, error) {
	if encoding != "" && !strings.EqualFold(encoding, "utf-8") {
		return nil, New("open", path, EINVAL)
	}
	f, err := fs.OpenBinary(path, mode)
	if err != nil {
		return nil, err
	}
	return newTarTextFile(f.(*tarFile)), nil
}

func (fs *TarFS) Chmod(path string, mode os.FileMode) error { return New("chmod", path, EROFS) }
func (fs *TarFS) Chown(path string, uid, gid int) error     { return New("chown", path, EROFS) }
func (fs *TarFS) Mkdir(path string, perm os.FileMode) error { return New("mkdir", path, EROFS) }
func (fs *TarFS) Symlink(link, target string) error         { return New("symlink", link, EROFS) }
func (fs *TarFS) Rmdir(path string) error                   { return New("rmdir", path, EROFS) }
func (fs *TarFS) Unlink(path string) error                  { return New("unlink", path, EROFS) }

func (fs *TarFS) HasFeature(f Feature) bool { return f == FeatureReadOnly }

var _ FileSystem = (*TarFS)(nil)

// tarFile is the read-only File handle over one archive member's
// already-decompressed bytes.
type tarFile struct {
	mu     sync.Mutex
	path   string
	data   []byte
	off    int64
	closed bool
}

func (f *tarFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, New("read", f.path, EINVAL)
	}
	n, err := f.readAtLocked(p, f.off)
	f.off += int64(n)
	return n, err
}

func (f *tarFile) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, New("read", f.path, EINVAL)
	}
	return f.readAtLocked(p, off)
}

func (f *tarFile) readAtLocked(p []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	return n, nil
}

func (f *tarFile) Write(p []byte) (int, error)             { return 0, New("write", f.path, EROFS) }
func (f *tarFile) WriteAt(p []byte, off int64) (int, error) { return 0, New("write", f.path, EROFS) }
func (f *tarFile) Truncate(size int64) error               { return New("truncate", f.path, EROFS) }

func (f *tarFile) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, New("seek", f.path, EINVAL)
	}
	switch whence {
	case io.SeekStart:
		f.off = offset
	case io.SeekCurrent:
		f.off += offset
	case io.SeekEnd:
		f.off = int64(len(f.data)) + offset
	default:
		return 0, New("seek", f.path, EINVAL)
	}
	if f.off < 0 {
		f.off = 0
	}
	return f.off, nil
}

func (f *tarFile) Stat() (Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Stat{}, New("stat", f.path, EINVAL)
	}
	return Stat{Size: int64(len(f.data))}, nil
}

func (f *tarFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var _ File = (*tarFile)(nil)

// tarTextFile decodes a tarFile as UTF-8 text, mirroring memTextFile.
type tarTextFile struct {
	bin *tarFile
	r   *bufio.Reader
}

func newTarTextFile(bin *tarFile) *tarTextFile {
	return &tarTextFile{bin: bin, r: bufio.NewReader(bin)}
}

func (t *tarTextFile) Read(p []byte) (int, error)  { return t.r.Read(p) }
func (t *tarTextFile) Write(p []byte) (int, error) { return t.bin.Write(p) }
func (t *tarTextFile) Close() error                { return t.bin.Close() }

func (t *tarTextFile) ReadLine() (string, error) {
	line, err := t.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

var _ TextFile = (*tarTextFile)(nil)
