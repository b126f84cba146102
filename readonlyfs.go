package layerfs

import "os"

// ReadOnlyFS wraps a FileSystem and rejects every write operation with
// EROFS, while forwarding reads unchanged. It advertises
// FeatureReadOnly regardless of the wrapped filesystem's own features.
type ReadOnlyFS struct {
	inner FileSystem
}

// NewReadOnlyFS wraps inner as a read-only shield.
func NewReadOnlyFS(inner FileSystem) *ReadOnlyFS {
	return &ReadOnlyFS{inner: inner}
}

func (r *ReadOnlyFS) Access(path string, mask AccessMask) bool {
	return r.inner.Access(path, mask)
}

func (r *ReadOnlyFS) Stat(path string) (Stat, error) { return r.inner.Stat(path) }

func (r *ReadOnlyFS) Lstat(path string) (Stat, error) { return r.inner.Lstat(path) }

func (r *ReadOnlyFS) Listdir(path string) ([]string, error) { return r.inner.Listdir(path) }

func (r *ReadOnlyFS) Readlink(path string) (string, error) { return r.inner.Readlink(path) }

func (r *ReadOnlyFS) OpenBinary(path string, mode string) (File, error) {
	if !IsReadOnlyMode(mode) {
		return nil, New("open", path, EROFS)
	}
	return r.inner.OpenBinary(path, mode)
}

func (r *ReadOnlyFS) OpenText(path string, mode string, encoding string) (TextFile, error) {
	if !IsReadOnlyMode(mode) {
		return nil, New("open", path, EROFS)
	}
	return r.inner.OpenText(path, mode, encoding)
}

func (r *ReadOnlyFS) Chmod(path string, mode os.FileMode) error {
	return New("chmod", path, EROFS)
}

func (r *ReadOnlyFS) Chown(path string, uid, gid int) error {
	return New("chown", path, EROFS)
}

func (r *ReadOnlyFS) Mkdir(path string, perm os.FileMode) error {
	return New("mkdir", path, EROFS)
}

func (r *ReadOnlyFS) Symlink(link, target string) error {
	return New("symlink", link, EROFS)
}

func (r *ReadOnlyFS) Rmdir(path string) error {
	return New("rmdir", path, EROFS)
}

func (r *ReadOnlyFS) Unlink(path string) error {
	return New("unlink", path, EROFS)
}

func (r *ReadOnlyFS) HasFeature(f Feature) bool {
	if f == FeatureReadOnly {
		return true
	}
	return r.inner.HasFeature(f)
}

var _ FileSystem = (*ReadOnlyFS)(nil)
