package layerfs

import "os"

// WhiteoutFS wraps a single inner FileSystem and layers per-path
// deletion marks ("whiteouts") on top of it. A read that crosses a
// whiteout mark anywhere along its ancestor chain fails with the
// distinguished DeletedObject error rather than a plain ENOENT, so a
// UnionFS stacking a WhiteoutFS branch can tell "never existed" apart
// from "shadowed by a deletion here" (see unionfs.go). Deletes never
// reach the inner filesystem: unlink/rmdir only add a mark to the
// cache. Creating a new entry at a previously-deleted path clears its
// mark ("resurrection").
type WhiteoutFS struct {
	cache WhiteoutCache
	inner FileSystem
}

// NewWhiteoutFS wraps inner, recording deletions in cache.
func NewWhiteoutFS(cache WhiteoutCache, inner FileSystem) *WhiteoutFS {
	return &WhiteoutFS{cache: cache, inner: inner}
}

// Close releases the whiteout cache's resources (relevant for
// persistent caches such as BoltCache).
func (w *WhiteoutFS) Close() error { return w.cache.Close() }

// isShadowed reports whether path or any of its ancestors (including
// path itself) carries a whiteout mark.
func (w *WhiteoutFS) isShadowed(path string) bool {
	for _, anc := range Ancestors(path) {
		if w.cache.Contains(anc) {
			return true
		}
	}
	return false
}

// ancestorsShadowed reports whether any proper ancestor of path (its
// parent directory chain, not path itself) carries a whiteout mark.
func (w *WhiteoutFS) ancestorsShadowed(path string) bool {
	for _, anc := range Ancestors(ParentPath(path)) {
		if w.cache.Contains(anc) {
			return true
		}
	}
	return false
}

func (w *WhiteoutFS) Access(path string, mask AccessMask) bool {
	path = CleanPath(path)
	if w.isShadowed(path) {
		return false
	}
	return w.inner.Access(path, mask)
}

func (w *WhiteoutFS) Stat(path string) (Stat, error) {
	path = CleanPath(path)
	if w.isShadowed(path) {
		return Stat{}, NewDeleted("stat", path)
	}
	return w.inner.Stat(path)
}

func (w *WhiteoutFS) Lstat(path string) (Stat, error) {
	path = CleanPath(path)
	if w.isShadowed(path) {
		return Stat{}, NewDeleted("lstat", path)
	}
	return w.inner.Lstat(path)
}

func (w *WhiteoutFS) Listdir(path string) ([]string, error) {
	path = CleanPath(path)
	if w.isShadowed(path) {
		return nil, NewDeleted("listdir", path)
	}
	names, err := w.inner.Listdir(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if w.cache.Contains(JoinPath(path, name)) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func (w *WhiteoutFS) Readlink(path string) (string, error) {
	path = CleanPath(path)
	if w.isShadowed(path) {
		return "", NewDeleted("readlink", path)
	}
	return w.inner.Readlink(path)
}

func (w *WhiteoutFS) OpenBinary(path string, mode string) (File, error) {
	path = CleanPath(path)
	readOnly := IsReadOnlyMode(mode)

	if readOnly {
		if w.isShadowed(path) {
			return nil, NewDeleted("open", path)
		}
		return w.inner.OpenBinary(path, mode)
	}

	if w.ancestorsShadowed(path) {
		return nil, NewDeleted("open", path)
	}
	selfShadowed := w.cache.Contains(path)
	f, err := w.inner.OpenBinary(path, mode)
	if err != nil {
		return nil, err
	}
	if selfShadowed {
		w.cache.Remove(path)
	}
	return f, nil
}

func (w *WhiteoutFS) OpenText(path string, mode string, encoding string) (TextFile, error) {
	path = CleanPath(path)
	readOnly := IsReadOnlyMode(mode)

	if readOnly {
		if w.isShadowed(path) {
			return nil, NewDeleted("open", path)
		}
		return w.inner.OpenText(path, mode, encoding)
	}

	if w.ancestorsShadowed(path) {
		return nil, NewDeleted("open", path)
	}
	selfShadowed := w.cache.Contains(path)
	f, err := w.inner.OpenText(path, mode, encoding)
	if err != nil {
		return nil, err
	}
	if selfShadowed {
		w.cache.Remove(path)
	}
	return f, nil
}

func (w *WhiteoutFS) Chmod(path string, mode os.FileMode) error {
	path = CleanPath(path)
	if w.isShadowed(path) {
		return NewDeleted("chmod", path)
	}
	return w.inner.Chmod(path, mode)
}

func (w *WhiteoutFS) Chown(path string, uid, gid int) error {
	path = CleanPath(path)
	if w.isShadowed(path) {
		return NewDeleted("chown", path)
	}
	return w.inner.Chown(path, uid, gid)
}

func (w *WhiteoutFS) Mkdir(path string, perm os.FileMode) error {
	path = CleanPath(path)
	if w.ancestorsShadowed(path) {
		return NewDeleted("mkdir", path)
	}
	selfShadowed := w.cache.Contains(path)
	if !selfShadowed {
		if _, err := w.inner.Stat(path); err == nil {
			return New("mkdir", path, EEXIST)
		}
	}
	err := w.inner.Mkdir(path, perm)
	if err != nil && !(selfShadowed && IsKind(err, EEXIST)) {
		return err
	}
	if selfShadowed {
		w.cache.Remove(path)
	}
	return nil
}

func (w *WhiteoutFS) Symlink(link, target string) error {
	link = CleanPath(link)
	if w.ancestorsShadowed(link) {
		return NewDeleted("symlink", link)
	}
	selfShadowed := w.cache.Contains(link)
	if !selfShadowed {
		if _, err := w.inner.Lstat(link); err == nil {
			return New("symlink", link, EEXIST)
		}
	}
	err := w.inner.Symlink(link, target)
	if err != nil && !(selfShadowed && IsKind(err, EEXIST)) {
		return err
	}
	if selfShadowed {
		w.cache.Remove(link)
	}
	return nil
}

func (w *WhiteoutFS) Rmdir(path string) error {
	path = CleanPath(path)
	st, err := w.Lstat(path)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return New("rmdir", path, ENOTDIR)
	}
	children, err := w.Listdir(path)
	if err != nil {
		return err
	}
	if len(children) != 0 {
		return New("rmdir", path, ENOTEMPTY)
	}
	return w.cache.Add(path)
}

func (w *WhiteoutFS) Unlink(path string) error {
	path = CleanPath(path)
	st, err := w.Lstat(path)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return New("unlink", path, EISDIR)
	}
	return w.cache.Add(path)
}

func (w *WhiteoutFS) HasFeature(f Feature) bool {
	if f == FeatureWhiteout {
		return true
	}
	return w.inner.HasFeature(f)
}

var _ FileSystem = (*WhiteoutFS)(nil)
