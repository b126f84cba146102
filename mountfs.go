package layerfs

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// MountFS routes operations to one of several sub-filesystems by
// longest matching path prefix, the way mounting a filesystem at a
// directory works on a real OS. The first mount registered must be at
// Root; every MountFS therefore always has at least a root filesystem
// once it has been mounted at all.
//
// An absolute symlink target (one starting with "/") is resolved
// against the mount table the same way link is; if it maps to a
// different mount than link, Symlink rejects it instead of creating a
// link whose target can never resolve through this MountFS's own
// dispatch. A relative target is forwarded unchanged, since it is
// interpreted relative to link's directory and so never crosses a
// mount boundary by construction.
type MountFS struct {
	mu     sync.RWMutex
	mounts map[string]FileSystem
	sorted []string // cached descending by (length, path) for longest-prefix matching
}

// NewMountFS creates an empty mount table. The first call to Mount
// must target Root.
func NewMountFS() *MountFS {
	return &MountFS{mounts: make(map[string]FileSystem)}
}

// Mount registers fs at path. The very first mount of a MountFS must be
// at Root; registering any other path first, or mounting over a path
// that already has a mount, is a *ValidationError.
func (m *MountFS) Mount(path string, fs FileSystem) error {
	path = CleanPath(path)
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.mounts) == 0 && path != Root {
		return invalidArg("mount: first mount must be at %q, got %q", Root, path)
	}
	if _, exists := m.mounts[path]; exists {
		return invalidArg("mount: %q is already a mount point", path)
	}

	m.mounts[path] = fs
	m.sorted = nil
	return nil
}

// Unmount removes the mount at path. Unmounting a path that is not
// itself a mount point, or unmounting Root, fails with EINVAL.
func (m *MountFS) Unmount(path string) error {
	path = CleanPath(path)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mounts[path]; !exists {
		return New("unmount", path, EINVAL)
	}
	if path == Root {
		return New("unmount", path, EINVAL)
	}

	delete(m.mounts, path)
	m.sorted = nil
	return nil
}

// sortedMountsLocked returns mount prefixes ordered so that the
// longest, and lexicographically greatest on a length tie, comes
// first — a cheap longest-prefix-match by linear scan. The caller must
// hold m.mu.
func (m *MountFS) sortedMountsLocked() []string {
	if m.sorted != nil {
		return m.sorted
	}
	out := make([]string, 0, len(m.mounts))
	for p := range m.mounts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] > out[j]
	})
	m.sorted = out
	return out
}

// resolveLocked returns the mount prefix and filesystem responsible for
// path, and path translated into that filesystem's own namespace. The
// caller must hold m.mu.
func (m *MountFS) resolveLocked(op, path string) (string, FileSystem, string, error) {
	for _, prefix := range m.sortedMountsLocked() {
		if IsAncestor(prefix, path) {
			return prefix, m.mounts[prefix], RelativePath(prefix, path), nil
		}
	}
	return "", nil, "", New(op, path, ENOENT)
}

// mountAncestorLocked reports whether path is a strict ancestor of any
// registered mount point, i.e. removing path would orphan that mount.
func (m *MountFS) mountAncestorLocked(path string) bool {
	for p := range m.mounts {
		if p != path && IsAncestor(path, p) {
			return true
		}
	}
	return false
}

func (m *MountFS) Access(path string, mask AccessMask) bool {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("access", path)
	if err != nil {
		return false
	}
	return fs.Access(sub, mask)
}

func (m *MountFS) Stat(path string) (Stat, error) {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("stat", path)
	if err != nil {
		return Stat{}, err
	}
	return fs.Stat(sub)
}

func (m *MountFS) Lstat(path string) (Stat, error) {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("lstat", path)
	if err != nil {
		return Stat{}, err
	}
	return fs.Lstat(sub)
}

func (m *MountFS) Listdir(path string) ([]string, error) {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("listdir", path)
	if err != nil {
		return nil, err
	}
	names, err := fs.Listdir(sub)
	if err != nil {
		return nil, err
	}

	// A directory that is itself a mount point's strict ancestor also
	// exposes the first path component of every mount rooted beneath
	// it, even if the underlying filesystem has nothing there yet.
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, prefix := range m.sortedMountsLocked() {
		if prefix == path || !IsAncestor(path, prefix) {
			continue
		}
		rel := RelativePath(path, prefix)
		name := baseName(JoinPath(path, splitFirstComponent(rel)))
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

// splitFirstComponent returns the first "/"-separated component of an
// absolute path, e.g. "/a/b/c" -> "a".
func splitFirstComponent(p string) string {
	for i := 1; i < len(p); i++ {
		if p[i] == '/' {
			return p[1:i]
		}
	}
	if len(p) > 0 {
		return p[1:]
	}
	return ""
}

func (m *MountFS) Readlink(path string) (string, error) {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("readlink", path)
	if err != nil {
		return "", err
	}
	return fs.Readlink(sub)
}

func (m *MountFS) OpenBinary(path string, mode string) (File, error) {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("open", path)
	if err != nil {
		return nil, err
	}
	return fs.OpenBinary(sub, mode)
}

func (m *MountFS) OpenText(path string, mode string, encoding string) (TextFile, error) {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("open", path)
	if err != nil {
		return nil, err
	}
	return fs.OpenText(sub, mode, encoding)
}

func (m *MountFS) Chmod(path string, mode os.FileMode) error {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("chmod", path)
	if err != nil {
		return err
	}
	return fs.Chmod(sub, mode)
}

func (m *MountFS) Chown(path string, uid, gid int) error {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("chown", path)
	if err != nil {
		return err
	}
	return fs.Chown(sub, uid, gid)
}

func (m *MountFS) Mkdir(path string, perm os.FileMode) error {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("mkdir", path)
	if err != nil {
		return err
	}
	return fs.Mkdir(sub, perm)
}

func (m *MountFS) Symlink(link, target string) error {
	link = CleanPath(link)
	m.mu.RLock()
	defer m.mu.RUnlock()

	linkPrefix, fs, sub, err := m.resolveLocked("symlink", link)
	if err != nil {
		return err
	}

	if !strings.HasPrefix(target, "/") {
		return fs.Symlink(sub, target)
	}

	targetPrefix, _, targetSub, err := m.resolveLocked("symlink", CleanPath(target))
	if err != nil {
		return err
	}
	if targetPrefix != linkPrefix {
		return New("symlink", link, EINVAL)
	}
	return fs.Symlink(sub, targetSub)
}

func (m *MountFS) Rmdir(path string) error {
	path = CleanPath(path)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mountAncestorLocked(path) {
		return New("rmdir", path, EBUSY)
	}
	_, fs, sub, err := m.resolveLocked("rmdir", path)
	if err != nil {
		return err
	}
	if sub == Root {
		return New("rmdir", path, EBUSY)
	}
	return fs.Rmdir(sub)
}

func (m *MountFS) Unlink(path string) error {
	path = CleanPath(path)
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, fs, sub, err := m.resolveLocked("unlink", path)
	if err != nil {
		return err
	}
	return fs.Unlink(sub)
}

// HasFeature reports a feature only if every mounted filesystem
// advertises it, since a MountFS presents a single uniform view over
// branches that may differ in capability.
func (m *MountFS) HasFeature(f Feature) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.mounts) == 0 {
		return false
	}
	for _, fs := range m.mounts {
		if !fs.HasFeature(f) {
			return false
		}
	}
	return true
}

var _ FileSystem = (*MountFS)(nil)
