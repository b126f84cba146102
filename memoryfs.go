package layerfs

import (
	"os"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

var nowFunc = time.Now

// maxSymlinkDepth bounds recursive symlink resolution. The original
// implementation this module is grounded on leaves cycle handling
// unspecified; rather than loop forever on a cyclic symlink we fail
// ELOOP-like with EINVAL once this depth is exceeded.
const maxSymlinkDepth = 40

const (
	defaultDirPerm     os.FileMode = 0777
	defaultFilePerm    os.FileMode = 0666
	defaultSymlinkPerm os.FileMode = 0777
)

// MemoryFS is a live, in-process object tree: a rooted tree of File/
// Directory/Symlink nodes plus a derived path index mapping absolute
// path to node for O(1) lookup. It enforces POSIX-style permission
// checks against the process's effective uid/gid, making it suitable as
// the writable branch of a UnionFS (it advertises FeatureWhiteout
// through WhiteoutFS, not directly — see whiteoutfs.go).
type MemoryFS struct {
	mu    sync.RWMutex
	root  *memNode
	index map[string]*memNode

	umask os.FileMode
	uid   int
	gid   int
}

// NewMemoryFS creates an empty MemoryFS. umask masks the default
// directory (0777) and file (0666) permission bits the way a process
// umask does; uid/gid are the owner of freshly created nodes that don't
// inherit a setgid parent's gid.
func NewMemoryFS(umask os.FileMode, uid, gid int) *MemoryFS {
	root := newNode(kindDir, "", nil, defaultDirPerm&^umask, uid, gid)
	fs := &MemoryFS{
		root:  root,
		index: map[string]*memNode{Root: root},
		umask: umask,
		uid:   uid,
		gid:   gid,
	}
	return fs
}

func effectiveIDs() (int, int) {
	return syscall.Geteuid(), syscall.Getegid()
}

func checkPerm(n *memNode, euid, egid int, mask AccessMask) bool {
	if mask == FOK {
		return true
	}
	perm := n.mode & os.ModePerm
	var bits os.FileMode
	switch {
	case euid == n.uid:
		bits = (perm >> 6) & 07
	case egid == n.gid:
		bits = (perm >> 3) & 07
	default:
		bits = perm & 07
	}
	if mask&ROK != 0 && bits&04 == 0 {
		return false
	}
	if mask&WOK != 0 && bits&02 == 0 {
		return false
	}
	if mask&XOK != 0 && bits&01 == 0 {
		return false
	}
	return true
}

// lookup resolves a cleaned path against the tree, returning ENOENT for
// a missing component and ENOTDIR for a non-directory intermediate
// component. When follow is true the final component is resolved
// through any trailing symlink.
func (fs *MemoryFS) lookup(op, p string, follow bool) (*memNode, error) {
	ancestors := Ancestors(p)
	for i, anc := range ancestors {
		node, ok := fs.index[anc]
		if !ok {
			return nil, New(op, p, ENOENT)
		}
		last := i == len(ancestors)-1
		if !last {
			if node.kind != kindDir {
				return nil, New(op, p, ENOTDIR)
			}
			continue
		}
		if follow {
			return fs.followSymlink(op, node, anc, 0)
		}
		return node, nil
	}
	return nil, New(op, p, ENOENT)
}

func (fs *MemoryFS) followSymlink(op string, node *memNode, at string, depth int) (*memNode, error) {
	if node.kind != kindSymlink {
		return node, nil
	}
	if depth >= maxSymlinkDepth {
		return nil, New(op, at, EINVAL)
	}
	target := node.target
	var targetPath string
	if strings.HasPrefix(target, "/") {
		targetPath = CleanPath(target)
	} else {
		targetPath = JoinPath(ParentPath(at), target)
	}
	resolved, err := fs.lookup(op, targetPath, false)
	if err != nil {
		return nil, err
	}
	return fs.followSymlink(op, resolved, targetPath, depth+1)
}

func (fs *MemoryFS) Access(path string, mask AccessMask) bool {
	path = CleanPath(path)
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, err := fs.lookup("access", path, true)
	if err != nil {
		return false
	}
	euid, egid := effectiveIDs()
	return checkPerm(node, euid, egid, mask)
}

func (fs *MemoryFS) Stat(path string) (Stat, error) {
	path = CleanPath(path)
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, err := fs.lookup("stat", path, true)
	if err != nil {
		return Stat{}, err
	}
	return node.stat(), nil
}

func (fs *MemoryFS) Lstat(path string) (Stat, error) {
	path = CleanPath(path)
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, err := fs.lookup("lstat", path, false)
	if err != nil {
		return Stat{}, err
	}
	return node.stat(), nil
}

func (fs *MemoryFS) Listdir(path string) ([]string, error) {
	path = CleanPath(path)
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, err := fs.lookup("listdir", path, true)
	if err != nil {
		return nil, err
	}
	if node.kind != kindDir {
		return nil, New("listdir", path, ENOTDIR)
	}
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (fs *MemoryFS) Readlink(path string) (string, error) {
	path = CleanPath(path)
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, err := fs.lookup("readlink", path, false)
	if err != nil {
		return "", err
	}
	if node.kind != kindSymlink {
		return "", New("readlink", path, EINVAL)
	}
	return node.target, nil
}

// childGid returns the gid a new child of dir should inherit: the
// parent's gid if its setgid bit is set, else the backend default.
func (fs *MemoryFS) childGid(dir *memNode) int {
	if dir.setgid() {
		return dir.gid
	}
	return fs.gid
}

func (fs *MemoryFS) resolveParent(op, path string) (*memNode, string, error) {
	dir, name := SplitPath(path)
	parent, err := fs.lookup(op, dir, true)
	if err != nil {
		return nil, "", err
	}
	if parent.kind != kindDir {
		return nil, "", New(op, path, ENOTDIR)
	}
	return parent, name, nil
}

func (fs *MemoryFS) OpenBinary(path string, mode string) (File, error) {
	path = CleanPath(path)
	readOnly := IsReadOnlyMode(mode)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	euid, egid := effectiveIDs()

	node, err := fs.lookup("open", path, true)
	if err != nil {
		if !IsKind(err, ENOENT) || readOnly {
			return nil, err
		}
		// Create the file: parent must exist, be a directory, and be
		// writable by the caller.
		parent, name, perr := fs.resolveParent("open", path)
		if perr != nil {
			return nil, perr
		}
		if !checkPerm(parent, euid, egid, WOK) {
			return nil, New("open", path, EACCES)
		}
		node = newNode(kindFile, name, parent, defaultFilePerm&^fs.umask, fs.uid, fs.childGid(parent))
		parent.children[name] = node
		fs.index[path] = node
	}

	if node.kind == kindDir {
		return nil, New("open", path, EISDIR)
	}
	if node.kind != kindFile {
		return nil, New("open", path, EINVAL)
	}

	wantsWrite := !readOnly
	wantsRead := strings.Contains(mode, "r") || strings.Contains(mode, "+")
	if wantsWrite && !checkPerm(node, euid, egid, WOK) {
		return nil, New("open", path, EACCES)
	}
	if wantsRead && !checkPerm(node, euid, egid, ROK) {
		return nil, New("open", path, EACCES)
	}

	if strings.Contains(mode, "w") {
		node.buf.truncate(0)
		node.mtime = nowFunc()
	}

	f := &memFile{
		node:     node,
		buf:      node.buf,
		readable: wantsRead || readOnly,
		writable: wantsWrite,
		path:     path,
	}
	if strings.Contains(mode, "a") {
		f.off = node.buf.len()
	}
	return f, nil
}

func (fs *MemoryFS) OpenText(path string, mode string, encoding string) (TextFile, error) {
	if encoding != "" && !strings.EqualFold(encoding, "utf-8") {
		return nil, New("open", path, EINVAL)
	}
	bin, err := fs.OpenBinary(path, mode)
	if err != nil {
		return nil, err
	}
	mf, ok := bin.(*memFile)
	if !ok {
		return nil, New("open", path, EINVAL)
	}
	return newTextFile(mf), nil
}

func (fs *MemoryFS) Chmod(path string, mode os.FileMode) error {
	path = CleanPath(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, err := fs.lookup("chmod", path, true)
	if err != nil {
		return err
	}
	euid, _ := effectiveIDs()
	if euid != node.uid && euid != 0 {
		return New("chmod", path, EACCES)
	}
	node.mode = (mode & (os.ModePerm | os.ModeSetgid))
	node.ctime = nowFunc()
	return nil
}

func (fs *MemoryFS) Chown(path string, uid, gid int) error {
	path = CleanPath(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, err := fs.lookup("chown", path, true)
	if err != nil {
		return err
	}
	if uid >= 0 {
		node.uid = uid
	}
	if gid >= 0 {
		node.gid = gid
	}
	node.ctime = nowFunc()
	return nil
}

// Chtimes sets the access and modification time of path. Copy-up (see
// unionfs_copyup.go) uses this to preserve timestamps when replicating
// an object into a writable branch.
func (fs *MemoryFS) Chtimes(path string, atime, mtime time.Time) error {
	path = CleanPath(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, err := fs.lookup("chtimes", path, true)
	if err != nil {
		return err
	}
	node.atime = atime
	node.mtime = mtime
	return nil
}

func (fs *MemoryFS) Mkdir(path string, perm os.FileMode) error {
	path = CleanPath(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.lookup("mkdir", path, false); err == nil {
		return New("mkdir", path, EEXIST)
	}

	parent, name, err := fs.resolveParent("mkdir", path)
	if err != nil {
		return err
	}
	euid, egid := effectiveIDs()
	if !checkPerm(parent, euid, egid, WOK) {
		return New("mkdir", path, EACCES)
	}

	node := newNode(kindDir, name, parent, perm&^fs.umask&(os.ModePerm|os.ModeSetgid), fs.uid, fs.childGid(parent))
	parent.children[name] = node
	fs.index[path] = node
	return nil
}

func (fs *MemoryFS) Symlink(link, target string) error {
	link = CleanPath(link)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.lookup("symlink", link, false); err == nil {
		return New("symlink", link, EEXIST)
	}

	parent, name, err := fs.resolveParent("symlink", link)
	if err != nil {
		return err
	}
	euid, egid := effectiveIDs()
	if !checkPerm(parent, euid, egid, WOK) {
		return New("symlink", link, EACCES)
	}

	node := newNode(kindSymlink, name, parent, defaultSymlinkPerm, fs.uid, fs.childGid(parent))
	node.target = target
	parent.children[name] = node
	fs.index[link] = node
	return nil
}

func (fs *MemoryFS) Rmdir(path string) error {
	path = CleanPath(path)
	if path == Root {
		return New("rmdir", path, EINVAL)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, err := fs.lookup("rmdir", path, false)
	if err != nil {
		return err
	}
	if node.kind != kindDir {
		return New("rmdir", path, ENOTDIR)
	}
	if len(node.children) != 0 {
		return New("rmdir", path, ENOTEMPTY)
	}
	euid, egid := effectiveIDs()
	if !checkPerm(node.parent, euid, egid, WOK) {
		return New("rmdir", path, EACCES)
	}

	delete(node.parent.children, node.name)
	fs.removeFromIndex(path)
	return nil
}

func (fs *MemoryFS) Unlink(path string) error {
	path = CleanPath(path)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	node, err := fs.lookup("unlink", path, false)
	if err != nil {
		return err
	}
	if node.kind == kindDir {
		return New("unlink", path, EISDIR)
	}
	euid, egid := effectiveIDs()
	if !checkPerm(node.parent, euid, egid, WOK) {
		return New("unlink", path, EACCES)
	}

	delete(node.parent.children, node.name)
	delete(fs.index, path)
	return nil
}

func (fs *MemoryFS) removeFromIndex(path string) {
	delete(fs.index, path)
}

func (fs *MemoryFS) HasFeature(f Feature) bool {
	return false
}

var _ FileSystem = (*MemoryFS)(nil)
