package layerfs

import (
	"io"
	"os"
	"sync"
	"time"
)

// nodeKind tags the variant a memNode holds. The object tree is a single
// tagged-union type rather than an interface hierarchy: a directory owns
// a name->child mapping, a file owns a shared byte buffer, a symlink
// owns a target name (resolved lazily through the path index, not a
// direct node reference).
type nodeKind int

const (
	kindFile nodeKind = iota
	kindDir
	kindSymlink
)

// memNode is one entry of a MemoryFS object tree.
type memNode struct {
	kind   nodeKind
	name   string
	parent *memNode

	// mode holds only permission bits (+ os.ModeSetgid); the type bits
	// are implied by kind and added back in fullMode().
	mode os.FileMode
	uid  int
	gid  int

	atime time.Time
	mtime time.Time
	ctime time.Time

	children map[string]*memNode // kindDir
	buf      *memBuffer          // kindFile
	target   string              // kindSymlink
}

func newNode(kind nodeKind, name string, parent *memNode, mode os.FileMode, uid, gid int) *memNode {
	now := time.Now()
	n := &memNode{
		kind:   kind,
		name:   name,
		parent: parent,
		mode:   mode,
		uid:    uid,
		gid:    gid,
		atime:  now,
		mtime:  now,
		ctime:  now,
	}
	switch kind {
	case kindDir:
		n.children = make(map[string]*memNode)
	case kindFile:
		n.buf = &memBuffer{}
	}
	return n
}

// fullMode returns the mode as reported through Stat: type bits from
// kind, permission (+ setgid) bits from n.mode.
func (n *memNode) fullMode() os.FileMode {
	switch n.kind {
	case kindDir:
		return os.ModeDir | n.mode
	case kindSymlink:
		return os.ModeSymlink | n.mode
	default:
		return n.mode
	}
}

func (n *memNode) size() int64 {
	if n.kind == kindFile {
		return n.buf.len()
	}
	return 0
}

func (n *memNode) stat() Stat {
	return Stat{
		Mode:  n.fullMode(),
		Nlink: 1,
		Uid:   n.uid,
		Gid:   n.gid,
		Size:  n.size(),
		Atime: n.atime,
		Mtime: n.mtime,
		Ctime: n.ctime,
	}
}

// setgid reports whether the directory's setgid bit is set, meaning new
// children should inherit its gid rather than the backend default.
func (n *memNode) setgid() bool {
	return n.kind == kindDir && n.mode&os.ModeSetgid != 0
}

// memBuffer is the shared byte buffer backing a regular file. Multiple
// open streams of the same file hold a pointer to the same buffer, so
// the buffer outlives any single open/close cycle.
type memBuffer struct {
	mu   sync.Mutex
	data []byte
}

func (b *memBuffer) len() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.data))
}

func (b *memBuffer) readAt(p []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	return n, nil
}

func (b *memBuffer) writeAt(p []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[off:end], p)
	return len(p), nil
}

func (b *memBuffer) truncate(size int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case size == int64(len(b.data)):
	case size < int64(len(b.data)):
		b.data = b.data[:size]
	default:
		grown := make([]byte, size)
		copy(grown, b.data)
		b.data = grown
	}
}

func (b *memBuffer) snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}
