// Package layerfs implements a virtual filesystem composition library: a
// single uniform FileSystem contract, plus composable layers that can be
// stacked arbitrarily on top of it — an in-memory store, a whiteout-
// tracking deletion layer, a read-only shield, a chroot-style path
// remapper, a union/overlay of branches with copy-on-write, and a
// prefix-routed mount tree.
package layerfs

import (
	"io"
	"os"
	"time"
)

// AccessMask is a bitmask of the access checks Access accepts, mirroring
// POSIX's F_OK/R_OK/W_OK/X_OK.
type AccessMask uint8

const (
	// FOK requires only that the path exist.
	FOK AccessMask = 0
	// ROK requires read permission.
	ROK AccessMask = 1 << 0
	// WOK requires write permission.
	WOK AccessMask = 1 << 1
	// XOK requires execute/search permission.
	XOK AccessMask = 1 << 2
)

// Has reports whether m is set within the receiver bitmask.
func (mask AccessMask) Has(m AccessMask) bool {
	return mask&m != 0
}

// Feature is a capability a FileSystem may advertise.
type Feature uint8

const (
	// FeatureReadOnly marks a filesystem that rejects every write.
	FeatureReadOnly Feature = 1 << iota
	// FeatureWhiteout marks a filesystem that supports deletion marks
	// shadowing an inner filesystem (required of any writable UnionFS
	// branch).
	FeatureWhiteout
)

// Has reports whether f is set within the receiver bitmask.
func (features Feature) Has(f Feature) bool {
	return features&f != 0
}

// Stat is the uniform metadata record every FileSystem operation
// returns. Mode follows os.FileMode's encoding: type bits
// (os.ModeDir / os.ModeSymlink / regular-file-by-absence) in the high
// bits, permission bits in the low 9 bits, plus os.ModeSetgid for the
// setgid bit.
type Stat struct {
	Mode  os.FileMode
	Nlink uint32
	Uid   int
	Gid   int
	Size  int64
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// IsDir reports whether the stat describes a directory.
func (s Stat) IsDir() bool { return s.Mode.IsDir() }

// IsRegular reports whether the stat describes a regular file.
func (s Stat) IsRegular() bool { return s.Mode.IsRegular() }

// IsSymlink reports whether the stat describes a symbolic link.
func (s Stat) IsSymlink() bool { return s.Mode&os.ModeSymlink != 0 }

// Perm returns the permission bits of the mode (masking out type bits
// and the setgid bit).
func (s Stat) Perm() os.FileMode { return s.Mode & os.ModePerm }

// File is the stream returned by OpenBinary. Not every method is valid
// on every open mode: writing to a stream opened read-only fails the
// way writing to a read-only *os.File does.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	io.ReaderAt
	io.WriterAt
	// Truncate changes the size of the file.
	Truncate(size int64) error
	// Stat returns the current metadata of the open file.
	Stat() (Stat, error)
}

// TextFile is the stream returned by OpenText: a File further decoded
// and encoded as a particular text encoding. Only "utf-8" (the zero
// value default encoding at the API boundary, since Go strings are
// natively UTF-8) is supported; see FileSystem.OpenText.
type TextFile interface {
	io.Reader
	io.Writer
	io.Closer
	// ReadLine reads a single line, stripping its trailing newline.
	ReadLine() (string, error)
}

// IsReadOnlyMode reports whether every character of an open-mode string
// is in the set {r, b, t} — i.e. the mode carries no write intent. Mode
// strings follow the "rb"/"wb"/"r+t"/... convention: a letter selects
// the disposition (r read, w write-truncate, a append, x exclusive-
// create, plus "+" for read-and-write) and a trailing b/t selects binary
// or text framing.
func IsReadOnlyMode(mode string) bool {
	for _, c := range mode {
		switch c {
		case 'r', 'b', 't':
			// allowed in a read-only mode
		default:
			return false
		}
	}
	return true
}

// FileSystem is the uniform operation set every layer in this module
// implements. Paths are always absolute, forward-slash-separated
// strings; each implementation normalizes its incoming path with
// CleanPath on entry, so callers need not pre-clean paths themselves.
type FileSystem interface {
	// Access reports whether path exists and satisfies mask. It never
	// fails for a missing path, denied permission, or a non-directory
	// path component — those conditions simply make it return false.
	Access(path string, mask AccessMask) bool

	// Stat resolves path, following a trailing symlink.
	Stat(path string) (Stat, error)
	// Lstat resolves path without following a trailing symlink.
	Lstat(path string) (Stat, error)
	// Listdir returns the child names of a directory.
	Listdir(path string) ([]string, error)
	// Readlink returns the target string of a symlink.
	Readlink(path string) (string, error)

	// OpenBinary opens path as a byte stream using a "rb"/"wb"/...
	// mode string. Write modes create the file if absent, provided the
	// parent directory exists.
	OpenBinary(path string, mode string) (File, error)
	// OpenText opens path as a text stream using a "rt"/"wt"/... mode
	// string and the given encoding ("" defaults to "utf-8").
	OpenText(path string, mode string, encoding string) (TextFile, error)

	// Chmod replaces the permission bits of path.
	Chmod(path string, mode os.FileMode) error
	// Chown replaces the uid/gid of path.
	Chown(path string, uid, gid int) error
	// Mkdir creates an empty directory; the parent must already exist
	// and be a directory.
	Mkdir(path string, perm os.FileMode) error
	// Symlink creates a symlink named link pointing at target.
	Symlink(link, target string) error

	// Rmdir removes an empty directory.
	Rmdir(path string) error
	// Unlink removes a non-directory entry.
	Unlink(path string) error

	// HasFeature reports a capability of this filesystem.
	HasFeature(f Feature) bool
}
