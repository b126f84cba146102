package layerfs

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies a filesystem failure the way POSIX errno does. Every
// Error carries exactly one Kind plus the path that triggered it.
type Kind int

const (
	_ Kind = iota
	EACCES
	EBUSY
	EEXIST
	EINVAL
	EISDIR
	ENOENT
	ENOTDIR
	ENOTEMPTY
	EROFS
	// DeletedObject is an ENOENT variant raised by WhiteoutFS when a read
	// crosses a whiteout mark. UnionFS treats it distinctly from a plain
	// ENOENT so a whiteout can shadow a lower branch instead of merely
	// failing to find the path in the current one.
	DeletedObject
)

func (k Kind) String() string {
	switch k {
	case EACCES:
		return "EACCES"
	case EBUSY:
		return "EBUSY"
	case EEXIST:
		return "EEXIST"
	case EINVAL:
		return "EINVAL"
	case EISDIR:
		return "EISDIR"
	case ENOENT:
		return "ENOENT"
	case ENOTDIR:
		return "ENOTDIR"
	case ENOTEMPTY:
		return "ENOTEMPTY"
	case EROFS:
		return "EROFS"
	case DeletedObject:
		return "ENOENT"
	default:
		return "EUNKNOWN"
	}
}

var kindMessage = map[Kind]string{
	EACCES:        "permission denied",
	EBUSY:         "device or resource busy",
	EEXIST:        "file exists",
	EINVAL:        "invalid argument",
	EISDIR:        "is a directory",
	ENOENT:        "no such file or directory",
	ENOTDIR:       "not a directory",
	ENOTEMPTY:     "directory not empty",
	EROFS:         "read-only file system",
	DeletedObject: "no such file or directory",
}

// Error is the structured error value returned by every FileSystem
// operation in this module. It always names the offending path and the
// operation being attempted, mirroring the standard library's
// *fs.PathError and *os.PathError.
type Error struct {
	Op   string
	Path string
	Kind Kind
}

// New builds an *Error for the given operation, path and kind.
func New(op, path string, kind Kind) *Error {
	return &Error{Op: op, Path: path, Kind: kind}
}

// NewDeleted builds the distinguished DeletedObject error WhiteoutFS uses
// to signal that a read crossed a whiteout mark.
func NewDeleted(op, path string) *Error {
	return &Error{Op: op, Path: path, Kind: DeletedObject}
}

func (e *Error) Error() string {
	msg, ok := kindMessage[e.Kind]
	if !ok {
		msg = "unknown error"
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
}

// Unwrap lets callers use errors.Is against the standard library's
// generic fs.ErrNotExist / fs.ErrExist / fs.ErrPermission sentinels.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case ENOENT, DeletedObject:
		return fs.ErrNotExist
	case EEXIST:
		return fs.ErrExist
	case EACCES:
		return fs.ErrPermission
	default:
		return nil
	}
}

// Is lets errors.Is(err, layerfs.New("", "", ENOENT)) match on Kind alone,
// ignoring Op/Path, the way callers compare against a sentinel. A target
// of Kind ENOENT also matches a DeletedObject error, since the latter is
// defined as an ENOENT variant; callers that need to distinguish the two
// should use IsDeleted instead.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == ENOENT && e.Kind == DeletedObject {
		return true
	}
	return e.Kind == t.Kind
}

// IsKind reports whether err is an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsDeleted reports whether err is the distinguished DeletedObject
// variant raised by WhiteoutFS, as opposed to a plain ENOENT.
func IsDeleted(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == DeletedObject
}

// IsNotExist reports whether err denotes a missing path, whether as a
// plain ENOENT or as the DeletedObject variant.
func IsNotExist(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == ENOENT || e.Kind == DeletedObject
}

// ValidationError reports a programmer error: a caller-visible API
// misuse (duplicate union branch reference, conflicting mount point,
// registering a read-only filesystem as a writable union branch) rather
// than a filesystem failure. It is deliberately distinct from *Error so
// callers never confuse "the filesystem refused this" with "you called
// the API wrong."
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidArg(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
