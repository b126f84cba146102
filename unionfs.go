package layerfs

import (
	"os"
	"sort"
	"sync"
)

// branch is one layer of a UnionFS: a filesystem, its rank (lower ranks
// take priority) and whether it may receive copy-up writes.
type branch struct {
	fs       FileSystem
	ref      string
	rank     int
	writable bool
}

// branchStatus is the per-branch outcome of probing a path (spec
// §4.5): every errno a branch's Stat can raise is tabulated into one of
// a small number of statuses, which is what makes branch scanning a
// plain loop instead of nested error-type switches at each call site.
type branchStatus int

const (
	statusUnknown branchStatus = iota // ENOENT: branch doesn't have it, keep scanning
	statusExists
	statusDeleted // whiteout: shadows deeper branches
	statusNoPerm  // EACCES: shadows deeper branches
	statusInvalid // ENOTDIR: shadows deeper branches
)

// UnionFS stacks multiple branches, addressed by rank (smaller rank
// means higher priority). Reads scan branches ascending by rank and
// stop at the first one that resolves the path, or at the first one
// that shadows deeper branches via a whiteout, a permission error, or a
// path-component type error. Writes go through copy-up into the
// lowest-rank writable branch (see unionfs_copyup.go). A UnionFS with
// no writable branches is itself read-only.
type UnionFS struct {
	mu       sync.RWMutex
	branches map[string]*branch
	sorted   []*branch // cached ascending by rank; rebuilt on add/remove
	strict   bool
	cache    *unionCache
}

// NewUnionFS creates an empty UnionFS. In strict mode, a chmod/chown
// failure during copy-up's best-effort metadata replication propagates
// to the caller instead of being silently suppressed.
func NewUnionFS(strict bool) *UnionFS {
	return &UnionFS{
		branches: make(map[string]*branch),
		strict:   strict,
		cache:    newUnionCache(),
	}
}

// AddBranch registers fs under ref. If rank is nil, the branch is
// assigned max(existing ranks)+1. A writable branch must advertise
// FeatureWhiteout and must not advertise FeatureReadOnly. A duplicate
// ref or a rank collision is a *ValidationError, a programmer mistake
// rather than a runtime filesystem failure.
func (u *UnionFS) AddBranch(fs FileSystem, ref string, rank *int, writable bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.branches[ref]; exists {
		return invalidArg("union: branch ref %q already registered", ref)
	}

	if writable {
		if fs.HasFeature(FeatureReadOnly) {
			return invalidArg("union: writable branch %q must not be read-only", ref)
		}
		if !fs.HasFeature(FeatureWhiteout) {
			return invalidArg("union: writable branch %q must advertise whiteout support", ref)
		}
	}

	r := u.nextRankLocked()
	if rank != nil {
		r = *rank
		for _, b := range u.branches {
			if b.rank == r {
				return invalidArg("union: rank %d already used by branch %q", r, b.ref)
			}
		}
	}

	u.branches[ref] = &branch{fs: fs, ref: ref, rank: r, writable: writable}
	u.sorted = nil
	u.cache.clear()
	return nil
}

func (u *UnionFS) nextRankLocked() int {
	max := -1
	for _, b := range u.branches {
		if b.rank > max {
			max = b.rank
		}
	}
	return max + 1
}

// RemoveBranch unregisters the branch known by ref, if any.
func (u *UnionFS) RemoveBranch(ref string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.branches, ref)
	u.sorted = nil
	u.cache.clear()
}

// sortedBranchesLocked returns the cached ascending-by-rank branch
// list, rebuilding it if the branch table changed since the last
// build. The caller must already hold u.mu (read or write).
func (u *UnionFS) sortedBranchesLocked() []*branch {
	if u.sorted != nil {
		return u.sorted
	}
	out := make([]*branch, 0, len(u.branches))
	for _, b := range u.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank < out[j].rank })
	u.sorted = out
	return out
}

// firstWritableLocked returns the lowest-rank writable branch. Behavior
// with more than one writable branch is unspecified beyond "pick the
// first in rank order".
func (u *UnionFS) firstWritableLocked() *branch {
	for _, b := range u.sortedBranchesLocked() {
		if b.writable {
			return b
		}
	}
	return nil
}

func statusOf(b *branch, path string) (Stat, branchStatus) {
	st, err := b.fs.Stat(path)
	if err == nil {
		return st, statusExists
	}
	switch {
	case IsDeleted(err):
		return Stat{}, statusDeleted
	case IsKind(err, EACCES):
		return Stat{}, statusNoPerm
	case IsKind(err, ENOTDIR):
		return Stat{}, statusInvalid
	default:
		return Stat{}, statusUnknown
	}
}

// resolveBranchLocked scans branches ascending by rank and returns the
// first one whose Stat succeeds, along with that Stat. A DELETED,
// NOPERM or INVALID status halts the scan and is surfaced as the
// corresponding error instead of falling through to a lower branch.
// The caller must hold u.mu.
func (u *UnionFS) resolveBranchLocked(op, path string) (*branch, Stat, error) {
	if ref, st, ok := u.cache.getPositive(path); ok {
		if b, ok := u.branches[ref]; ok {
			return b, st, nil
		}
	}
	if err, ok := u.cache.getNegative(path); ok {
		return nil, Stat{}, relabelErr(err, op, path)
	}

	for _, b := range u.sortedBranchesLocked() {
		st, status := statusOf(b, path)
		switch status {
		case statusExists:
			u.cache.putPositive(path, b.ref, st)
			return b, st, nil
		case statusDeleted:
			err := NewDeleted(op, path)
			u.cache.putNegative(path, err)
			return nil, Stat{}, err
		case statusNoPerm:
			err := New(op, path, EACCES)
			u.cache.putNegative(path, err)
			return nil, Stat{}, err
		case statusInvalid:
			err := New(op, path, ENOTDIR)
			u.cache.putNegative(path, err)
			return nil, Stat{}, err
		}
	}
	err := New(op, path, ENOENT)
	u.cache.putNegative(path, err)
	return nil, Stat{}, err
}

// relabelErr reapplies op and path to a cached *Error so the returned
// error names the operation that actually missed the cache, not
// whichever operation first populated it.
func relabelErr(err error, op, path string) error {
	if e, ok := err.(*Error); ok {
		return &Error{Op: op, Path: path, Kind: e.Kind}
	}
	return err
}

func (u *UnionFS) Access(path string, mask AccessMask) bool {
	path = CleanPath(path)
	u.mu.RLock()
	defer u.mu.RUnlock()

	b, _, err := u.resolveBranchLocked("access", path)
	if err != nil {
		return false
	}
	return b.fs.Access(path, mask)
}

func (u *UnionFS) Stat(path string) (Stat, error) {
	path = CleanPath(path)
	u.mu.RLock()
	defer u.mu.RUnlock()

	_, st, err := u.resolveBranchLocked("stat", path)
	return st, err
}

func (u *UnionFS) Lstat(path string) (Stat, error) {
	path = CleanPath(path)
	u.mu.RLock()
	defer u.mu.RUnlock()

	b, _, err := u.resolveBranchLocked("lstat", path)
	if err != nil {
		return Stat{}, err
	}
	return b.fs.Lstat(path)
}

func (u *UnionFS) Readlink(path string) (string, error) {
	path = CleanPath(path)
	u.mu.RLock()
	defer u.mu.RUnlock()

	b, _, err := u.resolveBranchLocked("readlink", path)
	if err != nil {
		return "", err
	}
	return b.fs.Readlink(path)
}

func (u *UnionFS) OpenBinary(path string, mode string) (File, error) {
	path = CleanPath(path)
	if IsReadOnlyMode(mode) {
		u.mu.RLock()
		defer u.mu.RUnlock()
		b, _, err := u.resolveBranchLocked("open", path)
		if err != nil {
			return nil, err
		}
		return b.fs.OpenBinary(path, mode)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	target, err := u.copyUpLocked(path, existAny)
	if err != nil {
		return nil, err
	}
	return target.fs.OpenBinary(path, mode)
}

func (u *UnionFS) OpenText(path string, mode string, encoding string) (TextFile, error) {
	path = CleanPath(path)
	if IsReadOnlyMode(mode) {
		u.mu.RLock()
		defer u.mu.RUnlock()
		b, _, err := u.resolveBranchLocked("open", path)
		if err != nil {
			return nil, err
		}
		return b.fs.OpenText(path, mode, encoding)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	target, err := u.copyUpLocked(path, existAny)
	if err != nil {
		return nil, err
	}
	return target.fs.OpenText(path, mode, encoding)
}

func (u *UnionFS) Chmod(path string, mode os.FileMode) error {
	path = CleanPath(path)
	u.mu.Lock()
	defer u.mu.Unlock()

	target, err := u.copyUpLocked(path, existYes)
	if err != nil {
		return err
	}
	return target.fs.Chmod(path, mode)
}

func (u *UnionFS) Chown(path string, uid, gid int) error {
	path = CleanPath(path)
	u.mu.Lock()
	defer u.mu.Unlock()

	target, err := u.copyUpLocked(path, existYes)
	if err != nil {
		return err
	}
	return target.fs.Chown(path, uid, gid)
}

func (u *UnionFS) Mkdir(path string, perm os.FileMode) error {
	path = CleanPath(path)
	u.mu.Lock()
	defer u.mu.Unlock()

	target, err := u.copyUpLocked(path, existNo)
	if err != nil {
		return err
	}
	return target.fs.Mkdir(path, perm)
}

func (u *UnionFS) Symlink(link, target string) error {
	link = CleanPath(link)
	u.mu.Lock()
	defer u.mu.Unlock()

	b, err := u.copyUpLocked(link, existNo)
	if err != nil {
		return err
	}
	return b.fs.Symlink(link, target)
}

func (u *UnionFS) Unlink(path string) error {
	path = CleanPath(path)
	u.mu.Lock()
	defer u.mu.Unlock()

	target, err := u.copyUpLocked(path, existYes)
	if err != nil {
		return err
	}
	return target.fs.Unlink(path)
}

func (u *UnionFS) Rmdir(path string) error {
	path = CleanPath(path)
	u.mu.Lock()
	defer u.mu.Unlock()

	target, err := u.copyUpLocked(path, existYes)
	if err != nil {
		return err
	}
	return target.fs.Rmdir(path)
}

// HasFeature reports FeatureReadOnly iff no branch is writable; a
// writable union is never read-only regardless of its branches'
// individual features. FeatureWhiteout is reported if any branch
// advertises it (unlike MountFS, which requires every mount to).
func (u *UnionFS) HasFeature(f Feature) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if f == FeatureReadOnly {
		return u.firstWritableLocked() == nil
	}
	for _, b := range u.sortedBranchesLocked() {
		if b.fs.HasFeature(f) {
			return true
		}
	}
	return false
}

var _ FileSystem = (*UnionFS)(nil)
