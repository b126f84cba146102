package layerfs

import (
	"io"
	"time"
)

// existExpect is the existence precondition a write operation imposes
// on the union's merged view of a path, evaluated before copy-up does
// any work.
type existExpect int

const (
	existAny existExpect = iota // no constraint (open with a creating mode)
	existYes                    // path must already resolve (chmod, chown, unlink, rmdir)
	existNo                     // path must not already resolve (mkdir, symlink)
)

// chtimer is implemented by branches (MemoryFS) that can replicate
// timestamps during copy-up. A branch without it just gets its mtime
// left at creation time.
type chtimer interface {
	Chtimes(path string, atime, mtime time.Time) error
}

// copyUpLocked is the three-phase copy-up described by spec §4.5:
// enforce the caller's existence expectation against the union's
// merged view, recreate path's parent-directory chain inside the
// lowest-rank writable branch, and replicate path's current object
// (if any, and if it isn't already in that branch) into it. The caller
// then performs its actual mutation directly against the returned
// branch. u.mu must be held for writing.
func (u *UnionFS) copyUpLocked(path string, expect existExpect) (*branch, error) {
	target := u.firstWritableLocked()
	if target == nil {
		return nil, New("write", path, EROFS)
	}

	owner, _, resolveErr := u.resolveBranchLocked("write", path)

	switch expect {
	case existYes:
		if resolveErr != nil {
			return nil, resolveErr
		}
	case existNo:
		if resolveErr == nil {
			return nil, New("write", path, EEXIST)
		}
		if !IsNotExist(resolveErr) {
			return nil, resolveErr
		}
	case existAny:
		if resolveErr != nil && !IsNotExist(resolveErr) {
			return nil, resolveErr
		}
	}

	if err := u.ensureParentChainLocked(target, path); err != nil {
		return nil, err
	}

	if resolveErr == nil && owner != target {
		if err := u.replicateLocked(target, owner, path); err != nil {
			return nil, err
		}
	}

	u.cache.invalidate(path)
	u.cache.invalidateTree(ParentPath(path))
	return target, nil
}

// ensureParentChainLocked recreates, inside target, every ancestor
// directory of path that the union's merged view says should exist but
// target itself doesn't yet have. It fails with the union's own error
// if path's immediate parent doesn't resolve to a directory at all.
func (u *UnionFS) ensureParentChainLocked(target *branch, path string) error {
	parent := ParentPath(path)
	if parent == Root {
		return nil
	}

	_, parentStat, err := u.resolveBranchLocked("write", parent)
	if err != nil {
		return err
	}
	if !parentStat.IsDir() {
		return New("write", path, ENOTDIR)
	}

	for _, anc := range Ancestors(parent)[1:] {
		if _, err := target.fs.Stat(anc); err == nil {
			continue
		}
		_, ancStat, err := u.resolveBranchLocked("write", anc)
		if err != nil {
			return err
		}
		if err := target.fs.Mkdir(anc, ancStat.Perm()); err != nil && !IsKind(err, EEXIST) {
			return err
		}
		if err := u.replicateMetadataLocked(target, anc, ancStat); err != nil {
			return err
		}
	}
	return nil
}

// replicateLocked copies the object currently at path in owner into
// target, preserving its kind (directory, symlink or regular file) and
// best-effort metadata. It consults owner's Lstat, not the (possibly
// symlink-following) Stat used for union-level existence checks, so a
// symlink is replicated as a symlink rather than as its target's
// content.
func (u *UnionFS) replicateLocked(target, owner *branch, path string) error {
	lst, err := owner.fs.Lstat(path)
	if err != nil {
		return err
	}

	switch {
	case lst.IsDir():
		if err := target.fs.Mkdir(path, lst.Perm()); err != nil && !IsKind(err, EEXIST) {
			return err
		}
	case lst.IsSymlink():
		linkTarget, err := owner.fs.Readlink(path)
		if err != nil {
			return err
		}
		if err := target.fs.Symlink(path, linkTarget); err != nil && !IsKind(err, EEXIST) {
			return err
		}
	default:
		if err := u.copyFileContentsLocked(target, owner, path); err != nil {
			return err
		}
	}
	return u.replicateMetadataLocked(target, path, lst)
}

func (u *UnionFS) copyFileContentsLocked(target, owner *branch, path string) error {
	src, err := owner.fs.OpenBinary(path, "rb")
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := target.fs.OpenBinary(path, "wb")
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// replicateMetadataLocked mirrors mode, ownership and timestamps onto
// an already-created object in target. Failures are suppressed unless
// u.strict, since metadata fidelity is best-effort: a target branch
// that rejects chown (e.g. it isn't running as root) shouldn't abort an
// otherwise-successful copy-up.
func (u *UnionFS) replicateMetadataLocked(target *branch, path string, st Stat) error {
	if err := target.fs.Chmod(path, st.Perm()); err != nil && u.strict {
		return err
	}
	if err := target.fs.Chown(path, st.Uid, st.Gid); err != nil && u.strict {
		return err
	}
	if ct, ok := target.fs.(chtimer); ok {
		if err := ct.Chtimes(path, st.Atime, st.Mtime); err != nil && u.strict {
			return err
		}
	}
	return nil
}
