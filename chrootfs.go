package layerfs

import (
	"os"
	"strings"
)

// ChrootFS rewrites paths between an external namespace and an internal
// one before forwarding to the wrapped filesystem. Any path outside
// externalRoot is rejected with EACCES on the way in, and an absolute
// target that Symlink is asked to store is translated the same way. A
// path that Readlink reports back undergoes the inverse substitution,
// failing EACCES if it falls outside internalRoot. A relative symlink target is left
// untranslated, since it resolves against the link's own directory
// rather than naming an absolute path in either namespace.
type ChrootFS struct {
	inner        FileSystem
	externalRoot string
	internalRoot string
}

// NewChrootFS wraps inner so that paths under externalRoot are
// presented to callers, while the wrapped filesystem actually sees
// internalRoot in their place.
func NewChrootFS(inner FileSystem, externalRoot, internalRoot string) *ChrootFS {
	return &ChrootFS{
		inner:        inner,
		externalRoot: CleanPath(externalRoot),
		internalRoot: CleanPath(internalRoot),
	}
}

// in translates an incoming (external) path to the wrapped filesystem's
// internal namespace.
func (c *ChrootFS) in(op, path string) (string, error) {
	path = CleanPath(path)
	if !IsAncestor(c.externalRoot, path) {
		return "", New(op, path, EACCES)
	}
	rel := RelativePath(c.externalRoot, path)
	return JoinPath(c.internalRoot, rel), nil
}

// out translates an outgoing (internal) path back to the external
// namespace, the inverse of in. A path outside internalRoot — one the
// wrapped filesystem reports but that does not actually live under the
// chroot — is rejected with EACCES rather than leaked to the caller.
func (c *ChrootFS) out(op, path string) (string, error) {
	path = CleanPath(path)
	if !IsAncestor(c.internalRoot, path) {
		return "", New(op, path, EACCES)
	}
	rel := RelativePath(c.internalRoot, path)
	return JoinPath(c.externalRoot, rel), nil
}

func (c *ChrootFS) Access(path string, mask AccessMask) bool {
	inner, err := c.in("access", path)
	if err != nil {
		return false
	}
	return c.inner.Access(inner, mask)
}

func (c *ChrootFS) Stat(path string) (Stat, error) {
	inner, err := c.in("stat", path)
	if err != nil {
		return Stat{}, err
	}
	return c.inner.Stat(inner)
}

func (c *ChrootFS) Lstat(path string) (Stat, error) {
	inner, err := c.in("lstat", path)
	if err != nil {
		return Stat{}, err
	}
	return c.inner.Lstat(inner)
}

func (c *ChrootFS) Listdir(path string) ([]string, error) {
	inner, err := c.in("listdir", path)
	if err != nil {
		return nil, err
	}
	return c.inner.Listdir(inner)
}

func (c *ChrootFS) Readlink(path string) (string, error) {
	inner, err := c.in("readlink", path)
	if err != nil {
		return "", err
	}
	target, err := c.inner.Readlink(inner)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(target, "/") {
		return target, nil
	}
	return c.out("readlink", target)
}

func (c *ChrootFS) OpenBinary(path string, mode string) (File, error) {
	inner, err := c.in("open", path)
	if err != nil {
		return nil, err
	}
	return c.inner.OpenBinary(inner, mode)
}

func (c *ChrootFS) OpenText(path string, mode string, encoding string) (TextFile, error) {
	inner, err := c.in("open", path)
	if err != nil {
		return nil, err
	}
	return c.inner.OpenText(inner, mode, encoding)
}

func (c *ChrootFS) Chmod(path string, mode os.FileMode) error {
	inner, err := c.in("chmod", path)
	if err != nil {
		return err
	}
	return c.inner.Chmod(inner, mode)
}

func (c *ChrootFS) Chown(path string, uid, gid int) error {
	inner, err := c.in("chown", path)
	if err != nil {
		return err
	}
	return c.inner.Chown(inner, uid, gid)
}

func (c *ChrootFS) Mkdir(path string, perm os.FileMode) error {
	inner, err := c.in("mkdir", path)
	if err != nil {
		return err
	}
	return c.inner.Mkdir(inner, perm)
}

func (c *ChrootFS) Symlink(link, target string) error {
	innerLink, err := c.in("symlink", link)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(target, "/") {
		return c.inner.Symlink(innerLink, target)
	}
	innerTarget, err := c.in("symlink", target)
	if err != nil {
		return err
	}
	return c.inner.Symlink(innerLink, innerTarget)
}

func (c *ChrootFS) Rmdir(path string) error {
	inner, err := c.in("rmdir", path)
	if err != nil {
		return err
	}
	return c.inner.Rmdir(inner)
}

func (c *ChrootFS) Unlink(path string) error {
	inner, err := c.in("unlink", path)
	if err != nil {
		return err
	}
	return c.inner.Unlink(inner)
}

func (c *ChrootFS) HasFeature(f Feature) bool {
	return c.inner.HasFeature(f)
}

var _ FileSystem = (*ChrootFS)(nil)
