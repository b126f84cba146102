/*
Package layerfs implements a composable virtual filesystem: a small,
uniform FileSystem contract with several independent implementations
that stack on top of each other to build up POSIX-like semantics —
read-only layers, whiteout-based deletion over a lower layer, branch
unioning with copy-on-write, prefix-routed mounts, an OS passthrough,
and a read-only tar-archive view.

# Overview

Every concrete filesystem in this package — MemoryFS, OSFS, TarFS,
ReadOnlyFS, ChrootFS, WhiteoutFS, UnionFS, MountFS — implements the
same FileSystem interface. Because the interface is uniform, any of
these can wrap or be wrapped by any other: a UnionFS branch can be a
WhiteoutFS over a MemoryFS, which can itself be one leaf of a MountFS,
which can in turn be the backend of a Facade.

# Basic Usage

	package main

	import "github.com/go-layerfs/layerfs"

	func main() {
	    mem := layerfs.NewMemoryFS(0o022, 0, 0)
	    fc := layerfs.NewFacade(mem, "")

	    fc.MakeDirs("/etc/app", 0o755)
	    fc.WriteLines("/etc/app/config.yml", []string{"key: value"})
	    lines, _ := fc.ReadLines("/etc/app/config.yml")
	}

# Layered Composition

A read-only base with a writable overlay, the most common arrangement:

	base := layerfs.NewMemoryFS(0o022, 0, 0)      // seeded once, never written again
	overlay := layerfs.NewWhiteoutFS(layerfs.NewMemCache(), layerfs.NewMemoryFS(0o022, 0, 0))

	u := layerfs.NewUnionFS(false)
	u.AddBranch(overlay, "overlay", nil, true)   // writable; first added, so rank 0 (highest priority)
	u.AddBranch(base, "base", nil, false)

Reads fall through branches in ascending rank order; the first branch
where the path resolves (and isn't shadowed by a whiteout in a
higher-priority branch) wins. Writes always land in the first writable
branch, copying the object up from wherever it was found first.

# Copy-on-Write

Modifying a path that currently resolves to a lower, non-writable
branch copies that object — its bytes for a regular file, its target
for a symlink, an empty directory for a directory — into the topmost
writable branch before the modification proceeds. The lower branch's
copy is untouched:

	u.OpenBinary("/config.txt", "r+b") // copies /config.txt into overlay first

# Whiteouts

Deleting a path that only exists in a lower, read-only branch cannot
remove it there; instead the union copies it up into the writable
WhiteoutFS branch, which records a tombstone in its cache that shadows
the path for every future lookup, without touching the lower branch's
own storage:

	u.Unlink("/file.txt")               // copies up, then records a whiteout in overlay; base untouched
	u.Stat("/file.txt")                 // ENOENT — shadowed by the whiteout
	base.Stat("/file.txt")              // still succeeds directly against base

# Directory Merging

Listdir merges entries from every branch that participates at a given
path, in ascending rank order, stopping at the first branch that
shadows everything beneath it (a non-directory entry, or — for
per-child entries — a whiteout recorded in a higher-priority branch).

# Mounting

MountFS composes filesystems by path prefix rather than by priority:

	m := layerfs.NewMountFS()
	m.Mount("/", rootFS)
	m.Mount("/data", dataFS)

	m.Stat("/data/report.csv") // resolved against dataFS as "/report.csv"

# Compatibility

compat.go adapts any FileSystem to absfs.FileSystem (via AbsFiler) and
afero.Fs (via AferoFS), so layerfs stacks can be handed to code written
against either ecosystem.

# Thread Safety

UnionFS and MountFS guard their branch/mount tables with a RWMutex;
MemoryFS guards its node tree the same way. Concurrent reads do not
block each other; structural writes (AddBranch, Mount, Mkdir, ...) do.

# Limitations

  - Rename, where offered via the compatibility adapters, only moves a
    regular file or symlink; renaming a directory returns EINVAL, since
    the core FileSystem contract has no native move primitive to build
    a recursive one on top of.
  - MountFS.Symlink rewrites an absolute target into the link's own
    mount and rejects, with EINVAL, a target that lies in a different
    mount; Readlink returns the target as the mounted filesystem
    stores it, without translating it back.
*/
package layerfs
