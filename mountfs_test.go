package layerfs

import "testing"

func TestMountFSFirstMountMustBeRoot(t *testing.T) {
	m := NewMountFS()
	if err := m.Mount("/data", newTestMemoryFS(0o022)); err == nil {
		t.Fatalf("expected error mounting a non-root path first")
	}
	if err := m.Mount(Root, newTestMemoryFS(0o022)); err != nil {
		t.Fatalf("mount root: %v", err)
	}
}

func TestMountFSRoutesLongestPrefix(t *testing.T) {
	m := NewMountFS()
	root := newTestMemoryFS(0o022)
	data := newTestMemoryFS(0o022)
	if err := m.Mount(Root, root); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	if err := root.Mkdir("/data", 0o755); err != nil {
		t.Fatalf("mkdir /data on root fs: %v", err)
	}
	if err := m.Mount("/data", data); err != nil {
		t.Fatalf("mount /data: %v", err)
	}

	writeTestFile(t, data, "/f.txt", []byte("from data mount"))
	writeTestFile(t, root, "/top.txt", []byte("from root mount"))

	got := readTestFile(t, m, "/data/f.txt")
	if string(got) != "from data mount" {
		t.Errorf("got %q, want %q", got, "from data mount")
	}
	got = readTestFile(t, m, "/top.txt")
	if string(got) != "from root mount" {
		t.Errorf("got %q, want %q", got, "from root mount")
	}
}

func TestMountFSUnmountRejectsNonMountPoint(t *testing.T) {
	m := NewMountFS()
	if err := m.Mount(Root, newTestMemoryFS(0o022)); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	if err := m.Unmount("/not-a-mount"); !IsKind(err, EINVAL) {
		t.Fatalf("expected EINVAL, got %v", err)
	}
}

func TestMountFSUnmountRootWithChildMountsFails(t *testing.T) {
	m := NewMountFS()
	root := newTestMemoryFS(0o022)
	if err := m.Mount(Root, root); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	if err := root.Mkdir("/data", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := m.Mount("/data", newTestMemoryFS(0o022)); err != nil {
		t.Fatalf("mount /data: %v", err)
	}
	if err := m.Unmount(Root); !IsKind(err, EINVAL) {
		t.Fatalf("expected EINVAL unmounting root with mounts beneath it, got %v", err)
	}
}

func TestMountFSRmdirBlocksMountPoint(t *testing.T) {
	m := NewMountFS()
	root := newTestMemoryFS(0o022)
	if err := m.Mount(Root, root); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	if err := root.Mkdir("/data", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := m.Mount("/data", newTestMemoryFS(0o022)); err != nil {
		t.Fatalf("mount /data: %v", err)
	}
	if err := m.Rmdir("/data"); !IsKind(err, EBUSY) {
		t.Fatalf("expected EBUSY removing a mount point, got %v", err)
	}
}

func TestMountFSSymlinkWithinSameMount(t *testing.T) {
	m := NewMountFS()
	root := newTestMemoryFS(0o022)
	if err := m.Mount(Root, root); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	writeTestFile(t, root, "/real.txt", []byte("hi"))

	if err := m.Symlink("/link.txt", "/real.txt"); err != nil {
		t.Fatalf("symlink within same mount: %v", err)
	}
	target, err := m.Readlink("/link.txt")
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != "/real.txt" {
		t.Errorf("got target %q, want %q", target, "/real.txt")
	}
}

func TestMountFSSymlinkRelativeTargetPassesThrough(t *testing.T) {
	m := NewMountFS()
	root := newTestMemoryFS(0o022)
	if err := m.Mount(Root, root); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	if err := m.Symlink("/rel-link.txt", "real.txt"); err != nil {
		t.Fatalf("symlink with relative target: %v", err)
	}
	target, err := m.Readlink("/rel-link.txt")
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != "real.txt" {
		t.Errorf("got target %q, want %q", target, "real.txt")
	}
}

func TestMountFSSymlinkRejectsCrossMountTarget(t *testing.T) {
	m := NewMountFS()
	root := newTestMemoryFS(0o022)
	if err := m.Mount(Root, root); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	if err := root.Mkdir("/data", 0o755); err != nil {
		t.Fatalf("mkdir /data on root fs: %v", err)
	}
	data := newTestMemoryFS(0o022)
	if err := m.Mount("/data", data); err != nil {
		t.Fatalf("mount /data: %v", err)
	}
	writeTestFile(t, data, "/f.txt", []byte("on data mount"))

	err := m.Symlink("/top-link.txt", "/data/f.txt")
	if !IsKind(err, EINVAL) {
		t.Fatalf("expected EINVAL for cross-mount symlink target, got %v", err)
	}
}

func TestMountFSListdirSynthesizesMountEntries(t *testing.T) {
	m := NewMountFS()
	root := newTestMemoryFS(0o022)
	if err := m.Mount(Root, root); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	// /mnt doesn't exist on the root fs at all, but a mount is registered there.
	if err := m.Mount("/mnt", newTestMemoryFS(0o022)); err != nil {
		t.Fatalf("mount /mnt: %v", err)
	}

	names, err := m.Listdir("/")
	if err != nil {
		t.Fatalf("listdir: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "mnt" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected synthetic 'mnt' entry, got %v", names)
	}
}
