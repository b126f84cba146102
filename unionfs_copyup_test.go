package layerfs

import "testing"

func TestCopyUpRecreatesParentChain(t *testing.T) {
	u, overlay, base := newTestUnion(t)
	if err := base.Mkdir("/a", 0o755); err != nil {
		t.Fatalf("mkdir /a: %v", err)
	}
	if err := base.Mkdir("/a/b", 0o750); err != nil {
		t.Fatalf("mkdir /a/b: %v", err)
	}
	writeTestFile(t, base, "/a/b/f.txt", []byte("base"))

	writeTestFile(t, u, "/a/b/f.txt", []byte("modified"))

	if _, err := overlay.Stat("/a"); err != nil {
		t.Errorf("expected /a recreated in overlay, got %v", err)
	}
	if _, err := overlay.Stat("/a/b"); err != nil {
		t.Errorf("expected /a/b recreated in overlay, got %v", err)
	}
	got := readTestFile(t, overlay, "/a/b/f.txt")
	if string(got) != "modified" {
		t.Errorf("got %q, want %q", got, "modified")
	}
}

func TestCopyUpSymlinkReplicatesAsSymlink(t *testing.T) {
	u, overlay, base := newTestUnion(t)
	writeTestFile(t, base, "/target.txt", []byte("real"))
	if err := base.Symlink("/link.txt", "/target.txt"); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if err := u.Chmod("/link.txt", 0o644); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	lst, err := overlay.Lstat("/link.txt")
	if err != nil {
		t.Fatalf("expected symlink replicated into overlay, got %v", err)
	}
	if !lst.IsSymlink() {
		t.Errorf("expected replicated object to still be a symlink")
	}
}

func TestCopyUpNoopWhenAlreadyInTargetBranch(t *testing.T) {
	u, overlay, _ := newTestUnion(t)
	writeTestFile(t, overlay, "/f.txt", []byte("already here"))

	writeTestFile(t, u, "/f.txt", []byte("updated"))

	got := readTestFile(t, overlay, "/f.txt")
	if string(got) != "updated" {
		t.Errorf("got %q, want %q", got, "updated")
	}
}

func TestMkdirExistYesExistNoExpectations(t *testing.T) {
	u, _, base := newTestUnion(t)
	if err := base.Mkdir("/dir", 0o755); err != nil {
		t.Fatalf("mkdir base: %v", err)
	}

	if err := u.Mkdir("/dir", 0o755); !IsKind(err, EEXIST) {
		t.Fatalf("expected EEXIST creating a dir that already resolves, got %v", err)
	}

	if err := u.Chmod("/missing", 0o644); !IsNotExist(err) {
		t.Fatalf("expected not-exist chmodding a path that doesn't resolve, got %v", err)
	}
}
