package layerfs

import "testing"

func newTestWhiteoutFS() (*MemoryFS, *WhiteoutFS) {
	mem := newTestMemoryFS(0o022)
	return mem, NewWhiteoutFS(NewMemCache(), mem)
}

func TestWhiteoutFSUnlinkMarksDeletedObject(t *testing.T) {
	mem, w := newTestWhiteoutFS()
	writeTestFile(t, mem, "/f.txt", []byte("x"))

	if err := w.Unlink("/f.txt"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	_, err := w.Stat("/f.txt")
	if !IsDeleted(err) {
		t.Fatalf("expected DeletedObject error, got %v", err)
	}
	// still ENOENT-like for generic callers
	if !IsNotExist(err) {
		t.Errorf("DeletedObject should still satisfy IsNotExist")
	}

	// the inner filesystem is untouched: deletes never reach it.
	if _, err := mem.Stat("/f.txt"); err != nil {
		t.Errorf("expected inner file to survive unlink through WhiteoutFS, got %v", err)
	}
}

func TestWhiteoutFSResurrection(t *testing.T) {
	mem, w := newTestWhiteoutFS()
	writeTestFile(t, mem, "/f.txt", []byte("old"))

	if err := w.Unlink("/f.txt"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	writeTestFile(t, w, "/f.txt", []byte("new"))

	got := readTestFile(t, w, "/f.txt")
	if string(got) != "new" {
		t.Errorf("got %q after resurrection, want %q", got, "new")
	}
}

func TestWhiteoutFSListdirHidesMarkedEntries(t *testing.T) {
	mem, w := newTestWhiteoutFS()
	if err := mem.Mkdir("/dir", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTestFile(t, mem, "/dir/a.txt", []byte("a"))
	writeTestFile(t, mem, "/dir/b.txt", []byte("b"))

	if err := w.Unlink("/dir/a.txt"); err != nil {
		t.Fatalf("unlink: %v", err)
	}

	names, err := w.Listdir("/dir")
	if err != nil {
		t.Fatalf("listdir: %v", err)
	}
	if len(names) != 1 || names[0] != "b.txt" {
		t.Fatalf("expected [b.txt], got %v", names)
	}
}

func TestWhiteoutFSRmdirRequiresEmpty(t *testing.T) {
	mem, w := newTestWhiteoutFS()
	if err := mem.Mkdir("/dir", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTestFile(t, mem, "/dir/a.txt", []byte("a"))

	if err := w.Rmdir("/dir"); !IsKind(err, ENOTEMPTY) {
		t.Fatalf("expected ENOTEMPTY, got %v", err)
	}

	if err := w.Unlink("/dir/a.txt"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if err := w.Rmdir("/dir"); err != nil {
		t.Fatalf("rmdir after emptying via whiteout: %v", err)
	}
	if _, err := w.Stat("/dir"); !IsDeleted(err) {
		t.Fatalf("expected DeletedObject on removed dir, got %v", err)
	}
}

func TestWhiteoutFSDescendantShadowedByAncestor(t *testing.T) {
	mem, w := newTestWhiteoutFS()
	if err := mem.Mkdir("/dir", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTestFile(t, mem, "/dir/a.txt", []byte("a"))

	if err := w.Rmdir("/dir"); err == nil {
		t.Fatalf("expected rmdir to fail on non-empty dir before marking")
	}
	if err := w.Unlink("/dir/a.txt"); err != nil {
		t.Fatalf("unlink child: %v", err)
	}
	if err := w.Rmdir("/dir"); err != nil {
		t.Fatalf("rmdir: %v", err)
	}

	if _, err := w.Stat("/dir/a.txt"); !IsDeleted(err) {
		t.Fatalf("expected descendant to be shadowed by ancestor mark, got %v", err)
	}
}
