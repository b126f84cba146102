package layerfs

import "testing"

func TestUnionFSListdirMergesBranches(t *testing.T) {
	u, overlay, base := newTestUnion(t)
	if err := base.Mkdir("/dir", 0o755); err != nil {
		t.Fatalf("mkdir base: %v", err)
	}
	writeTestFile(t, base, "/dir/base-only.txt", []byte("b"))
	writeTestFile(t, base, "/dir/shared.txt", []byte("base"))

	if err := overlay.Mkdir("/dir", 0o755); err != nil {
		t.Fatalf("mkdir overlay: %v", err)
	}
	writeTestFile(t, overlay, "/dir/overlay-only.txt", []byte("o"))
	writeTestFile(t, overlay, "/dir/shared.txt", []byte("overlay"))

	names, err := u.Listdir("/dir")
	if err != nil {
		t.Fatalf("listdir: %v", err)
	}
	want := map[string]bool{"base-only.txt": true, "overlay-only.txt": true, "shared.txt": true}
	if len(names) != len(want) {
		t.Fatalf("got %v, want keys of %v", names, want)
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected entry %q", n)
		}
	}
}

func TestUnionFSListdirHidesWhitedOutChild(t *testing.T) {
	u, overlay, base := newTestUnion(t)
	if err := base.Mkdir("/dir", 0o755); err != nil {
		t.Fatalf("mkdir base: %v", err)
	}
	writeTestFile(t, base, "/dir/a.txt", []byte("a"))
	writeTestFile(t, base, "/dir/b.txt", []byte("b"))

	if err := overlay.Mkdir("/dir", 0o755); err != nil {
		t.Fatalf("mkdir overlay: %v", err)
	}
	if err := u.Unlink("/dir/a.txt"); err != nil {
		t.Fatalf("whiteout a.txt: %v", err)
	}

	names, err := u.Listdir("/dir")
	if err != nil {
		t.Fatalf("listdir: %v", err)
	}
	if len(names) != 1 || names[0] != "b.txt" {
		t.Fatalf("expected [b.txt], got %v", names)
	}
}
