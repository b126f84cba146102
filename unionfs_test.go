package layerfs

import "testing"

// newTestUnion builds a two-branch union: a writable overlay (rank 0)
// over a read-only base (rank 1), mirroring the copy-on-write stack
// described in doc.go.
func newTestUnion(t *testing.T) (*UnionFS, FileSystem, FileSystem) {
	t.Helper()
	overlay := NewWhiteoutFS(NewMemCache(), newTestMemoryFS(0o022))
	base := newTestMemoryFS(0o022)

	u := NewUnionFS(false)
	if err := u.AddBranch(overlay, "overlay", nil, true); err != nil {
		t.Fatalf("add overlay: %v", err)
	}
	if err := u.AddBranch(base, "base", nil, false); err != nil {
		t.Fatalf("add base: %v", err)
	}
	return u, overlay, base
}

func TestUnionFSReadsFallThroughToBase(t *testing.T) {
	u, _, base := newTestUnion(t)
	writeTestFile(t, base, "/only-in-base.txt", []byte("base content"))

	got := readTestFile(t, u, "/only-in-base.txt")
	if string(got) != "base content" {
		t.Errorf("got %q, want %q", got, "base content")
	}
}

func TestUnionFSOverlayShadowsBase(t *testing.T) {
	u, overlay, base := newTestUnion(t)
	writeTestFile(t, base, "/shared.txt", []byte("base version"))
	writeTestFile(t, overlay, "/shared.txt", []byte("overlay version"))

	got := readTestFile(t, u, "/shared.txt")
	if string(got) != "overlay version" {
		t.Errorf("got %q, want %q", got, "overlay version")
	}
}

func TestUnionFSWriteTriggersCopyUp(t *testing.T) {
	u, overlay, base := newTestUnion(t)
	writeTestFile(t, base, "/f.txt", []byte("original"))

	writeTestFile(t, u, "/f.txt", []byte("modified"))

	got := readTestFile(t, overlay, "/f.txt")
	if string(got) != "modified" {
		t.Errorf("expected copy-up to land in overlay, got %q", got)
	}
	baseContent := readTestFile(t, base, "/f.txt")
	if string(baseContent) != "original" {
		t.Errorf("expected base branch untouched, got %q", baseContent)
	}
}

func TestUnionFSUnlinkShadowsBaseEntry(t *testing.T) {
	u, _, base := newTestUnion(t)
	writeTestFile(t, base, "/f.txt", []byte("x"))

	if err := u.Unlink("/f.txt"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if _, err := u.Stat("/f.txt"); !IsNotExist(err) {
		t.Fatalf("expected not-exist after union-level unlink, got %v", err)
	}
	// the base branch itself is untouched; the overlay records the
	// deletion as a whiteout.
	if _, err := base.Stat("/f.txt"); err != nil {
		t.Errorf("expected base file to survive, got %v", err)
	}
}

func TestUnionFSRejectsWritableBranchWithoutWhiteout(t *testing.T) {
	u := NewUnionFS(false)
	plain := newTestMemoryFS(0o022)
	if err := u.AddBranch(plain, "plain", nil, true); err == nil {
		t.Fatalf("expected error registering a writable branch without whiteout support")
	}
}

func TestUnionFSRejectsDuplicateRef(t *testing.T) {
	u, _, _ := newTestUnion(t)
	if err := u.AddBranch(newTestMemoryFS(0o022), "overlay", nil, false); err == nil {
		t.Fatalf("expected error re-registering ref %q", "overlay")
	}
}

func TestUnionFSAllReadOnlyBranchesMeansReadOnly(t *testing.T) {
	u := NewUnionFS(false)
	if err := u.AddBranch(newTestMemoryFS(0o022), "a", nil, false); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !u.HasFeature(FeatureReadOnly) {
		t.Errorf("expected union with no writable branch to report FeatureReadOnly")
	}
}

func TestUnionFSWritableMeansNotReadOnly(t *testing.T) {
	u, _, _ := newTestUnion(t)
	if u.HasFeature(FeatureReadOnly) {
		t.Errorf("expected union with a writable branch to not report FeatureReadOnly")
	}
}
