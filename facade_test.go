package layerfs

import (
	"syscall"
	"testing"
)

func newTestFacade() *Facade {
	return NewOverlay(0o022, syscall.Geteuid(), syscall.Getegid())
}

func TestFacadeMakeDirsCreatesAncestors(t *testing.T) {
	fc := newTestFacade()
	if err := fc.MakeDirs("/a/b/c", 0o755); err != nil {
		t.Fatalf("makedirs: %v", err)
	}
	if !fc.DirExists("/a") || !fc.DirExists("/a/b") || !fc.DirExists("/a/b/c") {
		t.Fatalf("expected every ancestor directory to exist")
	}
}

func TestFacadeWriteLinesAndReadLines(t *testing.T) {
	fc := newTestFacade()
	if err := fc.WriteLines("/notes.txt", []string{"one", "two", "three"}); err != nil {
		t.Fatalf("writelines: %v", err)
	}
	lines, err := fc.ReadLines("/notes.txt")
	if err != nil {
		t.Fatalf("readlines: %v", err)
	}
	want := []string{"one", "two", "three"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestFacadeFileExistsAndDirExists(t *testing.T) {
	fc := newTestFacade()
	if err := fc.MakeDirs("/dir", 0o755); err != nil {
		t.Fatalf("makedirs: %v", err)
	}
	if err := fc.WriteLines("/dir/f.txt", []string{"x"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !fc.FileExists("/dir/f.txt") {
		t.Errorf("expected FileExists true")
	}
	if fc.DirExists("/dir/f.txt") {
		t.Errorf("expected DirExists false for a regular file")
	}
	if !fc.DirExists("/dir") {
		t.Errorf("expected DirExists true for a directory")
	}
}

func TestFacadeCopyMirrorsMode(t *testing.T) {
	fc := newTestFacade()
	if err := fc.WriteLines("/src.txt", []string{"payload"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fc.Chmod("/src.txt", 0o640); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if err := fc.Copy("/src.txt", "/dst.txt", true, false); err != nil {
		t.Fatalf("copy: %v", err)
	}
	st, err := fc.Stat("/dst.txt")
	if err != nil {
		t.Fatalf("stat dst: %v", err)
	}
	if st.Perm() != 0o640 {
		t.Errorf("got mode %o, want %o", st.Perm(), 0o640)
	}
}

func TestFacadeRemoveDispatchesByKind(t *testing.T) {
	fc := newTestFacade()
	if err := fc.MakeDirs("/dir", 0o755); err != nil {
		t.Fatalf("makedirs: %v", err)
	}
	if err := fc.WriteLines("/f.txt", []string{"x"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fc.Remove("/f.txt"); err != nil {
		t.Fatalf("remove file: %v", err)
	}
	if err := fc.Remove("/dir"); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if fc.FileExists("/f.txt") || fc.DirExists("/dir") {
		t.Errorf("expected both removed")
	}
}

func TestFacadeCreateSymlinkForceReplacesExisting(t *testing.T) {
	fc := newTestFacade()
	if err := fc.WriteLines("/target.txt", []string{"real"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fc.Symlink("/link.txt", "/target.txt"); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := fc.WriteLines("/other.txt", []string{"other"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fc.CreateSymlink("/link.txt", "/other.txt", true); err != nil {
		t.Fatalf("createsymlink with force: %v", err)
	}
	if !fc.SymlinkExists("/link.txt") {
		t.Errorf("expected /link.txt to still be a symlink")
	}
}
