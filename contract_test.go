package layerfs

import (
	"os"
	"testing"
)

func TestIsReadOnlyMode(t *testing.T) {
	cases := map[string]bool{
		"rb":  true,
		"rt":  true,
		"r":   true,
		"wb":  false,
		"r+b": false,
		"ab":  false,
		"xb":  false,
	}
	for mode, want := range cases {
		if got := IsReadOnlyMode(mode); got != want {
			t.Errorf("IsReadOnlyMode(%q) = %v, want %v", mode, got, want)
		}
	}
}

func TestAccessMaskHas(t *testing.T) {
	mask := ROK | WOK
	if !mask.Has(ROK) {
		t.Errorf("expected ROK set")
	}
	if !mask.Has(WOK) {
		t.Errorf("expected WOK set")
	}
	if mask.Has(XOK) {
		t.Errorf("expected XOK not set")
	}
}

func TestStatHelpers(t *testing.T) {
	dir := Stat{Mode: os.ModeDir | 0o755}
	if !dir.IsDir() {
		t.Errorf("expected IsDir true")
	}
	if dir.Perm() != 0o755 {
		t.Errorf("got perm %o, want %o", dir.Perm(), 0o755)
	}

	link := Stat{Mode: os.ModeSymlink | 0o777}
	if !link.IsSymlink() {
		t.Errorf("expected IsSymlink true")
	}

	reg := Stat{Mode: 0o644}
	if !reg.IsRegular() {
		t.Errorf("expected IsRegular true")
	}
}
