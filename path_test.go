package layerfs

import (
	"reflect"
	"testing"
)

func TestCleanPath(t *testing.T) {
	cases := map[string]string{
		"":            "/",
		"/":           "/",
		"a/b":         "/a/b",
		"/a/./b":      "/a/b",
		"/a/../b":     "/b",
		"/a/b/":       "/a/b",
		"//a//b":      "/a/b",
	}
	for in, want := range cases {
		if got := CleanPath(in); got != want {
			t.Errorf("CleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitPath(t *testing.T) {
	dir, name := SplitPath("/a/b/c")
	if dir != "/a/b" || name != "c" {
		t.Errorf("got (%q, %q), want (%q, %q)", dir, name, "/a/b", "c")
	}
	dir, name = SplitPath("/")
	if dir != "/" || name != "" {
		t.Errorf("got (%q, %q), want (%q, %q)", dir, name, "/", "")
	}
}

func TestParentPath(t *testing.T) {
	if got := ParentPath("/a/b/c"); got != "/a/b" {
		t.Errorf("got %q, want %q", got, "/a/b")
	}
	if got := ParentPath("/"); got != "/" {
		t.Errorf("got %q, want %q", got, "/")
	}
}

func TestJoinPath(t *testing.T) {
	if got := JoinPath("/a", "b", "c"); got != "/a/b/c" {
		t.Errorf("got %q, want %q", got, "/a/b/c")
	}
}

func TestIsAncestor(t *testing.T) {
	if !IsAncestor("/", "/anything") {
		t.Errorf("root should be an ancestor of everything")
	}
	if !IsAncestor("/a/b", "/a/b") {
		t.Errorf("a path should be its own ancestor")
	}
	if !IsAncestor("/a", "/a/b/c") {
		t.Errorf("/a should be an ancestor of /a/b/c")
	}
	if IsAncestor("/a/b", "/a/bc") {
		t.Errorf("/a/b should not be an ancestor of /a/bc (prefix collision without separator)")
	}
}

func TestRelativePath(t *testing.T) {
	if got := RelativePath("/mnt", "/mnt/a/b"); got != "/a/b" {
		t.Errorf("got %q, want %q", got, "/a/b")
	}
	if got := RelativePath("/mnt", "/mnt"); got != "/" {
		t.Errorf("got %q, want %q", got, "/")
	}
	if got := RelativePath("/", "/a/b"); got != "/a/b" {
		t.Errorf("got %q, want %q", got, "/a/b")
	}
}

func TestAncestors(t *testing.T) {
	got := Ancestors("/a/b/c")
	want := []string{"/", "/a", "/a/b", "/a/b/c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := Ancestors("/"); !reflect.DeepEqual(got, []string{"/"}) {
		t.Errorf("got %v, want [/]", got)
	}
}
