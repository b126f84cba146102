package layerfs

import (
	"path"
	"strings"
)

// Root is the absolute path of the filesystem root.
const Root = "/"

// CleanPath normalizes an absolute, forward-slash-separated path: it
// collapses "." and ".." segments and guarantees a leading "/". Relative
// paths are left untouched by the caller's wrapper before reaching here;
// CleanPath itself always returns an absolute path, prefixing "/" if one
// is missing so that a wrapper normalizing "early" never produces a
// bare relative string downstream.
func CleanPath(p string) string {
	if p == "" {
		return Root
	}
	cleaned := path.Clean(p)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}

// SplitPath splits a cleaned absolute path into its parent directory and
// base name, e.g. SplitPath("/a/b/c") == ("/a/b", "c"). SplitPath("/")
// returns ("/", "").
func SplitPath(p string) (dir, name string) {
	p = CleanPath(p)
	if p == Root {
		return Root, ""
	}
	dir, name = path.Split(p)
	dir = CleanPath(dir)
	return dir, name
}

// ParentPath returns the parent directory of p, or Root if p is already
// Root.
func ParentPath(p string) string {
	dir, _ := SplitPath(p)
	return dir
}

// JoinPath joins path elements the way path.Join does, then cleans the
// result through CleanPath.
func JoinPath(elem ...string) string {
	return CleanPath(path.Join(elem...))
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant: the relative path from ancestor to descendant must not
// begin with "..".
func IsAncestor(ancestor, descendant string) bool {
	ancestor = CleanPath(ancestor)
	descendant = CleanPath(descendant)

	if ancestor == Root {
		return true
	}
	if ancestor == descendant {
		return true
	}
	return strings.HasPrefix(descendant, ancestor+"/")
}

// RelativePath returns the path of descendant relative to ancestor,
// always prefixed with "/". RelativePath("/mnt", "/mnt/a/b") == "/a/b";
// RelativePath("/mnt", "/mnt") == "/". The caller must ensure ancestor is
// actually an ancestor of descendant (see IsAncestor).
func RelativePath(ancestor, descendant string) string {
	ancestor = CleanPath(ancestor)
	descendant = CleanPath(descendant)

	if ancestor == Root {
		return descendant
	}
	rel := strings.TrimPrefix(descendant, ancestor)
	if rel == "" {
		return Root
	}
	return rel
}

// Ancestors returns the chain of paths from Root down to (and including)
// p, e.g. Ancestors("/a/b/c") == []string{"/", "/a", "/a/b", "/a/b/c"}.
func Ancestors(p string) []string {
	p = CleanPath(p)
	if p == Root {
		return []string{Root}
	}

	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	out := make([]string, 0, len(parts)+1)
	out = append(out, Root)

	cur := ""
	for _, part := range parts {
		cur += "/" + part
		out = append(out, cur)
	}
	return out
}

// baseName returns the final path component of a cleaned absolute path.
func baseName(p string) string {
	_, name := SplitPath(p)
	return name
}
