package layerfs

import "sort"

// Listdir merges directory contents across every branch that
// participates at path, ascending by rank. A branch stops the merge,
// contributing nothing itself, the moment it reports the directory as
// shadowed: a whiteout, a permission error, an ENOTDIR, or a
// non-directory entry at path. Within the participating set, a name
// first seen in a higher-priority branch wins outright; a name is
// dropped if any higher-priority participating branch has whited out
// that specific child.
func (u *UnionFS) Listdir(path string) ([]string, error) {
	path = CleanPath(path)
	u.mu.RLock()
	defer u.mu.RUnlock()

	participating, err := u.collectListdirBranchesLocked(path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for i, b := range participating {
		names, err := b.fs.Listdir(path)
		if err != nil {
			continue
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			if u.shadowedByHigherBranchLocked(participating[:i], JoinPath(path, name)) {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}

	sort.Strings(out)
	return out, nil
}

// collectListdirBranchesLocked walks branches ascending by rank,
// building the list of branches that contribute entries to path. It
// stops at, and does not include, the first branch that shadows
// whatever is below it (EXISTS-non-dir/DELETED/NOPERM/INVALID).
func (u *UnionFS) collectListdirBranchesLocked(path string) ([]*branch, error) {
	var participating []*branch
	for _, b := range u.sortedBranchesLocked() {
		st, status := statusOf(b, path)
		switch status {
		case statusUnknown:
			continue
		case statusExists:
			if !st.IsDir() {
				return terminate(participating, nil)
			}
			participating = append(participating, b)
		case statusDeleted:
			return terminate(participating, NewDeleted("listdir", path))
		case statusNoPerm:
			return terminate(participating, New("listdir", path, EACCES))
		case statusInvalid:
			return terminate(participating, New("listdir", path, ENOTDIR))
		}
	}
	if len(participating) == 0 {
		return nil, New("listdir", path, ENOENT)
	}
	return participating, nil
}

// terminate ends the branch scan: if nothing has participated yet, the
// halting condition is the caller's real error; otherwise the branches
// already collected still stand and the halt merely stops the scan.
func terminate(participating []*branch, haltErr error) ([]*branch, error) {
	if len(participating) == 0 && haltErr != nil {
		return nil, haltErr
	}
	return participating, nil
}

// shadowedByHigherBranchLocked reports whether any of the given
// higher-priority participating branches has whited out childPath.
func (u *UnionFS) shadowedByHigherBranchLocked(higher []*branch, childPath string) bool {
	for _, b := range higher {
		if _, status := statusOf(b, childPath); status == statusDeleted {
			return true
		}
	}
	return false
}
