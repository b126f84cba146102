package layerfs

import "testing"

func TestMemCacheAddContainsRemove(t *testing.T) {
	c := NewMemCache()
	if c.Contains("/a") {
		t.Fatalf("empty cache should not contain /a")
	}
	if err := c.Add("/a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !c.Contains("/a") {
		t.Fatalf("expected /a to be present after Add")
	}
	if err := c.Remove("/a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if c.Contains("/a") {
		t.Fatalf("expected /a to be gone after Remove")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBoltCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	file := dir + "/whiteouts.db"

	c1, err := NewBoltCache(file)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c1.Add("/deleted/path"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	c2, err := NewBoltCache(file)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	if !c2.Contains("/deleted/path") {
		t.Errorf("expected mark to survive reopen")
	}
	if err := c2.Remove("/deleted/path"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if c2.Contains("/deleted/path") {
		t.Errorf("expected mark to be gone after remove")
	}
}
