package layerfs

import (
	"go.etcd.io/bbolt"
)

var whiteoutBucket = []byte("whiteouts")

// deletedSentinel is the value stored for every whited-out key; its
// content carries no meaning beyond "present".
var deletedSentinel = []byte{1}

// BoltCache is a WhiteoutCache persisted to a single-file bbolt
// database, keyed by the UTF-8 bytes of the absolute path. It is the
// persistent counterpart to MemCache, used when whiteout marks must
// survive process restarts.
type BoltCache struct {
	db *bbolt.DB
}

// NewBoltCache opens (creating if absent) a bbolt database at file and
// prepares its whiteout bucket.
func NewBoltCache(file string) (*BoltCache, error) {
	db, err := bbolt.Open(file, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(whiteoutBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Contains(path string) bool {
	found := false
	_ = c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(whiteoutBucket)
		found = b.Get([]byte(path)) != nil
		return nil
	})
	return found
}

func (c *BoltCache) Add(path string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(whiteoutBucket).Put([]byte(path), deletedSentinel)
	})
}

func (c *BoltCache) Remove(path string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(whiteoutBucket).Delete([]byte(path))
	})
}

// Close releases the underlying bbolt database file.
func (c *BoltCache) Close() error { return c.db.Close() }

var _ WhiteoutCache = (*BoltCache)(nil)
