package storage

import (
	"context"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketRecords = []byte("records")
	bucketSets    = []byte("sets")
)

// BoltStore implements Store using a local BoltDB file: one bucket
// for record keys, one bucket for set membership (a set is itself a
// nested bucket keyed by member, so Add/Remove are single-key B-tree
// operations and Members iterates only that set's own bucket).
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a BoltDB-backed store under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "nexuscore.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return fmt.Errorf("storage: create records bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketSets); err != nil {
			return fmt.Errorf("storage: create sets bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		value = append([]byte(nil), data...)
		return nil
	})
	return value, found, err
}

func (s *BoltStore) Put(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).Put([]byte(key), value)
	})
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).Delete([]byte(key))
	})
}

func (s *BoltStore) AddToSet(_ context.Context, set, member string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketSets).CreateBucketIfNotExists([]byte(set))
		if err != nil {
			return fmt.Errorf("storage: create set %s: %w", set, err)
		}
		return b.Put([]byte(member), []byte{1})
	})
}

func (s *BoltStore) RemoveFromSet(_ context.Context, set, member string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSets).Bucket([]byte(set))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(member))
	})
}

func (s *BoltStore) Members(_ context.Context, set string) ([]string, error) {
	var members []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSets).Bucket([]byte(set))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			members = append(members, string(k))
			return nil
		})
	})
	return members, err
}

func (s *BoltStore) DeleteWithSet(ctx context.Context, key, set, member string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRecords).Delete([]byte(key)); err != nil {
			return err
		}
		b := tx.Bucket(bucketSets).Bucket([]byte(set))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(member))
	})
}
