package services

import (
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var (
	// ErrNotFound is returned by the key-value engines when a key has never been written.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned when a write would take an engine over its capacity.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

var storageBucket = []byte("local-storage")

// BoltDB implements a synchronous key-value store on top of a BoltDB file. Every key maps to a single
// opaque value that is overwritten as a whole on each write, the same contract a browser's local storage
// offers.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB opens (or creates) the BoltDB file at path and makes sure the storage bucket exists. The file
// is created with 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(storageBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return BoltDB{}, fmt.Errorf("failed to create bucket: %w", err)
	}

	return BoltDB{db: db}, nil
}

// Get returns a copy of the value stored under key, or ErrNotFound.
func (b BoltDB) Get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(storageBucket)
		if bucket == nil {
			return ErrNotFound
		}

		v := bucket.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// Values returned by bolt are only valid for the life of the transaction.
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (b BoltDB) Set(key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(storageBucket)
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return bucket.Put([]byte(key), value)
	})
}

// Close releases the database file lock.
func (b BoltDB) Close() error {
	return b.db.Close()
}
