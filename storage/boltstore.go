package storage

import (
	"fmt"

	"github.com/boltdb/bolt"
)

// BoltStore is an implementation of Store whose backend is a Bolt database.
type BoltStore bolt.DB

var (
	bucketName = []byte("files")
)

func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return fmt.Errorf("could not ensure bucket %q exists: %w", bucketName, err)
		}
		return nil
	})
	return (*BoltStore)(db), err
}

func (s *BoltStore) Put(name string, data []byte) error {
	key, err := cleanName(name)
	if err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}
	return (*bolt.DB)(s).Update(func(tx *bolt.Tx) error {
		// Bolt rejects nil values.
		if err := tx.Bucket(bucketName).Put([]byte(key), dup(data)); err != nil {
			return fmt.Errorf("could not put %q: %w", key, err)
		}
		return nil
	})
}

func (s *BoltStore) Get(name string) (data []byte, err error) {
	key, err := cleanName(name)
	if err != nil {
		return nil, fmt.Errorf("%q: %v: %w", name, err, ErrNotFound)
	}
	err = (*bolt.DB)(s).View(func(tx *bolt.Tx) error {
		value := tx.Bucket(bucketName).Get([]byte(key))
		if value == nil {
			return fmt.Errorf("%q: %w", key, ErrNotFound)
		}
		// Only valid for the life of the transaction.
		data = dup(value)
		return nil
	})
	return data, err
}

func (s *BoltStore) Exists(name string) (ok bool, err error) {
	key, err := cleanName(name)
	if err != nil {
		return false, nil
	}
	err = (*bolt.DB)(s).View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(bucketName).Get([]byte(key)) != nil
		return nil
	})
	return ok, err
}
