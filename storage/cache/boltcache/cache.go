// Package boltcache stores exported transcripts in a bbolt file.
package boltcache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var transcriptsBucket = []byte("transcripts")

type Cache struct {
	db *bbolt.DB
}

// Open opens (or creates) the cache file at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating cache directory")
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening cache")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(transcriptsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating cache bucket")
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Load(key string) ([]byte, bool, error) {
	var val []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(transcriptsBucket).Get([]byte(key)); v != nil {
			// v is only valid for the lifetime of the transaction
			val = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "reading cache")
	}
	return val, val != nil, nil
}

func (c *Cache) Store(key string, val []byte) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(transcriptsBucket).Put([]byte(key), val)
	})
	return errors.Wrap(err, "writing cache")
}

// Purge drops every cached transcript.
func (c *Cache) Purge() error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(transcriptsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(transcriptsBucket)
		return err
	})
	return errors.Wrap(err, "purging cache")
}

func (c *Cache) Close() error {
	return c.db.Close()
}
