package boltcache

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "transcripts.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, ok, err := c.Load("missing"); ok || err != nil {
		t.Errorf("Load(missing) = %v, %v; want false, nil", ok, err)
	}

	want := []byte("%PDF-1.3 ...")
	if err = c.Store("key", want); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, ok, err := c.Load("key")
	if err != nil || !ok || !bytes.Equal(got, want) {
		t.Errorf("Load(key) = %q, %v, %v; want %q, true, nil", got, ok, err, want)
	}

	// values survive a reopen
	if err = c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c, err = Open(path); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()
	if _, ok, _ = c.Load("key"); !ok {
		t.Error("Load(key) after reopen: not found")
	}

	if err = c.Purge(); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if _, ok, _ = c.Load("key"); ok {
		t.Error("Load(key) after purge: found")
	}
}
