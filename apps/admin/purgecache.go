package main

import (
	"errors"
	"fmt"

	"github.com/campusrecords/campus/storage/cache/boltcache"
)

var errNoCache = errors.New("export.cachePath is not set, there is no transcript cache")

// purgeCache drops every cached transcript. The API holds the cache file while running,
// so it must be stopped first.
func (cli *commandLine) purgeCache() error {
	if cli.cachePath == "" {
		return errNoCache
	}
	c, err := boltcache.Open(cli.cachePath)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err = c.Purge(); err != nil {
		return err
	}
	fmt.Printf("purged %s\n", cli.cachePath)
	return nil
}
