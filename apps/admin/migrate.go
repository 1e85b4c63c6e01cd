package main

import (
	"errors"

	"github.com/campusrecords/campus/storage/database"
)

var (
	gooseRunFunc = database.RunMigration // mockable

	errNoDatabase = errors.New("migrations need a database, not available in TEST mode")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}
