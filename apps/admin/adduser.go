package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/user"
)

// addUser creates a user, or resets the password of the existing user having the same email.
func (cli *commandLine) addUser(nu user.NewUser) error {
	ctx := context.Background()
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}

	usr, err := cli.usrSvc.Create(ctx, nu)
	if err == nil {
		fmt.Printf("created %s %s (%s)\n", usr.Role, usr.Email, usr.ID)
		return nil
	}
	if vErr, ok := errors.Cause(err).(*core.ValidationError); !ok || vErr.Err != user.ErrEmailExists {
		return err
	}
	if err = cli.usrSvc.SetPassword(ctx, nu.Email, nu.Password); err != nil {
		return err
	}
	fmt.Printf("%s already exists, password updated\n", nu.Email)
	return nil
}
