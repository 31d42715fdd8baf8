package main

import (
	"context"
	"fmt"

	"github.com/smartsubmit/smartsubmit/core"
)

// resetPassword sets a new password for an existing user.
func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()

	usr, err := cli.store.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if err := cli.store.UpdatePassword(ctx, usr.ID, usr.PasswordHash); err != nil {
		return err
	}
	fmt.Printf("password reset for %s\n", usr.Email)
	return nil
}
