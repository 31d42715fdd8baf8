package main

import (
	"context"
	"fmt"
	"time"

	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/user"
)

// addAdmin creates an admin account, or promotes an existing user to admin.
func (cli *commandLine) addAdmin(email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.store.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			FirstName: "Admin",
			LastName:  "System",
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		if usr, err = cli.store.CreateUser(ctx, usr, user.RoleAdmin); err != nil {
			return err
		}
		fmt.Printf("admin %s created\n", usr.Email)
		return nil
	}

	if !usr.IsAdmin() {
		if err := cli.store.AddUserRole(ctx, usr.ID, user.RoleAdmin); err != nil {
			return err
		}
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if err := cli.store.UpdatePassword(ctx, usr.ID, usr.PasswordHash); err != nil {
		return err
	}
	fmt.Printf("admin %s updated\n", usr.Email)
	return nil
}
