package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/masomo/core/user"
)

func newResetPasswordCmd(cli *commandLine) *cobra.Command {
	return &cobra.Command{
		Use:   "resetpassword USERNAME",
		Short: "Set a new password for a user; the password is prompted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.userService()
			if err != nil {
				return err
			}
			usr, err := svc.GetByUsernameOrEmail(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrapf(err, "finding user %q", args[0])
			}

			pwd, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if _, err := svc.Update(cmd.Context(), usr.ID, user.UpdateUser{Password: pwd, PasswordConfirm: pwd}); err != nil {
				return errors.Wrap(err, "resetting password")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password of %q reset\n", usr.Username)
			return nil
		},
	}
}
