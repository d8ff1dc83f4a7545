package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/masomo/core/user"
)

type addUserFlags struct {
	name     string
	username string
	email    string
	roles    []string
}

func newAddUserCmd(cli *commandLine) *cobra.Command {
	var flags addUserFlags
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a staff user; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := readPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd, flags, pwd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %q (%s)\n", usr.Kind(), usr.Username, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.name, "name", "", "full name")
	cmd.Flags().StringVar(&flags.username, "username", "", "login username")
	cmd.Flags().StringVar(&flags.email, "email", "", "email address")
	cmd.Flags().StringSliceVar(&flags.roles, "role", []string{user.RoleAdmin}, "role(s) to grant")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (cli *commandLine) addUser(cmd *cobra.Command, flags addUserFlags, pwd string) (user.User, error) {
	svc, err := cli.userService()
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.Create(cmd.Context(), user.NewUser{
		Name:            flags.name,
		Username:        flags.username,
		Email:           flags.email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           flags.roles,
	})
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}
