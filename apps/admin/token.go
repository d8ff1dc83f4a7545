package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/masomo/apps/api/echo"
)

// newTokenCmd issues an API token for an existing user, eg. to query the tables with curl.
func newTokenCmd(cli *commandLine) *cobra.Command {
	return &cobra.Command{
		Use:   "token USER_ID",
		Short: "Print an API token for the user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := cli.userRepository()
			if err != nil {
				return err
			}
			usr, err := repo.GetUserByID(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errors.Errorf("user %q is deactivated", usr.Username)
			}

			issuer := echoapi.TokenIssuer{
				Issuer:     cli.conf.AppName,
				SecretKey:  []byte(cli.conf.SecretKey),
				Expiration: cli.conf.Server.JWTExpirationDelta,
			}
			token, err := issuer.GenerateToken(usr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
