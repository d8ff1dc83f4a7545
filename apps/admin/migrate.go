package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(cli *commandLine) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cli.openDB()
			if err != nil {
				return err
			}
			return migrateFunc(cmd.Context(), db.DB, args[0], args[1:]...)
		},
	}
}
