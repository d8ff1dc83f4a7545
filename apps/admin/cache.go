package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/masomo/core/tables"
)

func newCacheCmd(cli *commandLine) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the table responses cache",
	}

	var dataset string
	flush := &cobra.Command{
		Use:   "flush",
		Short: "Drop the cached responses of a table, or of all of them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dataset != "" {
				if _, ok := cli.tables().Lookup(dataset); !ok {
					return errors.Wrapf(tables.ErrUnknownTable, "%q (known: %v)", dataset, cli.tables().Names())
				}
			}
			if err := cli.flushCache(cmd.Context(), dataset); err != nil {
				return err
			}
			if dataset == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "flushed all tables")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "flushed table %q\n", dataset)
			}
			return nil
		},
	}
	flush.Flags().StringVar(&dataset, "dataset", "", "table name; all tables when empty")
	cmd.AddCommand(flush)
	return cmd
}
