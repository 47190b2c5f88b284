package main

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/migrations"
	"github.com/spf13/cobra"
)

const undefinedTable = "42P01"

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(database.Up), string(database.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := database.Up
		if len(args) == 1 {
			direction = database.Direction(args[0])
		}

		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ran, err := database.Migrate(cmd.Context(), a.db, migrations.FS, direction)
		if err != nil {
			return err
		}
		if len(ran) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to migrate.")
			return nil
		}
		for _, name := range ran {
			fmt.Fprintf(cmd.OutOrStdout(), "Ran %s\n", name)
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed default brands, categories and the optional admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.svc.Seed(cmd.Context(), a.seedAdmin()); err != nil {
			return seedError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Seed complete.")
		return nil
	},
}

// seedError points at the usual cause when the schema has not been created.
func seedError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("%w (run `storefront migrate up` first)", err)
	}
	return err
}
