package main

import (
	"fmt"

	"github.com/nikolayk812/artesano/internal/db"
	"github.com/spf13/cobra"
)

func migrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect the database schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator, err := db.NewMigrator(pool)
			if err != nil {
				return fmt.Errorf("db.NewMigrator: %w", err)
			}
			defer func() {
				if err := migrator.Close(); err != nil {
					log.Warn("failed to close migrator", "err", err)
				}
			}()

			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			out := cmd.OutOrStdout()

			switch action {
			case "down":
				version, err := migrator.Down(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "rolled back version %d\n", version)
			case "status":
				statuses, err := migrator.Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Fprintf(out, "%05d  %-8s %s\n", s.Version, state, s.Path)
				}
			default:
				versions, err := migrator.Up(ctx)
				if err != nil {
					return err
				}
				if len(versions) == 0 {
					fmt.Fprintln(out, "schema is up to date")
				}
				for _, v := range versions {
					fmt.Fprintf(out, "applied version %d\n", v)
				}
			}

			return nil
		},
	}
}
