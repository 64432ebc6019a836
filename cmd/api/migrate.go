package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/medhist-api/internal/repository/postgres"
)

func migrateCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// run opens the database and migrator, hands them to fn and closes both
	run := func(cmd *cobra.Command, fn func(*postgres.Migrator) (string, error)) error {
		cfg, log, err := load()
		if err != nil {
			return err
		}

		db, err := postgres.NewDB(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		mg, err := postgres.NewMigrator(db)
		if err != nil {
			return err
		}
		defer func() {
			if err := mg.Close(); err != nil {
				log.Warn("failed to close migrator", "error", err.Error())
			}
		}()

		msg, err := fn(mg)
		if err != nil {
			return err
		}
		log.Info(msg)
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(mg *postgres.Migrator) (string, error) {
				applied, err := mg.Up()
				if err != nil {
					return "", fmt.Errorf("failed to apply migrations: %w", err)
				}
				if !applied {
					return "schema already up to date", nil
				}
				return "migrations applied", nil
			})
		},
	})

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(mg *postgres.Migrator) (string, error) {
				reverted, err := mg.Down(steps)
				if err != nil {
					return "", fmt.Errorf("failed to roll back migrations: %w", err)
				}
				if !reverted {
					return "nothing to roll back", nil
				}
				return fmt.Sprintf("rolled back %d step(s)", max(steps, 1)), nil
			})
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(downCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(mg *postgres.Migrator) (string, error) {
				v, dirty, err := mg.Version()
				if err != nil {
					return "", fmt.Errorf("failed to read schema version: %w", err)
				}
				return fmt.Sprintf("schema version %d (dirty=%t)", v, dirty), nil
			})
		},
	})

	return cmd
}
