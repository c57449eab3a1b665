package main

import (
	"context"
	"fmt"

	"github.com/medflow/medflow-timesheet/internal/timesheet/repository"
	"github.com/medflow/medflow-timesheet/pkg/cache"
	"github.com/medflow/medflow-timesheet/pkg/config"
	"github.com/medflow/medflow-timesheet/pkg/database"
	"github.com/medflow/medflow-timesheet/pkg/logger"
	"github.com/spf13/cobra"
)

// configName is shared with the service so both read the same config file
const configName = "timesheet-service"

// app holds what every subcommand needs
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
}

func newRootCmd() *cobra.Command {
	var (
		verbose bool
		a       app
	)

	root := &cobra.Command{
		Use:           "timesheetctl",
		Short:         "Operate the MedFlow timesheet service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configName)
			if err != nil {
				return err
			}
			a.cfg = cfg

			a.log = logger.Nop()
			if verbose {
				a.log = logger.NewWithWriter("timesheetctl", cmd.ErrOrStderr()).SetLevel("debug")
			}

			a.db, err = database.New(&cfg.Database, a.log)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(newReportCmd(&a))
	root.AddCommand(newInvalidateCmd(&a))
	root.AddCommand(newMigrateCmd(&a))

	return root
}

// reportCache opens the configured backend. A memory cache is private to the
// process that owns it, so the CLI always starts empty with that backend.
func (a *app) reportCache() cache.Cache {
	if a.cfg.Cache.Backend == config.CacheBackendDatabase {
		return repository.NewReportCacheRepository(a.db)
	}
	return cache.NewMemory()
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the timesheet tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := repository.Migrate(context.Background(), a.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
