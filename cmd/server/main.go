// Package main implements the taskr server binary. It serves the task API,
// runs the reminder worker and applies database migrations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag
// state out of package globals.
func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "taskr",
		Short: "Task tracking API with due-date email reminders",
		Long: `taskr serves a versioned HTTP API for creating, querying, updating and
deleting tasks, stores files uploaded for each task, and emails a reminder
before each task's due date.`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"path to a config file (default: ./config.yaml when present)")

	root.AddCommand(
		newServeCmd(&configFile),
		newWorkerCmd(&configFile),
		newMigrateCmd(&configFile),
	)
	return root
}

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server. Pending migrations are applied on startup.
With server.embedded_worker enabled the reminder runner runs in-process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap(cmd.Context(), *configFile, true)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}

func newWorkerCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the reminder runner without the HTTP API",
		Long: `Run the reminder runner. Several workers may run against the same
database; each due reminder is claimed by exactly one of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap(cmd.Context(), *configFile, false)
			if err != nil {
				return err
			}
			return app.RunWorker(cmd.Context())
		},
	}
}

func newMigrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|reset|status|version]",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadAppConfig(*configFile)
			if err != nil {
				return err
			}
			return runMigrations(cmd.Context(), cfg, args[0], log)
		},
	}
}
