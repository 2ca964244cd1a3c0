// Command mesactl runs administrative tasks against the ledger database.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mesa/internal/cli"
	"mesa/internal/config"
	applog "mesa/internal/log"
	"mesa/internal/services"
	"mesa/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	dbPath string
	cfg    *config.Config
	logger *applog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "mesactl",
		Short:        "Administer the mesa ledger",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.dbPath != "" {
				cfg.SQLiteDBPath = opts.dbPath
			}
			level, err := applog.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = applog.New(applog.Config{
				Level:     level,
				Format:    cfg.LogFormat,
				Component: applog.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
			applog.SetDefault(opts.logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides SQLITE_DB_PATH)")

	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newInvoiceCmd(opts))
	root.AddCommand(newProjectionCmd(opts))
	return root
}

// openRepo opens the database without publishing events: admin commands
// run outside the request path and the worker picks changes up on the
// next ledger event.
func (o *rootOptions) openRepo() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(o.cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.cfg.SQLiteDBPath, err)
	}
	return repo, nil
}

func newProjectionService(repo *storage.SQLiteRepository) *services.ProjectionService {
	return services.NewProjectionService(repo, services.NewRecurrenceResolver(repo, nil))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
