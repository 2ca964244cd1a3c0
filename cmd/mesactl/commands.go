package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mesa/internal/core"
	applog "mesa/internal/log"
	"mesa/internal/services"
	"mesa/internal/storage"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var showVersion bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfg.SQLiteDBPath
			if !showVersion {
				if err := storage.RunMigrations(path); err != nil {
					return err
				}
				opts.logger.Info("Migrations applied", applog.FieldOperation, applog.OpMigrate, "path", path)
			}
			v, dirty, err := storage.SchemaVersion(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showVersion, "version", false, "only print the applied schema version")
	return cmd
}

func newInvoiceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Inspect and repair card statements",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "recalc INVOICE_ID",
		Short: "Recompute a statement total from its active expenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid invoice id %q", args[0])
			}
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			inv, err := services.NewInvoiceCycleManager(repo, nil).Recalculate(cmd.Context(), id)
			if err != nil {
				return err
			}
			opts.logger.Info("Statement total recomputed",
				applog.FieldOperation, applog.OpRecalculate,
				applog.FieldEntityID, id,
				"total", inv.Total.String())
			return printJSON(cmd.OutOrStdout(), inv)
		},
	})
	return cmd
}

func newProjectionCmd(opts *rootOptions) *cobra.Command {
	var workspaces, month string
	cmd := &cobra.Command{
		Use:   "projection",
		Short: "Print the monthly projection of one or more workspaces as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseWorkspaces(workspaces)
			if err != nil {
				return err
			}
			m := core.MonthOf(time.Now())
			if month != "" {
				if m, err = core.ParseMonth(month); err != nil {
					return err
				}
			}
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			report, err := newProjectionService(repo).Projection(cmd.Context(), ids, m)
			if err != nil {
				return err
			}
			opts.logger.Debug("Projection computed",
				applog.FieldOperation, applog.OpProject,
				applog.FieldMonth, m.String(),
				"workspaces", ids)
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&workspaces, "workspaces", "", "comma separated workspace ids")
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	_ = cmd.MarkFlagRequired("workspaces")
	return cmd
}

func parseWorkspaces(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid workspace id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one workspace id is required")
	}
	return ids, nil
}
