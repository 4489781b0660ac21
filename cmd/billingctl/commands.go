package main

import (
	"fmt"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sjperalta/billtrack-api/internal/config"
	"github.com/sjperalta/billtrack-api/internal/database"
	"github.com/sjperalta/billtrack-api/internal/jobs"
	"github.com/sjperalta/billtrack-api/internal/numbering"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/sjperalta/billtrack-api/internal/services"
	"github.com/sjperalta/billtrack-api/pkg/logger"
)

// env is what every subcommand works against, opened once per invocation
type env struct {
	cfg    *config.Config
	db     *gorm.DB
	repos  *repository.Repositories
	worker *jobs.Worker
	svcs   *services.Services
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Environment, cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL, database.Options{Production: true})
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	repos := repository.NewRepositories(db)
	worker := jobs.NewWorker(1)
	// maintenance runs one process at a time, so the database sequencer is enough
	svcs := services.NewServices(repos, worker, numbering.NewDatabaseSequencer(), cfg)
	return &env{cfg: cfg, db: db, repos: repos, worker: worker, svcs: svcs}, nil
}

func (e *env) Close() {
	e.worker.Shutdown()
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newRootCmd() *cobra.Command {
	var e *env

	root := &cobra.Command{
		Use:   "billingctl",
		Short: "Ledger maintenance for the billing API",
		Long: `billingctl runs the same maintenance the API schedules in the background:
recomputing cached client balances and marking overdue invoices.

It reads the same environment (DATABASE_URL, LOG_LEVEL, ...) as the API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			e, err = openEnv()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e != nil {
				e.Close()
			}
		},
	}

	recompute := &cobra.Command{
		Use:   "recompute-balances",
		Short: "Rebuild outstanding balance and total billed from invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			clientID, _ := cmd.Flags().GetUint("client")
			if clientID != 0 {
				if err := e.svcs.Billing.RecomputeClientBalance(ctx, clientID); err != nil {
					return fmt.Errorf("recompute client %d: %w", clientID, err)
				}
				client, err := e.repos.Client.FindByID(ctx, clientID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "client %d: outstanding %.2f, billed %.2f\n",
					client.ID, client.OutstandingBalance, client.TotalBilled)
				return nil
			}

			n, err := e.svcs.Billing.RecomputeAllBalances(ctx)
			if err != nil {
				return fmt.Errorf("recompute balances: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d clients recomputed\n", n)
			return nil
		},
	}
	recompute.Flags().Uint("client", 0, "only recompute this client id")

	sweep := &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark invoices whose due date has passed as overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.svcs.Invoice.SweepOverdue(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep overdue: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d invoices marked overdue\n", n)
			return nil
		},
	}

	nextNumber := &cobra.Command{
		Use:   "next-number",
		Short: "Print the invoice number the database would assign next",
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := numbering.NewDatabaseSequencer().Next(cmd.Context(), e.repos.Invoice)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), number)
			return nil
		},
	}

	root.AddCommand(recompute, sweep, nextNumber)
	return root
}
