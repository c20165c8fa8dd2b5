package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/amirasaad/presale/infra"
	"github.com/amirasaad/presale/infra/initializer"
	"github.com/amirasaad/presale/internal/migrations"
	"github.com/amirasaad/presale/pkg/app"
	"github.com/amirasaad/presale/pkg/config"
	webpayment "github.com/amirasaad/presale/webapi/payment"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// appOpener builds the application from the env file and returns a closer
// for its dependencies.
type appOpener func(envFile string) (*app.App, func() error, error)

// dbOpener opens the raw database handle migrations run against.
type dbOpener func(envFile string) (*sql.DB, func() error, error)

func openApp(envFile string) (*app.App, func() error, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	deps, closeDeps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize dependencies: %w", err)
	}
	return app.New(deps, cfg), closeDeps, nil
}

func openDB(envFile string) (*sql.DB, func() error, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	dbCfg := *cfg.DB
	if dbCfg.Driver != "" && dbCfg.Driver != "postgres" {
		return nil, nil, fmt.Errorf("migrations require postgres, got %q", dbCfg.Driver)
	}
	dbCfg.AutoMigrate = false
	db, err := infra.NewDBConnection(&dbCfg, cfg.Env)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, sqlDB.Close, nil
}

func newRootCmd(open appOpener, openSQL dbOpener) *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "presale",
		Short:         "Operate the presale payment engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to the environment file")

	// withApp runs fn against a freshly built app and closes its dependencies.
	withApp := func(fn func(cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) (err error) {
			a, closeDeps, err := open(envFile)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, closeDeps()) }()
			return fn(cmd, a)
		}
	}

	root.AddCommand(
		reconcileCmd(withApp),
		checkoutCmd(withApp),
		progressCmd(withApp),
		migrateCmd(func() (*sql.DB, func() error, error) { return openSQL(envFile) }),
	)
	return root
}

type appRunner func(fn func(cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error

func reconcileCmd(withApp appRunner) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run the reconciliation sweep once",
		Long: `Evaluate every open round whose deadline has passed, assign group slots
to funded rounds and refund the rest.

Examples:
  presale reconcile
  presale reconcile --at 2026-01-31T02:00:00Z`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&at, "at", "", "reference instant in RFC3339 (default now)")
	cmd.RunE = withApp(func(cmd *cobra.Command, a *app.App) error {
		var ref time.Time
		if at != "" {
			parsed, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --at %q: %w", at, err)
			}
			ref = parsed
		}
		summary, err := a.PaymentService.RunNightlyReconciliation(cmd.Context(), ref)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), summary)
	})
	return cmd
}

func checkoutCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout <reservation-id>",
		Short: "Charge a reservation through the configured provider",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid reservation id %q", args[0])
		}
		return withApp(func(cmd *cobra.Command, a *app.App) error {
			result, err := a.PaymentService.InitiateReservationPayment(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), webpayment.CheckoutResponse{
				TransactionID:     result.Transaction.ID.String(),
				ReservationStatus: string(result.Reservation.Status),
				ClientSecret:      result.ClientSecret,
				Provider:          a.PaymentService.Provider(),
				NextAction:        result.NextAction,
			})
		})(cmd, args)
	}
	return cmd
}

func progressCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress <round-id>",
		Short: "Show the funding progress of a round",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid round id %q", args[0])
		}
		return withApp(func(cmd *cobra.Command, a *app.App) error {
			summary, err := a.PaymentService.RoundProgress(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		})(cmd, args)
	}
	return cmd
}

func migrateCmd(open func() (*sql.DB, func() error, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	run := func(fn func(db *sql.DB) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) (err error) {
			db, closeDB, err := open()
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, closeDB()) }()
			return fn(db)
		}
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back, 0 for all")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
	}
	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
	}

	up.RunE = func(c *cobra.Command, args []string) error {
		return run(func(db *sql.DB) error {
			if err := migrations.Up(db); err != nil {
				return err
			}
			return printVersion(c.OutOrStdout(), db)
		})(c, args)
	}
	down.RunE = func(c *cobra.Command, args []string) error {
		return run(func(db *sql.DB) error {
			if err := migrations.Down(db, steps); err != nil {
				return err
			}
			return printVersion(c.OutOrStdout(), db)
		})(c, args)
	}
	version.RunE = func(c *cobra.Command, args []string) error {
		return run(func(db *sql.DB) error { return printVersion(c.OutOrStdout(), db) })(c, args)
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(w io.Writer, db *sql.DB) error {
	v, dirty, err := migrations.Version(db)
	if err != nil {
		return err
	}
	return printJSON(w, map[string]any{"version": v, "dirty": dirty})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
