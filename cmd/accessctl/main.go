package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/care-access/internal/api/dto"
	"github.com/spec-kit/care-access/internal/config"
	"github.com/spec-kit/care-access/internal/emergency"
	"github.com/spec-kit/care-access/internal/observability"
	"github.com/spec-kit/care-access/internal/persistence"
	"github.com/spec-kit/care-access/internal/repository"
)

// env is what every subcommand runs against.
type env struct {
	cfg     *config.Config
	tokens  *emergency.Service
	migrate func(ctx context.Context, dir string) error
	close   func()
}

type loader func(ctx context.Context) (*env, error)

func main() {
	if err := newRootCmd(loadEnv).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(load loader) *cobra.Command {
	root := &cobra.Command{
		Use:          "accessctl",
		Short:        "Operator tooling for the care-access service",
		SilenceUsage: true,
	}
	root.AddCommand(migrateCmd(load))
	root.AddCommand(tokenCmd(load))
	return root
}

func migrateCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = e.cfg.Postgres.MigrationsDir
			}
			if err := e.migrate(cmd.Context(), dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().String("dir", "", "Path to migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
	return cmd
}

func tokenCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and manage emergency access tokens",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "inspect <token>",
		Short: "Show the stored state of a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			rec, err := e.tokens.Lookup(cmd.Context(), args[0])
			if errors.Is(err, emergency.ErrTokenNotFound) {
				return fmt.Errorf("token not found")
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.NewEmergencyTokenStatus(rec, e.tokens.Status(rec)))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a token; revoking an unknown or inactive token is a no-op",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.tokens.Revoke(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "revoked")
			return nil
		},
	})

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete tokens that expired before a cutoff from the durable store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var before time.Time
			if raw, _ := cmd.Flags().GetString("before"); raw != "" {
				t, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					return fmt.Errorf("invalid --before: %w", err)
				}
				before = t
			}

			e, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if before.IsZero() {
				before = time.Now().Add(-e.tokens.Retention())
			}

			n, err := e.tokens.Purge(cmd.Context(), before)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d tokens\n", n)
			return nil
		},
	}
	purge.Flags().String("before", "", "RFC3339 cutoff (defaults to now minus EMERGENCY_RETENTION_MINUTES)")
	cmd.AddCommand(purge)

	return cmd
}

func loadEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, zap.String("service", "accessctl"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil && cfg.Emergency.Store == config.StoreRedis {
		pg.Close()
		redis.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	store, err := emergency.NewTokenStore(cfg.Emergency, pg.SQLDB(), redis.Client)
	if err != nil {
		pg.Close()
		redis.Close()
		return nil, err
	}

	var patients emergency.PatientDirectory
	if pool := pg.PoolHandle(); pool != nil {
		patients = repository.NewPatientRepository(pool)
	}

	return &env{
		cfg: cfg,
		tokens: emergency.NewService(emergency.ServiceDeps{
			Store:    store,
			Patients: patients,
			Logger:   logger,
		}, emergency.OptionsFrom(cfg.Emergency)),
		migrate: func(ctx context.Context, dir string) error {
			return persistence.RunMigrations(ctx, pg.PoolHandle(), dir, logger)
		},
		close: func() {
			pg.Close()
			redis.Close()
			_ = logger.Sync()
		},
	}, nil
}
