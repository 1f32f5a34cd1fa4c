package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/aptlease/internal/repository"
	"github.com/aryan0dhankhar/aptlease/internal/security/auth"
	"github.com/aryan0dhankhar/aptlease/internal/service"
	"github.com/aryan0dhankhar/aptlease/internal/worker"
	"github.com/aryan0dhankhar/aptlease/pkg/config"
	"github.com/aryan0dhankhar/aptlease/pkg/database"
)

// env is what every command needs: loaded config, a logger and an open pool
type env struct {
	cfg  *config.Config
	log  *slog.Logger
	pool *database.ConnectionPool
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// keep stdout for command output
	log := logger.New(os.Stderr, cfg.LogLevel)

	pool, err := database.NewConnectionPool(ctx, &database.Config{
		URL:          cfg.DatabaseURL,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, pool: pool}, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.pool.Close()

			if err := e.pool.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			db := e.pool.GetDB()
			identities := service.NewIdentityService(
				repository.NewPostgresIdentityRepository(db, e.log),
				auth.NewTokenManager(e.cfg.JWTSecret, e.cfg.JWTIssuer, e.cfg.TokenTTL),
				nil,
				e.log,
			)

			admin, err := identities.CreateIdentity(ctx, email, password, domain.RoleAdmin)
			if err != nil {
				return err
			}
			// admins log in with a manager-shaped profile
			managers := repository.NewPostgresManagerRepository(db)
			if err := managers.Create(ctx, &domain.Manager{UserID: admin.ID, Email: admin.Email}); err != nil {
				if delErr := identities.DeleteIdentity(ctx, admin.ID); delErr != nil {
					e.log.Error("failed to remove admin identity", slog.String("error", delErr.Error()))
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "admin created: %s (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func driftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drift",
		Short: "List apartments whose status disagrees with their active contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			db := e.pool.GetDB()
			reconciler := worker.NewReconcileWorker(
				repository.NewPostgresApartmentRepository(db, e.log),
				repository.NewPostgresContractRepository(db, e.log),
				e.log,
				e.cfg.ReconcileInterval,
			)
			drifts, err := reconciler.FindDrift(ctx)
			if err != nil {
				return err
			}
			printDrift(cmd, drifts)
			return nil
		},
	}
}

func printDrift(cmd *cobra.Command, drifts []worker.Drift) {
	out := cmd.OutOrStdout()
	if len(drifts) == 0 {
		fmt.Fprintln(out, "no drift")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APARTMENT\tNUMBER\tSTATUS\tKIND\tACTIVE CONTRACTS")
	for _, d := range drifts {
		contracts := strings.Join(d.ContractIDs, ",")
		if contracts == "" {
			contracts = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ApartmentID, d.Number, d.Status, d.Kind, contracts)
	}
	w.Flush()
}
