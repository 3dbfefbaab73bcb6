package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quotation-backend/internal/shared/config"
	"quotation-backend/internal/shared/storage/db"
	"quotation-backend/internal/users"
)

func connect(ctx context.Context) (*sql.DB, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, cfg, errors.New("DATABASE_URL is required")
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return nil, cfg, err
	}
	return sqlDB, cfg, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "quotectl",
		Short:        "Administrative tasks for the quotation backend",
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(), newCreateAdminCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sqlDB, _, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			if err := db.RunMigrations(cmd.Context(), sqlDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})
	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the state of each migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sqlDB, _, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return db.MigrationStatus(cmd.Context(), sqlDB)
		},
	})
	return migrate
}

type adminFlags struct {
	name     string
	email    string
	handle   string
	password string
}

func newCreateAdminCmd() *cobra.Command {
	var f adminFlags
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sqlDB, cfg, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			profile, err := createAdmin(cmd.Context(), &users.PGRepo{DB: sqlDB}, cfg.BcryptCost, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created administrator %d <%s>\n", profile.ID, profile.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().StringVar(&f.email, "email", "", "login email")
	cmd.Flags().StringVar(&f.handle, "handle", "", "unique handle (4+ characters)")
	cmd.Flags().StringVar(&f.password, "password", "", "initial password (6+ characters)")
	for _, name := range []string{"name", "email", "handle", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// createAdmin never issues a token, so the service gets no issuer.
func createAdmin(ctx context.Context, repo users.Repo, bcryptCost int, f adminFlags) (users.Profile, error) {
	svc := users.NewService(repo, nil, bcryptCost)
	return svc.CreateAdmin(ctx, users.RegisterInput{
		Name:     f.name,
		Email:    f.email,
		Handle:   f.handle,
		Password: f.password,
	})
}
