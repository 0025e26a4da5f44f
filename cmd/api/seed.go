package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/cryptoscore/cryptoscore/internal/config"
	"github.com/cryptoscore/cryptoscore/internal/identity"
	"github.com/cryptoscore/cryptoscore/internal/infra"
	"github.com/cryptoscore/cryptoscore/internal/logging"
	"github.com/cryptoscore/cryptoscore/internal/seed"
)

const defaultSeedTimeout = 30 * time.Second

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the demo users",
		Long: `Creates the demo accounts when the users table is empty.
Running it against a populated database does nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultSeedTimeout, "timeout for database operations")

	return cmd
}

func runSeed(cmd *cobra.Command, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := identity.NewPostgresRepository(db)
	created, err := seed.New(repo, identity.NewBcryptHasher(cfg.BcryptCost), logger).Run(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Created %d demo users\n", created)
	return nil
}
