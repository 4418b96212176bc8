package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophsync/internal/server"
	"github.com/dmitrijs2005/gophsync/internal/server/auth"
	"github.com/dmitrijs2005/gophsync/internal/server/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gophsync: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "gophsync",
		Short:        "gophsync item sync server",
		SilenceUsage: true,
	}
	loader := config.NewLoader(cmd.PersistentFlags())
	cmd.AddCommand(
		newServeCmd(loader),
		newMigrateCmd(loader),
		newTokenCmd(loader),
	)
	return cmd
}

func newServeCmd(loader *config.Loader) *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC sync endpoint and the admin HTTP endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, loader)
			if err != nil {
				return err
			}
			if !skipMigrations {
				if err := app.Migrate(ctx); err != nil {
					app.Close()
					return err
				}
			}
			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on start")
	return cmd
}

func newMigrateCmd(loader *config.Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, loader)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Migrate(ctx)
		},
	}
}

func newTokenCmd(loader *config.Loader) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user (development only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := uuid.Parse(userID); err != nil {
				return fmt.Errorf("--user must be a uuid: %w", err)
			}
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			token, err := auth.GenerateToken(userID, []byte(cfg.SecretKey), cfg.AccessTokenValidity)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user uuid to put in the token")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newApp(ctx context.Context, loader *config.Loader) (*server.App, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	logger, err := server.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return server.NewApp(ctx, cfg, logger)
}
