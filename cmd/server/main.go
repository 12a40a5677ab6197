package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"constitution-gpt/internal/bootstrap"
	"constitution-gpt/internal/config"
	"constitution-gpt/internal/logger"
	httptransport "constitution-gpt/internal/transport/http"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "constitution-gpt",
		Short:         "ConstitutionGPT backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (overrides CONFIG_FILE)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, runServer)
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "insert the default topics and build the semantic index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, func(ctx context.Context, app *bootstrap.App) error {
				inserted, err := app.Topics.SeedDefaults(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("seeded %d topics, index entries: %d\n", inserted, app.RAG.Stats().Entries)
				return nil
			})
		},
	}

	var adminUsername, adminEmail, adminPassword string
	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, func(ctx context.Context, app *bootstrap.App) error {
				user, err := app.Auth.CreateAdmin(ctx, adminUsername, adminEmail, adminPassword)
				if err != nil {
					return err
				}
				fmt.Printf("admin %s created with id %d\n", user.Username, user.ID)
				return nil
			})
		},
	}
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "admin username")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	var resetIdentifier, resetPassword string
	resetPasswordCmd := &cobra.Command{
		Use:   "reset-password",
		Short: "set a new password for a user and revoke their sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Auth.ResetPassword(ctx, resetIdentifier, resetPassword); err != nil {
					return err
				}
				fmt.Printf("password reset for %s\n", resetIdentifier)
				return nil
			})
		},
	}
	resetPasswordCmd.Flags().StringVar(&resetIdentifier, "user", "", "username or email")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "new password")
	_ = resetPasswordCmd.MarkFlagRequired("user")
	_ = resetPasswordCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(runCmd, seedCmd, createAdminCmd, resetPasswordCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func withApp(ctx context.Context, configPath string, fn func(context.Context, *bootstrap.App) error) error {
	if configPath != "" {
		if err := os.Setenv("CONFIG_FILE", configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(cfg.Log, cfg.App.Env)
	if err != nil {
		return fmt.Errorf("init logger failed: %w", err)
	}
	defer func() { _ = log.Sync() }()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close resources failed", zap.Error(err))
		}
	}()
	return fn(ctx, app)
}

func runServer(ctx context.Context, app *bootstrap.App) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.StartBackground(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              app.Config.HTTPAddr(),
		Handler:           httptransport.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Warn("server shutdown failed", zap.Error(err))
	}
	return nil
}
