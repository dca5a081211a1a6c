package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/rezervator/internal/api"
	"github.com/erazemk/rezervator/internal/auth"
	"github.com/erazemk/rezervator/internal/store"
)

func newServeCommand(opts *options) *cobra.Command {
	var (
		listen    string
		adminUser string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the session janitor and the reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			logger, closeLog := newLogger(cfg.Log, cmd.OutOrStdout(), cmd.ErrOrStderr())
			defer closeLog()

			// First run: create the database.
			password, err := initDatabase(cmd.Context(), cfg.Database, adminUser)
			if err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			if password != "" {
				printInitResult(cmd.OutOrStdout(), cfg.Database, adminUser, password)
			}

			a, err := openApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			secret, err := store.GetJWTSecret(cmd.Context(), a.db)
			if err != nil {
				return fmt.Errorf("loading JWT secret: %w", err)
			}
			sched, err := a.scheduler()
			if err != nil {
				return err
			}

			router := api.NewRouter(api.Deps{
				DB:          a.db,
				Signer:      auth.NewSigner(secret, auth.DefaultTTL),
				Sessions:    a.sessions,
				Warehouse:   a.warehouse,
				Broadcaster: a.broadcaster,
				Window:      cfg.Digest.Window,
			})
			server := &http.Server{
				Addr:              cfg.Listen,
				Handler:           api.LoggingMiddleware(logger, router),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				logger.Info("server started", "addr", cfg.Listen)
				if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serving http: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			g.Go(func() error {
				return a.sessions.RunJanitor(ctx, cfg.Session.JanitorInterval)
			})
			g.Go(func() error {
				return sched.Run(ctx)
			})

			err = g.Wait()
			logger.Info("server stopped, closing stores")
			return err
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "a", ":8080", "listen address")
	cmd.Flags().StringVarP(&adminUser, "user", "u", "admin", "admin username on first run")
	return cmd
}
