package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scentquiz/internal/app"
	"scentquiz/internal/db"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", true, "apply the schema before serving")
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openDB(ctx, cfg)
	if err != nil {
		logger.Error("database error", "error", err.Error())
		return err
	}
	defer store.Close()

	// Root command has no --migrate flag; serving through it migrates.
	if migrate, err := cmd.Flags().GetBool("migrate"); err != nil || migrate {
		if err := db.Migrate(ctx, store); err != nil {
			logger.Error("migrate failed", "error", err.Error())
			return err
		}
	}

	svc := app.NewServices(cfg, store, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewRouter(cfg, store, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("scentquiz web listening", "addr", cfg.HTTPAddr, "driver", string(store.Dialect))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err.Error())
			svc.Funnel.Close()
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err.Error())
	}
	svc.Funnel.Close()
	logger.Info("server stopped")
	return nil
}
