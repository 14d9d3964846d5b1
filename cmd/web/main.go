package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"scentquiz/internal/app"
	"scentquiz/internal/db"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "scentquiz",
	Short:         "Scent personality quiz service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(exportResultsCmd)
	rootCmd.AddCommand(zodiacCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (app.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	return app.LoadConfig(envFile)
}

func newLogger(cfg app.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return logger.With("app", "scentquiz", "env", cfg.AppEnv)
}

func openDB(ctx context.Context, cfg app.Config) (*db.DB, error) {
	return db.Open(ctx, db.Config{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
		Pool: db.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
		},
	})
}
