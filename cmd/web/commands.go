package main

import (
	"fmt"
	"os"
	"strconv"

	"scentquiz/internal/db"
	"scentquiz/internal/report"
	"scentquiz/internal/zodiac"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := db.Migrate(cmd.Context(), store); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", store.Dialect)
		return nil
	},
}

var exportResultsCmd = &cobra.Command{
	Use:   "export-results",
	Short: "Write every stored quiz result to an xlsx file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		body, err := report.NewService(store).ExportResultsExcel(cmd.Context())
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, body, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(body))
		return nil
	},
}

var zodiacCmd = &cobra.Command{
	Use:   "zodiac MONTH DAY",
	Short: "Print the zodiac sign for a birth date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		month, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("month: %w", err)
		}
		day, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("day: %w", err)
		}
		sign, err := zodiac.ResolveDate(month, day)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", sign.Symbol, sign.Name, sign.Element)
		return nil
	},
}

func init() {
	exportResultsCmd.Flags().String("out", "quiz-results.xlsx", "output file")
}
