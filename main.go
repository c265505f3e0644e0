package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Govind-619/StudyHub/logscan"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "studyhub",
		Short: "StudyHub payments, attribution and creator commission service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(evaluateTiersCmd())
	rootCmd.AddCommand(recalculateStatsCmd())
	rootCmd.AddCommand(analyzeLogsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func evaluateTiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate-tiers",
		Short: "Re-evaluate every active creator's commission tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Jobs.EvaluateTiers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("evaluated=%d promoted=%d demoted=%d unchanged=%d skipped=%d failed=%d duration=%s\n",
				report.Evaluated, report.Promoted, report.Demoted, report.Unchanged, report.Skipped, report.Failed, report.Duration)
			return nil
		},
	}
}

func recalculateStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate-stats",
		Short: "Rebuild creator balances, counters and CMO payouts from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Jobs.RecalculateStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("attributions=%d creators=%d cmo_payouts=%d total_commission=%s duration=%s\n",
				report.Attributions, report.Creators, report.CMOPayouts, report.TotalCommission.StringFixed(4), report.Duration)
			return nil
		},
	}
}

func analyzeLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze-logs",
		Short: "Summarize signature failures, login failures and errors from one day of logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			date, _ := cmd.Flags().GetString("date")
			report, err := logscan.Analyze(dir, date)
			if err != nil {
				return err
			}
			report.Print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringP("dir", "d", "./logs", "Log directory")
	cmd.Flags().String("date", time.Now().Format("2006-01-02"), "Day to analyze (YYYY-MM-DD)")

	return cmd
}
