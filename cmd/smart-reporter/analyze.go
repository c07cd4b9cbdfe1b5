package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/engine"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

var (
	analyzeRunID string
	analyzeJSON  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <run-file>",
	Short: "Analyze a run file against its history",
	Long: `Analyze reads a run results file, computes per-test flakiness,
performance, retry and stability signals against the stored history,
and appends the run to the history file.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeRunID, "run-id", "",
		"Run identifier (generated when empty)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false,
		"Print the full report as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	results, err := result.LoadRunFile(args[0])
	if err != nil {
		return fmt.Errorf("loading run file: %w", err)
	}

	eng := engine.New(log, cfg)

	report, err := eng.Run(context.Background(), analyzeRunID, results)
	if err != nil {
		return fmt.Errorf("analyzing run: %w", err)
	}

	if analyzeJSON {
		out := struct {
			*engine.Report
			Tests []*result.TestResult `json:"tests"`
		}{report, report.Results.All()}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}

		return nil
	}

	printReport(report)

	return nil
}

func printReport(report *engine.Report) {
	s := report.Summary

	fmt.Printf("Run %s: %d/%d passed (%.2f%%), %d failed, %d skipped, %d flaky, grade %s\n",
		s.RunID, s.Passed, s.Total, s.PassRate, s.Failed, s.Skipped, s.Flaky, s.Grade)

	if cmp := report.Comparison; cmp != nil {
		fmt.Printf("Versus %s: %d new failures, %d fixed, %d new tests, %d regressions, %d improvements\n",
			cmp.Baseline.RunID, len(cmp.NewFailures), len(cmp.FixedTests),
			len(cmp.NewTests), len(cmp.Regressions), len(cmp.Improvements))
	}

	for _, c := range report.Clusters {
		fmt.Printf("Cluster %s (%d): %s\n", c.ID, c.Count, c.Label)
	}

	for _, r := range report.Results.All() {
		if r.Stability != nil && r.Stability.NeedsAttention {
			fmt.Printf("Needs attention: %s (grade %s, score %d)\n",
				r.Key(), r.Stability.Grade, r.Stability.Overall)
		}
	}

	if report.Gate != nil {
		printGate(report.Gate)
	}

	if report.Quarantine != nil && len(report.Quarantine.Entries) > 0 {
		fmt.Printf("Quarantined tests: %d\n", len(report.Quarantine.Entries))
	}
}
