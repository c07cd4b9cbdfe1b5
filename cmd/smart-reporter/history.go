package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/history"
)

var (
	historyOut     string
	historyMaxRuns int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "History file tooling",
}

var historyMergeCmd = &cobra.Command{
	Use:   "merge <file>...",
	Short: "Merge history files",
	Long: `Merge combines multiple history files into one: runs are
deduplicated by run id, per-test entries are re-sorted chronologically,
and the result is trimmed to the retention window.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHistoryMerge,
}

var historyTrimCmd = &cobra.Command{
	Use:   "trim <file>",
	Short: "Trim a history file to the retention window",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryTrim,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyMergeCmd)
	historyCmd.AddCommand(historyTrimCmd)

	historyMergeCmd.Flags().StringVar(&historyOut, "out", "", "output file (required)")
	historyMergeCmd.Flags().IntVar(&historyMaxRuns, "max-runs", 0,
		"retention window in runs (0 uses the configured value)")
	_ = historyMergeCmd.MarkFlagRequired("out")

	historyTrimCmd.Flags().IntVar(&historyMaxRuns, "max-runs", 0,
		"retention window in runs (0 uses the configured value)")
}

func retentionWindow() (int, error) {
	if historyMaxRuns > 0 {
		return historyMaxRuns, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return 0, err
	}

	return cfg.History.MaxRuns, nil
}

func runHistoryMerge(cmd *cobra.Command, args []string) error {
	maxRuns, err := retentionWindow()
	if err != nil {
		return err
	}

	histories := make([]*history.TestHistory, 0, len(args))

	for _, path := range args {
		h, err := history.LoadFile(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}

		histories = append(histories, h)
	}

	merged := history.Merge(maxRuns, histories...)

	if err := history.WriteFile(historyOut, merged); err != nil {
		return fmt.Errorf("writing merged history: %w", err)
	}

	fmt.Printf("Merged %d files into %s: %d runs, %d tests\n",
		len(args), historyOut, len(merged.Runs), len(merged.Tests))

	return nil
}

func runHistoryTrim(cmd *cobra.Command, args []string) error {
	maxRuns, err := retentionWindow()
	if err != nil {
		return err
	}

	h, err := history.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("loading %s: %w", args[0], err)
	}

	h.Trim(maxRuns)

	if err := history.WriteFile(args[0], h); err != nil {
		return fmt.Errorf("writing trimmed history: %w", err)
	}

	fmt.Printf("Trimmed %s to %d runs\n", args[0], len(h.Runs))

	return nil
}
