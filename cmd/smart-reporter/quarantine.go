package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/quarantine"
)

var quarantineCmd = &cobra.Command{
	Use:   "quarantine",
	Short: "Quarantine list tooling",
}

var quarantineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quarantined tests",
	RunE:  runQuarantineList,
}

var quarantinePatternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Print a grep pattern matching quarantined test titles",
	Long: `Pattern prints a | joined, regexp-quoted alternation of quarantined
test titles, usable as a runner's skip filter.`,
	RunE: runQuarantinePattern,
}

func init() {
	rootCmd.AddCommand(quarantineCmd)
	quarantineCmd.AddCommand(quarantineListCmd)
	quarantineCmd.AddCommand(quarantinePatternCmd)
}

func loadQuarantine() (quarantine.File, error) {
	cfg, err := loadConfig()
	if err != nil {
		return quarantine.File{}, err
	}

	gen := quarantine.NewGenerator(log, &cfg.Quarantine)

	return gen.Load(), nil
}

func runQuarantineList(cmd *cobra.Command, args []string) error {
	file, err := loadQuarantine()
	if err != nil {
		return err
	}

	if len(file.Entries) == 0 {
		fmt.Println("No quarantined tests")

		return nil
	}

	for _, e := range file.Entries {
		fmt.Printf("%s\n  reason: %s\n  since: %s\n  clean runs: %d\n",
			e.TestID, e.Reason, e.Since.Format(time.RFC3339), e.BelowThresholdRuns)
	}

	return nil
}

func runQuarantinePattern(cmd *cobra.Command, args []string) error {
	file, err := loadQuarantine()
	if err != nil {
		return err
	}

	pattern := file.SkipPattern()
	if pattern == "" {
		return nil
	}

	fmt.Println(pattern)

	return nil
}
