package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/engine"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/gate"
	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

var gateCmd = &cobra.Command{
	Use:   "gate <run-file>",
	Short: "Evaluate the quality gate for a run file",
	Long: `Gate analyzes a run file and applies the configured quality gate
rules. The command exits non-zero when the gate fails, for use in CI.`,
	Args: cobra.ExactArgs(1),
	RunE: runGate,
}

func init() {
	rootCmd.AddCommand(gateCmd)
}

func runGate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.QualityGate == nil {
		return fmt.Errorf("quality_gate section is required in config")
	}

	results, err := result.LoadRunFile(args[0])
	if err != nil {
		return fmt.Errorf("loading run file: %w", err)
	}

	eng := engine.New(log, cfg)

	report, err := eng.Run(context.Background(), "", results)
	if err != nil {
		return fmt.Errorf("analyzing run: %w", err)
	}

	printGate(report.Gate)

	if !report.Gate.Passed {
		return fmt.Errorf("quality gate failed")
	}

	return nil
}

func printGate(res *gate.Result) {
	verdict := "PASSED"
	if !res.Passed {
		verdict = "FAILED"
	}

	fmt.Printf("Quality gate: %s\n", verdict)

	for _, rule := range res.Rules {
		mark := "ok"

		switch {
		case rule.Skipped:
			mark = "skip"
		case !rule.Passed:
			mark = "FAIL"
		}

		fmt.Printf("  [%s] %s: %s\n", mark, rule.Name, rule.Detail)
	}
}
