package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var captureScenario string

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a demo command stream into a graph and record its audit entry",
	Long: `capture drives the reference command-list implementation through a
small scripted command stream, ends the capture, and prints the audit
record StopCapturing produced.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVar(&captureScenario, "scenario", "linear", "Scenario to capture: linear or forkjoin")
}

func runCapture(cmd *cobra.Command, args []string) error {
	env, err := newCLIEnv()
	if err != nil {
		return err
	}
	defer env.cleanup()

	ctx := context.Background()
	_, graphUUID, err := runCaptureScenario(ctx, env, captureScenario)
	if err != nil {
		return err
	}

	rec, err := env.svc.Inspect(ctx, graphUUID)
	if err != nil {
		return fmt.Errorf("reading back audit record: %w", err)
	}
	printAuditRecord(rec)
	return nil
}
