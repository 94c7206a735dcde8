package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zecapture/graph/pkg/utils"
)

var (
	instantiateScenario string
	instantiateForkPolicy string
)

var instantiateCmd = &cobra.Command{
	Use:   "instantiate",
	Short: "Capture a demo scenario, then instantiate it into an executable graph",
	Long: `instantiate runs the capture phase of a scenario, then materializes the
resulting graph into replayable physical command lists under the given
fork policy, recording the outcome against the graph's audit entry.`,
	RunE: runInstantiate,
}

func init() {
	rootCmd.AddCommand(instantiateCmd)
	instantiateCmd.Flags().StringVar(&instantiateScenario, "scenario", "linear", "Scenario to capture: linear or forkjoin")
	instantiateCmd.Flags().StringVar(&instantiateForkPolicy, "fork-policy", "monolithic", "Fork policy: monolithic or split")
}

func runInstantiate(cmd *cobra.Command, args []string) error {
	env, err := newCLIEnv()
	if err != nil {
		return err
	}
	defer env.cleanup()

	policy, err := parseForkPolicy(instantiateForkPolicy)
	if err != nil {
		return err
	}

	timer := utils.NewTimer("instantiate", utils.WithLogger(logger))

	ctx := context.Background()
	capturePhase := timer.Start("capture")
	g, graphUUID, err := runCaptureScenario(ctx, env, instantiateScenario)
	capturePhase.Stop()
	if err != nil {
		return err
	}

	instantiatePhase := timer.Start("instantiate")
	eg, err := env.svc.Instantiate(ctx, graphUUID, g, policy)
	instantiatePhase.Stop()
	if err != nil {
		return fmt.Errorf("instantiating graph %s: %w", graphUUID, err)
	}
	defer eg.Destroy()

	timer.PrintSummary()
	logger.Info("instantiated graph %s into %d physical command list(s)", graphUUID, len(eg.PhysicalLists()))

	rec, err := env.svc.Inspect(ctx, graphUUID)
	if err != nil {
		return fmt.Errorf("reading back audit record: %w", err)
	}
	printAuditRecord(rec)
	return nil
}
