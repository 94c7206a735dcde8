package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zecapture/graph/internal/graphcapture"
	"github.com/zecapture/graph/pkg/utils"
)

var (
	executeScenario   string
	executeForkPolicy string
	executePriority   int
	executeTimeout    time.Duration
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Capture, instantiate, and replay a demo scenario through the scheduler",
	Long: `execute runs the full lifecycle: capture a scenario, instantiate it, submit
it for replay through the worker-pool scheduler, and wait for the
scheduler to record a terminal outcome.`,
	RunE: runExecute,
}

func init() {
	rootCmd.AddCommand(executeCmd)
	executeCmd.Flags().StringVar(&executeScenario, "scenario", "linear", "Scenario to capture: linear or forkjoin")
	executeCmd.Flags().StringVar(&executeForkPolicy, "fork-policy", "monolithic", "Fork policy: monolithic or split")
	executeCmd.Flags().IntVar(&executePriority, "priority", 0, "Replay priority: 0 (background) or >0 (latency-sensitive)")
	executeCmd.Flags().DurationVar(&executeTimeout, "timeout", 5*time.Second, "How long to wait for the scheduler to finish replaying")
}

func runExecute(cmd *cobra.Command, args []string) error {
	env, err := newCLIEnv()
	if err != nil {
		return err
	}
	defer env.cleanup()

	policy, err := parseForkPolicy(executeForkPolicy)
	if err != nil {
		return err
	}

	timer := utils.NewTimer("execute", utils.WithLogger(logger))

	ctx := context.Background()
	capturePhase := timer.Start("capture")
	g, graphUUID, err := runCaptureScenario(ctx, env, executeScenario)
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

	if err := env.svc.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer env.svc.Stop()

	replayPhase := timer.Start("replay")
	submitted := env.svc.SubmitReplay(graphUUID, eg, executePriority, func(cl graphcapture.CommandList) error {
		logger.Debug("submitted replay onto command list %d for graph %s", cl.ID(), graphUUID)
		return nil
	})
	if !submitted {
		replayPhase.Stop()
		return fmt.Errorf("scheduler rejected replay request for graph %s", graphUUID)
	}

	rec, err := env.svc.WaitForOutcome(ctx, graphUUID, executeTimeout)
	replayPhase.Stop()
	if err != nil {
		return fmt.Errorf("waiting for replay of graph %s: %w", graphUUID, err)
	}
	timer.PrintSummary()
	printAuditRecord(rec)
	return nil
}
