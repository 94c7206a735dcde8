package cmd

import (
	"context"
	"fmt"

	"github.com/zecapture/graph/internal/graphcapture"
	"github.com/zecapture/graph/internal/refdriver"
)

// runCaptureScenario issues a small demo command stream against the
// reference driver and closes it, returning the resulting graph and its
// audit UUID.
func runCaptureScenario(ctx context.Context, env *cliEnv, scenario string) (*graphcapture.Graph, string, error) {
	switch scenario {
	case "linear":
		return captureLinear(ctx, env)
	case "forkjoin":
		return captureForkJoin(ctx, env)
	default:
		return nil, "", fmt.Errorf("unknown scenario %q (valid: linear, forkjoin)", scenario)
	}
}

// captureLinear records a single command list with one kernel launch
// followed by a barrier: no forks, the simplest possible graph.
func captureLinear(ctx context.Context, env *cliEnv) (*graphcapture.Graph, string, error) {
	cl := refdriver.NewCommandList(env.ctx, env.dev, false)
	if _, err := env.svc.BeginCapture(ctx, cl); err != nil {
		return nil, "", fmt.Errorf("beginning capture: %w", err)
	}

	kernel := refdriver.NewKernel("vector_add")
	if _, err := graphcapture.CaptureLaunchKernel(cl, graphcapture.LaunchKernelArgs{
		KernelID:   kernel.ID(),
		GroupCount: [3]uint32{64, 1, 1},
	}, kernel, nil, nil); err != nil {
		return nil, "", fmt.Errorf("recording kernel launch: %w", err)
	}
	if _, err := graphcapture.CaptureBarrier(cl, graphcapture.BarrierArgs{}, nil, nil); err != nil {
		return nil, "", fmt.Errorf("recording barrier: %w", err)
	}

	g, graphUUID, err := env.svc.EndCapture(ctx, cl)
	if err != nil {
		return nil, "", fmt.Errorf("ending capture: %w", err)
	}
	logger.Info("captured linear scenario into graph %s (%d commands)", graphUUID, len(g.GetCapturedCommands()))
	return g, graphUUID, nil
}

// captureForkJoin records a parent command list that signals forkEvent,
// an immediate-mode child command list that waits on forkEvent (which
// the dispatcher detects as a fork purely from that wait/signal pair,
// per SPEC_FULL.md §2), and a join back onto the parent.
func captureForkJoin(ctx context.Context, env *cliEnv) (*graphcapture.Graph, string, error) {
	parent := refdriver.NewCommandList(env.ctx, env.dev, false)
	if _, err := env.svc.BeginCapture(ctx, parent); err != nil {
		return nil, "", fmt.Errorf("beginning capture: %w", err)
	}

	forkEvent := refdriver.NewEvent(false)
	if _, err := graphcapture.CaptureSignalEvent(parent, forkEvent); err != nil {
		return nil, "", fmt.Errorf("recording fork signal: %w", err)
	}

	child := refdriver.NewImmediateCommandList(env.ctx, env.dev)
	kernel := refdriver.NewKernel("reduce")
	if _, err := graphcapture.CaptureLaunchKernel(child, graphcapture.LaunchKernelArgs{
		KernelID: kernel.ID(),
	}, kernel, []graphcapture.Event{forkEvent}, nil); err != nil {
		return nil, "", fmt.Errorf("forking onto child command list: %w", err)
	}

	joinEvent := refdriver.NewEvent(false)
	if _, err := graphcapture.CaptureSignalEvent(child, joinEvent); err != nil {
		return nil, "", fmt.Errorf("recording join signal: %w", err)
	}
	if _, err := graphcapture.CaptureWaitOnEvents(parent, []graphcapture.Event{joinEvent}); err != nil {
		return nil, "", fmt.Errorf("recording join wait: %w", err)
	}

	g, graphUUID, err := env.svc.EndCapture(ctx, parent)
	if err != nil {
		return nil, "", fmt.Errorf("ending capture: %w", err)
	}
	logger.Info("captured forkjoin scenario into graph %s (%d subgraphs)", graphUUID, len(g.GetSubgraphs()))
	return g, graphUUID, nil
}

func parseForkPolicy(s string) (graphcapture.ForkPolicy, error) {
	switch s {
	case "monolithic":
		return graphcapture.MonolithicLevels, nil
	case "split":
		return graphcapture.SplitLevels, nil
	default:
		return 0, fmt.Errorf("unknown fork policy %q (valid: monolithic, split)", s)
	}
}
