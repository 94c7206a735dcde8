// Package service wires the graph-capture engine, the replay scheduler,
// and the audit repository together behind the operations the CLI
// exposes: capture, instantiate, execute, and inspect.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zecapture/graph/internal/graphcapture"
	"github.com/zecapture/graph/internal/repository"
	"github.com/zecapture/graph/internal/scheduler"
	"github.com/zecapture/graph/pkg/config"
	"github.com/zecapture/graph/pkg/model"
	"github.com/zecapture/graph/pkg/parallel"
	"github.com/zecapture/graph/pkg/utils"
)

var tracer = otel.Tracer("github.com/zecapture/graph/internal/service")

// Service is the facade the CLI drives: it owns an Engine, a Scheduler,
// and the audit repository those two report into.
type Service struct {
	cfg       *config.Config
	logger    utils.Logger
	engine    *graphcapture.Engine
	sched     *scheduler.Scheduler
	auditRepo repository.GraphAuditRepository
	exporter  *repository.AuditExporter
	clock     utils.Clock
}

// New builds a Service. exporter may be nil (object-storage export
// disabled); auditRepo must not be nil.
func New(cfg *config.Config, logger utils.Logger, auditRepo repository.GraphAuditRepository, exporter *repository.AuditExporter, factory graphcapture.CommandListFactory) *Service {
	s := &Service{
		cfg:       cfg,
		logger:    logger,
		engine:    graphcapture.NewEngine(factory),
		auditRepo: auditRepo,
		exporter:  exporter,
		clock:     utils.NewRealClock(),
	}
	s.sched = scheduler.New(scheduler.FromConfig(&cfg.Scheduler), s, auditRepo, logger)
	return s
}

// SetClock overrides the clock WaitForOutcome polls against. Tests use
// this to swap in a utils.MockClock instead of waiting on real time.
func (s *Service) SetClock(clock utils.Clock) {
	s.clock = clock
}

// Start brings up the replay scheduler's worker pool.
func (s *Service) Start(ctx context.Context) error {
	return s.sched.Start(ctx)
}

// Stop drains the replay scheduler.
func (s *Service) Stop() {
	s.sched.Stop()
}

// Process implements scheduler.ReplayProcessor: it's how a queued replay
// request actually reaches the engine.
func (s *Service) Process(ctx context.Context, req *scheduler.ReplayRequest) error {
	ctx, span := tracer.Start(ctx, "graphcapture.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("graph.uuid", req.GraphUUID))

	err := s.engine.Execute(req.Graph, nil, nil, nil, req.Submit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// BeginCapture starts recording cl's appends into a fresh graph,
// spanning SPEC_FULL.md's StartCapturing boundary.
func (s *Service) BeginCapture(ctx context.Context, cl graphcapture.CommandList) (*graphcapture.Graph, error) {
	_, span := tracer.Start(ctx, "graphcapture.StartCapturing")
	defer span.End()

	g, err := s.engine.BeginCapture(cl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("graph.context_id", int64(cl.Context().ID())))
	return g, nil
}

// EndCapture stops recording on cl, persists an audit record for the
// resulting graph family, and returns the graph's freshly assigned UUID
// alongside the graph itself.
func (s *Service) EndCapture(ctx context.Context, cl graphcapture.CommandList) (*graphcapture.Graph, string, error) {
	ctx, span := tracer.Start(ctx, "graphcapture.StopCapturing")
	defer span.End()

	g, err := s.engine.EndCapture(cl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}

	graphUUID := uuid.NewString()
	commandCount := len(g.GetCapturedCommands())
	subgraphCount := g.SubgraphCount()
	span.SetAttributes(
		attribute.String("graph.uuid", graphUUID),
		attribute.Int("graph.command_count", commandCount),
		attribute.Int("graph.subgraph_count", subgraphCount),
	)

	if err := s.auditRepo.RecordCapture(ctx, graphUUID, g.GetContext().ID(), commandCount, subgraphCount); err != nil {
		s.logger.Warn("failed to record capture audit for graph %s: %v", graphUUID, err)
	}
	return g, graphUUID, nil
}

// Instantiate materializes g into an ExecutableGraph under policy,
// recording the outcome (success or failure) against graphUUID's audit
// trail.
func (s *Service) Instantiate(ctx context.Context, graphUUID string, g *graphcapture.Graph, policy graphcapture.ForkPolicy) (*graphcapture.ExecutableGraph, error) {
	ctx, span := tracer.Start(ctx, "graphcapture.Instantiate")
	defer span.End()
	span.SetAttributes(
		attribute.String("graph.uuid", graphUUID),
		attribute.String("graph.fork_policy", policy.String()),
	)

	settings := graphcapture.GraphInstantiateSettings{
		ForkPolicy:              policy,
		DisablePatchingPreamble: s.cfg.Engine.ForceDisableGraphPatchPreamble,
	}
	eg, err := s.engine.Instantiate(g, settings)
	if recErr := s.auditRepo.RecordInstantiation(ctx, graphUUID, policy.String(), err); recErr != nil {
		s.logger.Warn("failed to record instantiation audit for graph %s: %v", graphUUID, recErr)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return eg, nil
}

// SubmitReplay enqueues eg for replay through the scheduler's worker
// pool. submit is the physical dispatch callback invoked once the
// engine has appended the replay's wait/signal bracketing.
func (s *Service) SubmitReplay(graphUUID string, eg *graphcapture.ExecutableGraph, priority int, submit graphcapture.Submitter) bool {
	return s.sched.Submit(&scheduler.ReplayRequest{
		GraphUUID: graphUUID,
		Graph:     eg,
		Submit:    submit,
		Priority:  priority,
	})
}

// WaitForOutcome polls the audit repository until graphUUID's record
// reaches a terminal outcome (executed or failed) or timeout elapses.
// The scheduler records outcomes asynchronously from its own worker
// goroutines, so a CLI caller that just submitted a replay has no other
// signal to block on.
func (s *Service) WaitForOutcome(ctx context.Context, graphUUID string, timeout time.Duration) (*model.GraphAuditRecord, error) {
	deadline := s.clock.Now().Add(timeout)
	for {
		rec, err := s.auditRepo.GetByGraphUUID(ctx, graphUUID)
		if err != nil {
			return nil, err
		}
		if rec.Outcome == model.OutcomeExecuted || rec.Outcome == model.OutcomeFailed {
			return rec, nil
		}
		if s.clock.Now().After(deadline) {
			return rec, fmt.Errorf("timed out waiting for graph %s to finish replaying", graphUUID)
		}
		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-s.clock.After(20 * time.Millisecond):
		}
	}
}

// Inspect returns the audit record for a single graph.
func (s *Service) Inspect(ctx context.Context, graphUUID string) (*model.GraphAuditRecord, error) {
	return s.auditRepo.GetByGraphUUID(ctx, graphUUID)
}

// InspectRecent returns the most recently updated audit records.
func (s *Service) InspectRecent(ctx context.Context, limit int) ([]*model.GraphAuditRecord, error) {
	return s.auditRepo.ListRecent(ctx, limit)
}

// ExportRecent uploads the limit most recently updated audit records to
// object storage concurrently, returning the count that succeeded before
// the first error (if any). Unlike instantiation's replay-order-sensitive
// planning, exporting independent, already-persisted records to
// independent object-storage keys has no ordering requirement between
// records, so this is the bulk operation pkg/parallel backs in this
// codebase.
func (s *Service) ExportRecent(ctx context.Context, limit int) (int64, error) {
	if s.exporter == nil {
		return 0, fmt.Errorf("no object storage exporter configured")
	}

	records, err := s.auditRepo.ListRecent(ctx, limit)
	if err != nil {
		return 0, err
	}

	processed, err := parallel.ForEach(ctx, records, parallel.DefaultPoolConfig(), func(ctx context.Context, record *model.GraphAuditRecord) error {
		return s.exporter.Export(ctx, record)
	})
	if err != nil {
		return processed, fmt.Errorf("export failed after %d of %d records: %w", processed, len(records), err)
	}
	return processed, nil
}
