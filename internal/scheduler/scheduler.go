// Package scheduler provides worker-pool based scheduling for replaying
// instantiated graphs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/zecapture/graph/internal/graphcapture"
	"github.com/zecapture/graph/internal/repository"
	"github.com/zecapture/graph/pkg/config"
	"github.com/zecapture/graph/pkg/utils"
)

// ReplayRequest asks the scheduler to submit an instantiated graph for
// execution.
type ReplayRequest struct {
	GraphUUID string
	Graph     *graphcapture.ExecutableGraph
	Submit    graphcapture.Submitter
	Priority  int // Higher value = higher priority
}

// ReplayProcessor processes a single replay request.
type ReplayProcessor interface {
	Process(ctx context.Context, req *ReplayRequest) error
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	PollInterval  time.Duration // reserved for periodic audit-state refresh
	WorkerCount   int           // number of concurrent workers
	PrioritySlots int           // reserved slots for high priority requests
	TaskBatchSize int           // the request queue holds up to twice this many requests
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval:  2 * time.Second,
		WorkerCount:   5,
		PrioritySlots: 2,
		TaskBatchSize: 10,
	}
}

// FromConfig creates scheduler config from application config.
func FromConfig(cfg *config.SchedulerConfig) *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval:  time.Duration(cfg.PollInterval) * time.Second,
		WorkerCount:   cfg.WorkerCount,
		PrioritySlots: cfg.PrioritySlots,
		TaskBatchSize: cfg.TaskBatchSize,
	}
}

// Scheduler manages a worker pool that replays instantiated graphs,
// gating low-priority requests behind a reserved slot count so a burst of
// background replays can't starve latency-sensitive ones.
type Scheduler struct {
	config    *SchedulerConfig
	processor ReplayProcessor
	auditRepo repository.GraphAuditRepository
	logger    utils.Logger

	workerPool chan struct{}        // semaphore for worker count
	taskQueue  chan *ReplayRequest  // request queue
	wg         sync.WaitGroup       // wait group for in-flight workers
	mu         sync.Mutex

	running bool
	stopCh  chan struct{}
}

// New creates a new Scheduler.
func New(cfg *SchedulerConfig, processor ReplayProcessor, auditRepo repository.GraphAuditRepository, logger utils.Logger) *Scheduler {
	if cfg == nil {
		cfg = DefaultSchedulerConfig()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Scheduler{
		config:     cfg,
		processor:  processor,
		auditRepo:  auditRepo,
		logger:     logger,
		workerPool: make(chan struct{}, cfg.WorkerCount),
		taskQueue:  make(chan *ReplayRequest, cfg.TaskBatchSize*2),
		stopCh:     make(chan struct{}),
	}
}

// Start starts the scheduler's worker pool and processing loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler with %d workers", s.config.WorkerCount)

	s.running = true
	for i := 0; i < s.config.WorkerCount; i++ {
		s.workerPool <- struct{}{}
	}

	go s.processLoop(ctx)
	return nil
}

// Stop stops the scheduler gracefully, waiting for in-flight replays.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler...")
	s.running = false
	close(s.stopCh)

	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// Submit enqueues a replay request, applying priority gating. Returns
// false if the request was rejected (no capacity for its priority class
// or the queue is full).
func (s *Scheduler) Submit(req *ReplayRequest) bool {
	if !s.shouldAcceptRequest(req) {
		s.logger.Debug("Rejecting replay request for graph %s due to priority constraints", req.GraphUUID)
		return false
	}

	select {
	case s.taskQueue <- req:
		return true
	default:
		s.logger.Warn("Replay queue full, rejecting request for graph %s", req.GraphUUID)
		return false
	}
}

// shouldAcceptRequest determines if a request should be accepted based on
// priority: non-priority requests may only use the non-reserved slots.
func (s *Scheduler) shouldAcceptRequest(req *ReplayRequest) bool {
	activeWorkers := s.config.WorkerCount - len(s.workerPool)
	reservedSlots := s.config.WorkerCount - s.config.PrioritySlots

	if req.Priority > 0 {
		return activeWorkers < s.config.WorkerCount
	}
	return activeWorkers < reservedSlots
}

// processLoop dispatches queued requests onto free workers.
func (s *Scheduler) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case req := <-s.taskQueue:
			select {
			case <-s.workerPool:
				s.wg.Add(1)
				go s.processRequest(ctx, req)
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			}
		}
	}
}

// processRequest replays one request and records the outcome.
func (s *Scheduler) processRequest(ctx context.Context, req *ReplayRequest) {
	defer func() {
		s.workerPool <- struct{}{}
		s.wg.Done()
	}()

	s.logger.Info("Replaying graph %s (priority %d)", req.GraphUUID, req.Priority)

	startTime := time.Now()
	err := s.processor.Process(ctx, req)
	duration := time.Since(startTime)

	if s.auditRepo != nil {
		if recErr := s.auditRepo.RecordExecution(ctx, req.GraphUUID, duration, err); recErr != nil {
			s.logger.Warn("Failed to record execution audit for graph %s: %v", req.GraphUUID, recErr)
		}
	}

	if err != nil {
		s.logger.Error("Replay of graph %s failed after %v: %v", req.GraphUUID, duration, err)
		return
	}
	s.logger.Info("Replay of graph %s completed successfully in %v", req.GraphUUID, duration)
}

// Stats returns current scheduler statistics.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		ActiveWorkers: s.config.WorkerCount - len(s.workerPool),
		TotalWorkers:  s.config.WorkerCount,
		QueuedRequests: len(s.taskQueue),
		Running:       s.running,
	}
}

// SchedulerStats holds scheduler statistics.
type SchedulerStats struct {
	ActiveWorkers  int  `json:"active_workers"`
	TotalWorkers   int  `json:"total_workers"`
	QueuedRequests int  `json:"queued_requests"`
	Running        bool `json:"running"`
}
