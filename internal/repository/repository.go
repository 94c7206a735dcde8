// Package repository provides database abstraction for the graph-capture
// audit trail. This is an independent record of what happened to a
// captured graph (sizes, fork policy, outcome) — not a DOT-style export
// of the graph's structure, which stays out of scope.
package repository

import (
	"context"
	"time"

	"github.com/zecapture/graph/pkg/model"
)

// GraphAuditRepository defines the interface for recording and querying
// the lifecycle of captured graphs.
type GraphAuditRepository interface {
	// RecordCapture inserts a new audit record once a graph finishes
	// capturing (StopCapturing has returned).
	RecordCapture(ctx context.Context, graphUUID string, contextID uint64, commandCount, subgraphCount int) error

	// RecordInstantiation updates the audit record with the fork policy
	// a graph was instantiated under, or the failure if instantiation
	// failed.
	RecordInstantiation(ctx context.Context, graphUUID string, forkPolicy string, err error) error

	// RecordExecution updates the audit record with the outcome of a
	// replay submission.
	RecordExecution(ctx context.Context, graphUUID string, duration time.Duration, err error) error

	// GetByGraphUUID retrieves the audit record for a graph.
	GetByGraphUUID(ctx context.Context, graphUUID string) (*model.GraphAuditRecord, error)

	// ListRecent retrieves the most recently updated audit records.
	ListRecent(ctx context.Context, limit int) ([]*model.GraphAuditRecord, error)
}
