package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zecapture/graph/pkg/model"
	"gorm.io/gorm"
)

// GormGraphAuditRepository implements GraphAuditRepository using GORM.
type GormGraphAuditRepository struct {
	db *gorm.DB
}

// NewGormGraphAuditRepository creates a new GormGraphAuditRepository. db
// is expected to already have the opentelemetry tracing plugin
// registered (see NewDB in db.go) so every query below emits a span.
func NewGormGraphAuditRepository(db *gorm.DB) *GormGraphAuditRepository {
	return &GormGraphAuditRepository{db: db}
}

// AutoMigrate creates or updates the audit table schema.
func (r *GormGraphAuditRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&GraphAuditRow{})
}

// RecordCapture inserts a new audit record for a just-closed graph.
func (r *GormGraphAuditRepository) RecordCapture(ctx context.Context, graphUUID string, contextID uint64, commandCount, subgraphCount int) error {
	now := time.Now()
	row := &GraphAuditRow{
		GraphUUID:     graphUUID,
		ContextID:     contextID,
		CommandCount:  commandCount,
		SubgraphCount: subgraphCount,
		Outcome:       string(model.OutcomeCaptured),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to record capture for graph %s: %w", graphUUID, err)
	}
	return nil
}

// RecordInstantiation updates the record's fork policy and outcome.
func (r *GormGraphAuditRepository) RecordInstantiation(ctx context.Context, graphUUID string, forkPolicy string, instErr error) error {
	updates := map[string]interface{}{
		"fork_policy": forkPolicy,
		"updated_at":  time.Now(),
	}
	if instErr != nil {
		updates["outcome"] = string(model.OutcomeFailed)
		updates["error_message"] = instErr.Error()
	} else {
		updates["outcome"] = string(model.OutcomeInstantiated)
	}

	return r.updateByUUID(ctx, graphUUID, updates)
}

// RecordExecution updates the record's outcome and replay duration.
func (r *GormGraphAuditRepository) RecordExecution(ctx context.Context, graphUUID string, duration time.Duration, execErr error) error {
	updates := map[string]interface{}{
		"duration_millis": duration.Milliseconds(),
		"updated_at":      time.Now(),
	}
	if execErr != nil {
		updates["outcome"] = string(model.OutcomeFailed)
		updates["error_message"] = execErr.Error()
	} else {
		updates["outcome"] = string(model.OutcomeExecuted)
	}

	return r.updateByUUID(ctx, graphUUID, updates)
}

func (r *GormGraphAuditRepository) updateByUUID(ctx context.Context, graphUUID string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&GraphAuditRow{}).
		Where("graph_uuid = ?", graphUUID).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update audit record for graph %s: %w", graphUUID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("audit record not found for graph: %s", graphUUID)
	}
	return nil
}

// GetByGraphUUID retrieves the audit record for a graph.
func (r *GormGraphAuditRepository) GetByGraphUUID(ctx context.Context, graphUUID string) (*model.GraphAuditRecord, error) {
	var row GraphAuditRow

	err := r.db.WithContext(ctx).Where("graph_uuid = ?", graphUUID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("audit record not found for graph: %s", graphUUID)
		}
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}

	return row.ToModel(), nil
}

// ListRecent retrieves the most recently updated audit records.
func (r *GormGraphAuditRepository) ListRecent(ctx context.Context, limit int) ([]*model.GraphAuditRecord, error) {
	var rows []GraphAuditRow

	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent audit records: %w", err)
	}

	records := make([]*model.GraphAuditRecord, len(rows))
	for i, row := range rows {
		records[i] = row.ToModel()
	}
	return records, nil
}
