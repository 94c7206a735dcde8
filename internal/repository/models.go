package repository

import (
	"time"

	"github.com/zecapture/graph/pkg/model"
)

// GraphAuditRow is the GORM row backing a GraphAuditRecord.
type GraphAuditRow struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	GraphUUID      string `gorm:"column:graph_uuid;uniqueIndex;size:64"`
	ContextID      uint64 `gorm:"column:context_id"`
	CommandCount   int    `gorm:"column:command_count"`
	SubgraphCount  int    `gorm:"column:subgraph_count"`
	ForkPolicy     string `gorm:"column:fork_policy;size:32"`
	Outcome        string `gorm:"column:outcome;size:32"`
	ErrorMessage   string `gorm:"column:error_message;type:text"`
	DurationMillis int64  `gorm:"column:duration_millis"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName pins the table name regardless of GORM's pluralization
// conventions.
func (GraphAuditRow) TableName() string {
	return "graph_audit_records"
}

// ToModel converts the row into the domain type.
func (r GraphAuditRow) ToModel() *model.GraphAuditRecord {
	return &model.GraphAuditRecord{
		ID:             r.ID,
		GraphUUID:      r.GraphUUID,
		ContextID:      r.ContextID,
		CommandCount:   r.CommandCount,
		SubgraphCount:  r.SubgraphCount,
		ForkPolicy:     r.ForkPolicy,
		Outcome:        model.Outcome(r.Outcome),
		ErrorMessage:   r.ErrorMessage,
		DurationMillis: r.DurationMillis,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
