// Package model holds domain types shared between the graph-capture
// engine and its persistence layer.
package model

import "time"

// Outcome records which stage of a graph's lifecycle an audit entry
// describes.
type Outcome string

const (
	OutcomeCaptured     Outcome = "captured"
	OutcomeInstantiated Outcome = "instantiated"
	OutcomeExecuted     Outcome = "executed"
	OutcomeFailed       Outcome = "failed"
)

// GraphAuditRecord is a point-in-time snapshot of what happened to a
// captured graph: how large it was, which fork policy it was
// instantiated with, and whether replay succeeded.
type GraphAuditRecord struct {
	ID             int64     `json:"id"`
	GraphUUID      string    `json:"graph_uuid"`
	ContextID      uint64    `json:"context_id"`
	CommandCount   int       `json:"command_count"`
	SubgraphCount  int       `json:"subgraph_count"`
	ForkPolicy     string    `json:"fork_policy"`
	Outcome        Outcome   `json:"outcome"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	DurationMillis int64     `json:"duration_millis"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
