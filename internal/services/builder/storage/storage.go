// Package storage defines persistence contracts for rule-definition state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested rule definition is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// RuleDefinition stores one prerequisite rule definition for a campaign. Tree
// holds the serialized requirement tree JSON, the sole boundary contract with
// the builder engine.
type RuleDefinition struct {
	ID          string
	CampaignID  string
	Name        string
	Description string
	Tree        []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RuleDefinitionPage stores one page of rule-definition records.
type RuleDefinitionPage struct {
	Definitions   []RuleDefinition
	NextPageToken string
}

// RuleDefinitionStore persists rule-definition records.
type RuleDefinitionStore interface {
	CreateRuleDefinition(ctx context.Context, definition RuleDefinition) error
	GetRuleDefinition(ctx context.Context, id string) (RuleDefinition, error)
	ListRuleDefinitions(ctx context.Context, campaignID string, pageSize int, pageToken string) (RuleDefinitionPage, error)
	UpdateRuleDefinition(ctx context.Context, definition RuleDefinition) error
	DeleteRuleDefinition(ctx context.Context, id string) error
}

// TelemetryEvent captures operational observations emitted during builder
// operations.
type TelemetryEvent struct {
	Timestamp      time.Time
	EventName      string
	Severity       string
	DefinitionID   string
	SessionID      string
	RequestID      string
	TraceID        string
	SpanID         string
	Attributes     map[string]any
	AttributesJSON []byte
}

// TelemetryStore persists telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, evt TelemetryEvent) error
}

// Store aggregates the persistence surfaces the builder service needs.
type Store interface {
	RuleDefinitionStore
	TelemetryStore
}
