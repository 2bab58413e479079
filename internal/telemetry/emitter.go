// Package telemetry records builder activity as durable operational events.
package telemetry

import (
	"context"
	"time"

	"github.com/louisbranch/threshold.games/internal/services/builder/storage"
)

// Severity describes the telemetry severity level.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Event names emitted by the builder service.
const (
	EventDropPerformed   = "builder.drop.performed"
	EventDropRejected    = "builder.drop.rejected"
	EventDefinitionSaved = "builder.definition.saved"
	EventHistoryUndone   = "builder.history.undone"
	EventHistoryRedone   = "builder.history.redone"
	EventSessionOpened   = "builder.session.opened"
	EventSessionClosed   = "builder.session.closed"
)

// BuilderEvent is one builder operation bound for the activity log.
type BuilderEvent struct {
	Name         string
	Severity     Severity
	DefinitionID string
	SessionID    string
	RequestID    string
}

// DefinitionSaved reports a definition create, update, or session save.
func DefinitionSaved(definitionID, sessionID string) BuilderEvent {
	return BuilderEvent{Name: EventDefinitionSaved, DefinitionID: definitionID, SessionID: sessionID}
}

// SessionOpened reports a new editing session over a definition.
func SessionOpened(definitionID, sessionID string) BuilderEvent {
	return BuilderEvent{Name: EventSessionOpened, DefinitionID: definitionID, SessionID: sessionID}
}

// SessionClosed reports an editing session ending.
func SessionClosed(definitionID, sessionID string) BuilderEvent {
	return BuilderEvent{Name: EventSessionClosed, DefinitionID: definitionID, SessionID: sessionID}
}

// DropPerformed reports a drop that mutated the tree.
func DropPerformed(definitionID, sessionID string) BuilderEvent {
	return BuilderEvent{Name: EventDropPerformed, DefinitionID: definitionID, SessionID: sessionID}
}

// DropRejected reports a drop refused by placement rules. It carries warn
// severity so rejected gestures stand out in the activity log.
func DropRejected(definitionID, sessionID string) BuilderEvent {
	return BuilderEvent{Name: EventDropRejected, Severity: SeverityWarn, DefinitionID: definitionID, SessionID: sessionID}
}

// HistoryUndone reports an applied undo.
func HistoryUndone(definitionID, sessionID string) BuilderEvent {
	return BuilderEvent{Name: EventHistoryUndone, DefinitionID: definitionID, SessionID: sessionID}
}

// HistoryRedone reports an applied redo.
func HistoryRedone(definitionID, sessionID string) BuilderEvent {
	return BuilderEvent{Name: EventHistoryRedone, DefinitionID: definitionID, SessionID: sessionID}
}

// Emitter appends builder events to a telemetry store.
type Emitter struct {
	store storage.TelemetryStore
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Record stamps and stores a builder event. Severity defaults to info and
// the timestamp to the emitter clock. It is a no-op without a store.
func (e *Emitter) Record(ctx context.Context, evt BuilderEvent) error {
	severity := evt.Severity
	if severity == "" {
		severity = SeverityInfo
	}
	return e.Emit(ctx, storage.TelemetryEvent{
		EventName:    evt.Name,
		Severity:     string(severity),
		DefinitionID: evt.DefinitionID,
		SessionID:    evt.SessionID,
		RequestID:    evt.RequestID,
	})
}

// Emit stores a raw telemetry event, stamping a missing timestamp.
func (e *Emitter) Emit(ctx context.Context, evt storage.TelemetryEvent) error {
	if e == nil || e.store == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	return e.store.AppendTelemetryEvent(ctx, evt)
}
