package protocol

import (
	"log/slog"
	"time"
)

// EventType identifies an entry in the audit event stream.
type EventType string

const (
	EventProviderAdded       EventType = "provider_added"
	EventProviderRemoved     EventType = "provider_removed"
	EventCooldownSet         EventType = "cooldown_set"
	EventPausedSet           EventType = "paused_set"
	EventBatchOpened         EventType = "batch_opened"
	EventBatchClosed         EventType = "batch_closed"
	EventSubmissionRecorded  EventType = "submission_recorded"
	EventDecryptionRequested EventType = "decryption_requested"
	EventDecryptionCompleted EventType = "decryption_completed"
)

// Event is one entry in the audit stream. Exactly one event is emitted per
// successful state transition; failed operations emit nothing.
//
// Submission events carry only the commitment to the encrypted value, never
// the handle itself.
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	Actor      string `json:"actor,omitempty"`
	BatchID    uint64 `json:"batch_id,omitempty"`
	Commitment string `json:"commitment,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	ClearValue uint64 `json:"clear_value,omitempty"`
	Cooldown   string `json:"cooldown,omitempty"`
	Paused     bool   `json:"paused,omitempty"`
}

// EventSink receives audit events. Implementations must not block; the engine
// emits events while holding component locks.
type EventSink interface {
	Emit(Event)
}

// SlogSink logs every event through a structured logger.
type SlogSink struct {
	Log *slog.Logger
}

// Emit implements EventSink.
func (s *SlogSink) Emit(ev Event) {
	s.Log.Info("audit event",
		"type", string(ev.Type),
		"actor", ev.Actor,
		"batch", ev.BatchID,
		"request", ev.RequestID,
	)
}

// MultiSink fans an event out to several sinks.
type MultiSink []EventSink

// Emit implements EventSink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// NopSink discards events.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(Event) {}

func newEvent(t EventType) Event {
	return Event{Type: t, Time: time.Now().UTC()}
}
