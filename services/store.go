package services

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/protocol"
)

// EngineStore persists engine state across restarts. Writes happen on the
// request path after the engine has accepted a transition, so a store must
// tolerate being a step behind the in-memory state after a crash; the audit
// event table keeps the full history either way.
type EngineStore interface {
	SaveAccessState(providers []string, paused bool, cooldown time.Duration) error
	SaveBatchState(currentID uint64, open bool) error
	SaveSubmission(sub *protocol.Submission) error
	SaveRequest(req *protocol.DecryptionRequest) error
	SaveEvent(ev protocol.Event) error
	LoadState() (*EngineState, error)
	Close() error
}

// EngineState is the persisted snapshot used to rebuild an engine.
type EngineState struct {
	Providers []string
	Paused    bool
	Cooldown  time.Duration

	BatchID   uint64
	BatchOpen bool

	Submissions []*protocol.Submission
	Requests    []*protocol.DecryptionRequest
}

// RestoreEngine loads persisted state into a freshly constructed engine via
// the restore hooks. No events are emitted while rebuilding.
func RestoreEngine(engine *protocol.Engine, store EngineStore) error {
	state, err := store.LoadState()
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	for _, provider := range state.Providers {
		engine.Access.RestoreProvider(provider)
	}
	engine.Access.RestoreSettings(state.Paused, state.Cooldown)
	engine.Ledger.RestoreBatchState(state.BatchID, state.BatchOpen)
	for _, sub := range state.Submissions {
		engine.Ledger.RestoreSubmission(sub)
	}
	for _, req := range state.Requests {
		engine.Coordinator.RestoreRequest(req)
	}
	return nil
}

// InMemoryStore implements EngineStore for tests and single-process demo
// runs without a database.
type InMemoryStore struct {
	mu    sync.Mutex
	state EngineState

	hasAccessState bool
	hasBatchState  bool

	submissions map[string]*protocol.Submission
	requests    map[string]*protocol.DecryptionRequest
	events      []protocol.Event
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		submissions: make(map[string]*protocol.Submission),
		requests:    make(map[string]*protocol.DecryptionRequest),
	}
}

// SaveAccessState stores the current access-control snapshot.
func (s *InMemoryStore) SaveAccessState(providers []string, paused bool, cooldown time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Providers = append([]string(nil), providers...)
	s.state.Paused = paused
	s.state.Cooldown = cooldown
	s.hasAccessState = true
	return nil
}

// SaveBatchState stores the batch cursor.
func (s *InMemoryStore) SaveBatchState(currentID uint64, open bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.BatchID = currentID
	s.state.BatchOpen = open
	s.hasBatchState = true
	return nil
}

// SaveSubmission stores one submission, keyed by batch and provider.
func (s *InMemoryStore) SaveSubmission(sub *protocol.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sub
	s.submissions[submissionMapKey(sub.BatchID, sub.Provider)] = &copied
	return nil
}

// SaveRequest stores or updates one decryption request.
func (s *InMemoryStore) SaveRequest(req *protocol.DecryptionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *req
	s.requests[req.RequestID] = &copied
	return nil
}

// SaveEvent appends one audit event.
func (s *InMemoryStore) SaveEvent(ev protocol.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a snapshot of the stored audit events.
func (s *InMemoryStore) Events() []protocol.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Event(nil), s.events...)
}

// LoadState returns the stored snapshot, or nil if nothing was ever saved.
func (s *InMemoryStore) LoadState() (*EngineState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasAccessState && !s.hasBatchState && len(s.submissions) == 0 && len(s.requests) == 0 {
		return nil, nil
	}

	state := s.state
	state.Providers = append([]string(nil), s.state.Providers...)
	for _, sub := range s.submissions {
		copied := *sub
		state.Submissions = append(state.Submissions, &copied)
	}
	for _, req := range s.requests {
		copied := *req
		state.Requests = append(state.Requests, &copied)
	}
	return &state, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

func submissionMapKey(batchID uint64, provider string) string {
	return provider + "/" + strconv.FormatUint(batchID, 10)
}

// EventLog is an in-memory EventSink retained for the API's event listing
// endpoint.
type EventLog struct {
	mu     sync.RWMutex
	events []protocol.Event
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Emit implements protocol.EventSink.
func (l *EventLog) Emit(ev protocol.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Events returns a snapshot of all recorded events in emission order.
func (l *EventLog) Events() []protocol.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]protocol.Event(nil), l.events...)
}

// StoreSink forwards audit events into an EngineStore. Storage errors are
// logged and dropped; the engine does not roll back on sink failure.
type StoreSink struct {
	Store EngineStore
	Log   *slog.Logger
}

// Emit implements protocol.EventSink.
func (s *StoreSink) Emit(ev protocol.Event) {
	if err := s.Store.SaveEvent(ev); err != nil && s.Log != nil {
		s.Log.Error("could not persist audit event", "type", string(ev.Type), "err", err)
	}
}
