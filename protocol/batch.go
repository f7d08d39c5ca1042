package protocol

import (
	"sync"
	"time"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
)

// Submission is one provider's encrypted value in one batch. Submissions are
// write-once: created on first accepted submit, immutable thereafter, never
// deleted.
type Submission struct {
	BatchID     uint64                  `json:"batch_id"`
	Provider    string                  `json:"provider"`
	Handle      crypto.CiphertextHandle `json:"handle"`
	Commitment  crypto.Commitment       `json:"commitment"`
	SubmittedAt time.Time               `json:"submitted_at"`
}

type submissionKey struct {
	batchID  uint64
	provider string
}

// BatchLedger owns batch lifecycle state and every submission ever accepted.
// Batches are identified by a monotonically increasing id; at most one batch
// is open at any time. Closed batches are retained indefinitely for audit.
type BatchLedger struct {
	access   *AccessControl
	throttle *Throttle
	events   EventSink

	mu          sync.RWMutex
	currentID   uint64
	open        bool
	submissions map[submissionKey]*Submission
}

// NewBatchLedger creates a closed ledger at batch id 0.
func NewBatchLedger(access *AccessControl, throttle *Throttle, events EventSink) *BatchLedger {
	return &BatchLedger{
		access:      access,
		throttle:    throttle,
		events:      events,
		submissions: make(map[submissionKey]*Submission),
	}
}

// OpenBatch opens a submission window. Owner only, engine must not be paused.
//
// Calling OpenBatch while a batch is already open advances the batch id and
// keeps the ledger open: an implicit close-and-reopen under a fresh id.
// Calling it while closed reopens the current id without advancing. Opening
// twice in a row therefore yields two different batch ids, while a plain
// close/open cycle reuses the id that was closed. The asymmetry is
// deliberate: the id advances only on the open-while-open transition.
func (l *BatchLedger) OpenBatch(caller string) (uint64, error) {
	if caller != l.access.Owner() {
		return 0, ErrNotOwner
	}
	if l.access.IsPaused() {
		return 0, ErrPaused
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.open {
		l.currentID++
	}
	l.open = true

	ev := newEvent(EventBatchOpened)
	ev.BatchID = l.currentID
	l.events.Emit(ev)
	return l.currentID, nil
}

// CloseBatch closes the currently open batch. Owner only, engine must not be
// paused; fails with ErrInvalidBatch if no batch is open. The batch id is
// unchanged.
func (l *BatchLedger) CloseBatch(caller string) (uint64, error) {
	if caller != l.access.Owner() {
		return 0, ErrNotOwner
	}
	if l.access.IsPaused() {
		return 0, ErrPaused
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return 0, ErrInvalidBatch
	}
	l.open = false

	ev := newEvent(EventBatchClosed)
	ev.BatchID = l.currentID
	l.events.Emit(ev)
	return l.currentID, nil
}

// Submit records caller's encrypted value for the given batch. All
// preconditions are evaluated before any mutation; a failed submit leaves the
// ledger and the throttle untouched.
//
// Preconditions, in order: caller is a provider, engine not paused, batchID
// is the currently open batch, no prior submission for (batchID, caller),
// submission cooldown elapsed.
func (l *BatchLedger) Submit(caller string, batchID uint64, handle crypto.CiphertextHandle) (*Submission, error) {
	if !l.access.IsProvider(caller) {
		return nil, ErrNotProvider
	}
	if l.access.IsPaused() {
		return nil, ErrPaused
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open || batchID != l.currentID {
		return nil, ErrInvalidBatch
	}
	key := submissionKey{batchID: batchID, provider: caller}
	if _, exists := l.submissions[key]; exists {
		return nil, ErrAlreadyInitialized
	}
	if err := l.throttle.Check(caller, ActionSubmit, l.access.Cooldown()); err != nil {
		return nil, err
	}

	sub := &Submission{
		BatchID:     batchID,
		Provider:    caller,
		Handle:      handle,
		Commitment:  crypto.HandleCommitment(handle),
		SubmittedAt: time.Now().UTC(),
	}
	l.throttle.Record(caller, ActionSubmit)
	l.submissions[key] = sub

	ev := newEvent(EventSubmissionRecorded)
	ev.Actor = caller
	ev.BatchID = batchID
	ev.Commitment = sub.Commitment.String()
	l.events.Emit(ev)
	return sub, nil
}

// Submission returns the stored submission for (batchID, provider), if any.
func (l *BatchLedger) Submission(batchID uint64, provider string) (*Submission, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sub, ok := l.submissions[submissionKey{batchID: batchID, provider: provider}]
	return sub, ok
}

// CurrentBatch returns the current batch id and whether it is open.
func (l *BatchLedger) CurrentBatch() (uint64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentID, l.open
}

// Submissions returns a snapshot of every stored submission.
func (l *BatchLedger) Submissions() []*Submission {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Submission, 0, len(l.submissions))
	for _, sub := range l.submissions {
		out = append(out, sub)
	}
	return out
}

// RestoreBatchState sets the batch cursor directly. Used only when rebuilding
// an engine from persistent storage; emits no event.
func (l *BatchLedger) RestoreBatchState(currentID uint64, open bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentID = currentID
	l.open = open
}

// RestoreSubmission inserts a previously persisted submission directly. Used
// only when rebuilding an engine from persistent storage; emits no event.
func (l *BatchLedger) RestoreSubmission(sub *Submission) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submissions[submissionKey{batchID: sub.BatchID, provider: sub.Provider}] = sub
}
