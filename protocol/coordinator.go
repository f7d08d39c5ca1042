package protocol

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
)

// ClearValueLength is the exact encoding length of a decrypted payment
// amount: a big-endian uint64. Callbacks with any other length are rejected
// before the proof is even looked at.
const ClearValueLength = 8

// DecryptionRequest tracks one outstanding or finalized oracle request.
// Processed transitions false to true exactly once, on the first valid
// callback; the record is retained afterwards for audit and replay checks.
type DecryptionRequest struct {
	RequestID      string            `json:"request_id"`
	BatchID        uint64            `json:"batch_id"`
	TargetProvider string            `json:"target_provider"`
	StateHash      crypto.Commitment `json:"state_hash"`
	RequestedBy    string            `json:"requested_by"`
	RequestedAt    time.Time         `json:"requested_at"`
	Processed      bool              `json:"processed"`
	ClearValue     uint64            `json:"clear_value,omitempty"`
	ProcessedAt    time.Time         `json:"processed_at,omitempty"`
}

// Coordinator issues decryption requests bound to the exact ciphertext state
// being decrypted and consumes the oracle's callbacks. It holds a read-only
// reference into the ledger to recompute state hashes at callback time.
//
// RequestDecryption and HandleCallback are two independent entry points
// separated by unbounded oracle latency; no lock is held across that gap.
// The state-hash check is what makes this safe.
type Coordinator struct {
	access   *AccessControl
	throttle *Throttle
	ledger   *BatchLedger
	oracle   Oracle
	events   EventSink

	// verifyKey is the oracle's known verification key; contextID
	// disambiguates this protocol instance in commitments and proofs.
	verifyKey crypto.PublicKey
	contextID string

	mu       sync.RWMutex
	requests map[string]*DecryptionRequest
}

// NewCoordinator creates a coordinator with an empty request table.
func NewCoordinator(access *AccessControl, throttle *Throttle, ledger *BatchLedger,
	oracle Oracle, verifyKey crypto.PublicKey, contextID string, events EventSink) *Coordinator {

	return &Coordinator{
		access:    access,
		throttle:  throttle,
		ledger:    ledger,
		oracle:    oracle,
		events:    events,
		verifyKey: verifyKey,
		contextID: contextID,
		requests:  make(map[string]*DecryptionRequest),
	}
}

// RequestDecryption asks the oracle to decrypt the submission stored for
// (batchID, targetProvider). Any actor may call this, subject to the
// decrypt-request cooldown. The call returns as soon as the request is
// dispatched and recorded; the result arrives later via HandleCallback.
//
// There is no cancellation and no deduplication between request ids: a
// caller that suspects a request was lost simply issues a new one once its
// cooldown allows.
func (c *Coordinator) RequestDecryption(ctx context.Context, caller string, batchID uint64, targetProvider string) (string, error) {
	if c.access.IsPaused() {
		return "", ErrPaused
	}
	if err := c.throttle.Check(caller, ActionDecryptRequest, c.access.Cooldown()); err != nil {
		return "", err
	}

	sub, ok := c.ledger.Submission(batchID, targetProvider)
	if !ok {
		return "", ErrNotInitialized
	}
	stateHash := crypto.StateCommitment(sub.Handle, c.contextID)

	requestID, err := c.oracle.Submit(ctx, []crypto.CiphertextHandle{sub.Handle})
	if err != nil {
		return "", fmt.Errorf("oracle dispatch failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.requests[requestID]; exists {
		// The oracle guarantees unique ids; a collision means it broke that
		// contract and the new request cannot be tracked.
		return "", fmt.Errorf("oracle reused request id %s", requestID)
	}

	req := &DecryptionRequest{
		RequestID:      requestID,
		BatchID:        batchID,
		TargetProvider: targetProvider,
		StateHash:      stateHash,
		RequestedBy:    caller,
		RequestedAt:    time.Now().UTC(),
	}
	c.requests[requestID] = req
	c.throttle.Record(caller, ActionDecryptRequest)

	ev := newEvent(EventDecryptionRequested)
	ev.Actor = caller
	ev.BatchID = batchID
	ev.RequestID = requestID
	c.events.Emit(ev)
	return requestID, nil
}

// HandleCallback consumes one oracle result. The checks run cheapest and most
// security-critical first, and nothing mutates until all of them pass:
//
//  1. unknown or already-processed request id: ErrReplayDetected. This is the
//     sole replay guard and always runs first.
//  2. cleartext has the wrong encoding length: ErrDecryptionFailed.
//  3. the state hash recomputed from the ledger's current ciphertext does not
//     match the one captured at request time: ErrInvalidState. Detects a
//     substituted or stale decryption.
//  4. the proof does not authenticate the cleartext for this request id under
//     the oracle's verification key: ErrDecryptionFailed. The request stays
//     unprocessed and may be retried with a fresh RequestDecryption.
//
// On success the clear value is decoded, the request is irrevocably marked
// processed, and a decryption-completed event is emitted.
func (c *Coordinator) HandleCallback(requestID string, cleartext []byte, proof crypto.Signature) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.requests[requestID]
	if !ok || req.Processed {
		return 0, ErrReplayDetected
	}

	if len(cleartext) != ClearValueLength {
		return 0, ErrDecryptionFailed
	}

	sub, ok := c.ledger.Submission(req.BatchID, req.TargetProvider)
	if !ok || crypto.StateCommitment(sub.Handle, c.contextID) != req.StateHash {
		return 0, ErrInvalidState
	}

	if !crypto.VerifyDecryptionProof(c.verifyKey, c.contextID, requestID, cleartext, proof) {
		return 0, ErrDecryptionFailed
	}

	value := binary.BigEndian.Uint64(cleartext)
	req.Processed = true
	req.ClearValue = value
	req.ProcessedAt = time.Now().UTC()

	ev := newEvent(EventDecryptionCompleted)
	ev.BatchID = req.BatchID
	ev.RequestID = requestID
	ev.ClearValue = value
	c.events.Emit(ev)
	return value, nil
}

// Request returns the tracked request for an id, if any.
func (c *Coordinator) Request(requestID string) (*DecryptionRequest, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	req, ok := c.requests[requestID]
	if !ok {
		return nil, false
	}
	cp := *req
	return &cp, true
}

// Requests returns a snapshot of every tracked request.
func (c *Coordinator) Requests() []*DecryptionRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*DecryptionRequest, 0, len(c.requests))
	for _, req := range c.requests {
		cp := *req
		out = append(out, &cp)
	}
	return out
}

// RestoreRequest inserts a previously persisted request directly. Used only
// when rebuilding an engine from persistent storage; emits no event.
func (c *Coordinator) RestoreRequest(req *DecryptionRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *req
	c.requests[req.RequestID] = &cp
}
