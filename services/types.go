package services

import (
	"time"
)

// Request and response bodies for the engine HTTP API. Mutating calls are
// wrapped in protocol.Signed envelopes; the recovered signer is the acting
// address handed to the engine, which does its own authorization.

// ProviderRequest names a provider address for role changes.
type ProviderRequest struct {
	Provider string `json:"provider"`
}

// PauseRequest sets the engine pause switch.
type PauseRequest struct {
	Paused bool `json:"paused"`
}

// CooldownRequest sets the shared action cooldown.
type CooldownRequest struct {
	Cooldown time.Duration `json:"cooldown,string"`
}

// SubmitRequest carries one provider's encrypted value for a batch. Handle is
// hex encoded.
type SubmitRequest struct {
	BatchID uint64 `json:"batch_id"`
	Handle  string `json:"handle"`
}

// SubmitResponse acknowledges an accepted submission with the stored
// commitment.
type SubmitResponse struct {
	BatchID    uint64 `json:"batch_id"`
	Provider   string `json:"provider"`
	Commitment string `json:"commitment"`
}

// DecryptionRequestBody asks for asynchronous decryption of one slot.
type DecryptionRequestBody struct {
	BatchID        uint64 `json:"batch_id"`
	TargetProvider string `json:"target_provider"`
}

// DecryptionRequestResponse returns the oracle-assigned request id.
type DecryptionRequestResponse struct {
	RequestID string `json:"request_id"`
}

// BatchResponse describes the batch cursor and submission count.
type BatchResponse struct {
	BatchID     uint64 `json:"batch_id"`
	Open        bool   `json:"open"`
	Submissions int    `json:"submissions"`
}

// StatusResponse is the generic acknowledgement for admin calls.
type StatusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
