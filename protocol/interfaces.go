package protocol

import (
	"context"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
)

// Oracle is the external threshold-decryption service, consumed only through
// its request/callback interface. Submit dispatches an asynchronous
// decryption request and returns the oracle-assigned request id; the result
// arrives later through Coordinator.HandleCallback on a separate invocation
// path. Request ids are opaque and assumed unique for the lifetime of the
// system.
//
// The oracle's internal correctness is trusted. Its inputs and outputs are
// not: the coordinator re-validates every callback against the ledger state
// and the oracle's verification key before accepting it.
type Oracle interface {
	Submit(ctx context.Context, handles []crypto.CiphertextHandle) (requestID string, err error)
}
