// Package protocol implements the confidential payment-request engine: a
// submission and decryption-authorization protocol in which providers submit
// encrypted payment amounts into time-boxed batches, and any party may later
// ask an external threshold-decryption oracle to decrypt a specific
// submission. The oracle answers through a callback that is authenticated,
// bound to the exact ciphertext state that was requested, and applied exactly
// once.
//
// # Components
//
// The engine is built from four components, wired together by Engine:
//
//  1. AccessControl: owner and provider role bookkeeping, the pause switch
//     and the shared cooldown configuration. Every mutating call is gated
//     here first.
//
//  2. Throttle: per-actor cooldown enforcement for the two throttled action
//     kinds, submission and decryption request. One shared duration, two
//     independent per-actor clocks.
//
//  3. BatchLedger: batch id and open/closed state, one-submission-per-
//     provider-per-batch enforcement, and storage of each provider's
//     encrypted value. Submissions are write-once and never deleted.
//
//  4. Coordinator: issues decryption requests bound to a commitment over the
//     exact ciphertext requested, tracks outstanding requests, and processes
//     oracle callbacks with replay prevention, shape validation, state-match
//     verification and proof verification, in that order.
//
// # Concurrency model
//
// Every mutating operation is atomic: preconditions are evaluated under the
// owning component's lock before any state changes, so a failed operation
// leaves no trace. The interesting concurrency is across time rather than
// across threads: RequestDecryption and HandleCallback are two independent
// entry points separated by unbounded oracle latency. The ledger may keep
// mutating in between (new batches opened and closed), but the specific
// submission slot a request targets is immutable once set, and the
// coordinator recomputes the state commitment at callback time rather than
// holding any lock across the gap.
//
// # Failure model
//
// All failures are surfaced synchronously to the caller that triggered the
// operation, grouped into authorization, lifecycle, throttle and integrity
// errors (see errors.go). Nothing is retried automatically: a caller that
// gets ErrDecryptionFailed simply issues a fresh RequestDecryption once its
// cooldown allows.
package protocol
