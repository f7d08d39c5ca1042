// Package oracle provides both sides of the decryption-oracle boundary: the
// HTTP client the engine uses to dispatch requests, and a demo oracle
// service that stands in for a real threshold-decryption network.
//
// The engine trusts the oracle's internal correctness but never its inputs
// or outputs. Results come back through the engine's callback endpoint and
// are re-validated there: replay check, shape check, state-commitment match,
// then proof verification against the oracle's signing key.
//
// The demo service uses a reversible handle encoding (see scheme.go) so that
// end-to-end runs produce real amounts. That encoding is bookkeeping, not
// cryptography, and is confined to this package.
package oracle
