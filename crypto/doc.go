// Package crypto provides the identity and commitment primitives used by the
// payment-request engine: Ed25519 actor keys and signatures, opaque
// ciphertext handles, SHA3-256 commitments, and the oracle decryption-proof
// format.
//
// Note that ciphertext handles are opaque by contract. This package never
// encrypts or decrypts payment amounts; the engine treats handles purely as
// references and relies on the external oracle for the actual cryptography.
package crypto
