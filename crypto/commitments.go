package crypto

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/sha3"
)

var errInvalidCommitmentLength = errors.New("commitment must be 32 bytes")

// Domain separation prefixes. Changing these invalidates every commitment
// and proof produced by earlier deployments.
const (
	handleCommitDomain = "prf/handle-commitment/v1"
	stateCommitDomain  = "prf/state-commitment/v1"
	proofDomain        = "prf/decryption-proof/v1"
)

// Commitment is a SHA3-256 digest published in place of sensitive bytes.
type Commitment [32]byte

// String returns the hex-encoded commitment.
func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// NewCommitmentFromString parses a hex-encoded commitment.
func NewCommitmentFromString(data string) (Commitment, error) {
	var c Commitment
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return c, err
	}
	if len(rawBytes) != len(c) {
		return c, errInvalidCommitmentLength
	}
	copy(c[:], rawBytes)
	return c, nil
}

// HandleCommitment computes the public commitment to a ciphertext handle.
// Submission events carry this digest instead of the handle itself, so the
// event stream exposes nothing beyond what the handle already does.
func HandleCommitment(handle CiphertextHandle) Commitment {
	d := sha3.New256()
	d.Write([]byte(handleCommitDomain))
	d.Write(handle.Bytes())
	var c Commitment
	copy(c[:], d.Sum(nil))
	return c
}

// StateCommitment binds a decryption request to the exact ciphertext being
// decrypted and to this protocol instance. The context identifier prevents a
// proof produced for one deployment from being replayed against another.
func StateCommitment(handle CiphertextHandle, contextID string) Commitment {
	d := sha3.New256()
	d.Write([]byte(stateCommitDomain))
	d.Write([]byte(contextID))
	d.Write(handle.Bytes())
	var c Commitment
	copy(c[:], d.Sum(nil))
	return c
}

// proofMessage is the exact byte string an oracle signs to prove a cleartext
// belongs to a request. It covers the context identifier and the request id
// so a proof cannot be moved between requests or protocol instances.
func proofMessage(contextID, requestID string, cleartext []byte) []byte {
	d := sha3.New256()
	d.Write([]byte(proofDomain))
	d.Write([]byte(contextID))
	d.Write([]byte(requestID))
	d.Write(cleartext)
	return d.Sum(nil)
}

// SignDecryptionProof produces the oracle's proof that cleartext is the
// decryption result for the given request.
func SignDecryptionProof(oracleKey PrivateKey, contextID, requestID string, cleartext []byte) (Signature, error) {
	return Sign(oracleKey, proofMessage(contextID, requestID, cleartext))
}

// VerifyDecryptionProof checks an oracle proof against the oracle's known
// verification key.
func VerifyDecryptionProof(oracleVerifyKey PublicKey, contextID, requestID string, cleartext []byte, proof Signature) bool {
	return proof.Verify(oracleVerifyKey, proofMessage(contextID, requestID, cleartext))
}
