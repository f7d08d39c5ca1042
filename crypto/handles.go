package crypto

import "encoding/hex"

// CiphertextHandle is an opaque reference to an encrypted payment amount.
// The engine stores and forwards handles without ever interpreting them;
// only the decryption oracle can turn a handle back into a clear amount.
type CiphertextHandle []byte

// NewCiphertextHandle creates a handle from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewCiphertextHandle(data []byte) CiphertextHandle {
	h := make([]byte, len(data))
	copy(h, data)
	return CiphertextHandle(h)
}

// NewCiphertextHandleFromString creates a handle from a hex-encoded string.
func NewCiphertextHandleFromString(data string) (CiphertextHandle, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return nil, err
	}
	return NewCiphertextHandle(rawBytes), nil
}

// Bytes returns the handle as a byte slice.
func (h CiphertextHandle) Bytes() []byte {
	return h
}

// String returns a hex-encoded string representation of the handle.
func (h CiphertextHandle) String() string {
	return hex.EncodeToString(h)
}
