package oracle

import (
	"crypto/rand"
	"encoding/binary"
	"errors"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
)

// The demo scheme is a reversible placeholder, not encryption. It exists so
// the demo oracle can round-trip amounts through opaque handles and exercise
// the full request/callback path. A real deployment replaces this with
// handles minted by an actual threshold-encryption service; the engine never
// looks inside a handle either way.

const demoHandleLength = 32

var errBadDemoHandle = errors.New("handle is not a demo-scheme handle")

// EncodeAmount produces a demo handle embedding the amount.
func EncodeAmount(amount uint64) (crypto.CiphertextHandle, error) {
	buf := make([]byte, demoHandleLength)
	if _, err := rand.Read(buf[:demoHandleLength-8]); err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint64(buf[demoHandleLength-8:], amount)
	for i := 0; i < 8; i++ {
		buf[demoHandleLength-8+i] ^= buf[i]
	}
	return crypto.NewCiphertextHandle(buf), nil
}

// DecodeAmount recovers the amount from a demo handle.
func DecodeAmount(handle crypto.CiphertextHandle) (uint64, error) {
	raw := handle.Bytes()
	if len(raw) != demoHandleLength {
		return 0, errBadDemoHandle
	}
	masked := make([]byte, 8)
	copy(masked, raw[demoHandleLength-8:])
	for i := 0; i < 8; i++ {
		masked[i] ^= raw[i]
	}
	return binary.BigEndian.Uint64(masked), nil
}
