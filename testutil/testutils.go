package testutil

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/protocol"
)

// =====================================
// Configuration Generators
// =====================================

// TestConfigOption is a function that modifies a protocol.Config
type TestConfigOption func(*protocol.Config)

// WithOwner sets the owner address
func WithOwner(owner string) TestConfigOption {
	return func(cfg *protocol.Config) {
		cfg.Owner = owner
	}
}

// WithContextID sets the protocol instance identifier
func WithContextID(contextID string) TestConfigOption {
	return func(cfg *protocol.Config) {
		cfg.ContextID = contextID
	}
}

// WithCooldown sets the initial action cooldown
func WithCooldown(cooldown time.Duration) TestConfigOption {
	return func(cfg *protocol.Config) {
		cfg.Cooldown = cooldown
	}
}

// WithOracleVerifyKey sets the oracle proof verification key
func WithOracleVerifyKey(key string) TestConfigOption {
	return func(cfg *protocol.Config) {
		cfg.OracleVerifyKey = key
	}
}

// NewTestConfig creates a config with fresh owner and oracle keys. The
// generated private keys are discarded; use NewTestEngine when the test needs
// to sign as the owner or the oracle.
func NewTestConfig(options ...TestConfigOption) *protocol.Config {
	ownerPub, _, _ := crypto.GenerateKeyPair()
	oraclePub, _, _ := crypto.GenerateKeyPair()

	cfg := &protocol.Config{
		Owner:           ownerPub.String(),
		ContextID:       "test-context",
		OracleVerifyKey: oraclePub.String(),
	}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// =====================================
// Cryptographic Generators
// =====================================

// GenerateRandomBytes returns n cryptographically random bytes
func GenerateRandomBytes(n int) ([]byte, error) {
	data := make([]byte, n)
	_, err := rand.Read(data)
	return data, err
}

// GenerateTestKeyPair creates a fresh ed25519 keypair
func GenerateTestKeyPair() (crypto.PublicKey, crypto.PrivateKey, error) {
	return crypto.GenerateKeyPair()
}

// GenerateTestHandle creates a random 32-byte ciphertext handle
func GenerateTestHandle() (crypto.CiphertextHandle, error) {
	data, err := GenerateRandomBytes(32)
	if err != nil {
		return nil, err
	}
	return crypto.NewCiphertextHandle(data), nil
}

// EncodeClearValue encodes an amount the way valid oracle callbacks do
func EncodeClearValue(amount uint64) []byte {
	out := make([]byte, protocol.ClearValueLength)
	binary.BigEndian.PutUint64(out, amount)
	return out
}

// =====================================
// Engine Fixtures
// =====================================

// TestEngine bundles an engine with the keys and collaborators a test needs
// to drive it.
type TestEngine struct {
	Engine *protocol.Engine
	Oracle *protocol.MockOracle

	OwnerKey  crypto.PrivateKey
	Owner     string
	OracleKey crypto.PrivateKey
}

// NewTestEngine creates an engine with a mock oracle, a fresh owner keypair
// and a fresh oracle keypair wired as the verification key. Options are
// applied on top, so WithOwner or WithOracleVerifyKey replace the generated
// keys.
func NewTestEngine(events protocol.EventSink, options ...TestConfigOption) (*TestEngine, error) {
	ownerPub, ownerKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	oraclePub, oracleKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	cfg := &protocol.Config{
		Owner:           ownerPub.String(),
		ContextID:       "test-context",
		OracleVerifyKey: oraclePub.String(),
	}
	for _, opt := range options {
		opt(cfg)
	}

	mockOracle := protocol.NewMockOracle()
	engine, err := protocol.NewEngine(cfg, mockOracle, events)
	if err != nil {
		return nil, err
	}

	return &TestEngine{
		Engine:    engine,
		Oracle:    mockOracle,
		OwnerKey:  ownerKey,
		Owner:     cfg.Owner,
		OracleKey: oracleKey,
	}, nil
}
