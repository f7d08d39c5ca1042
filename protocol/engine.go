package protocol

import (
	"errors"
	"time"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
)

// Config provides the parameters for one engine instance.
type Config struct {
	// Owner is the address allowed to administer roles, pausing, cooldowns
	// and batch lifecycle.
	Owner string `json:"owner"`

	// ContextID disambiguates this protocol instance in state commitments
	// and oracle proofs.
	ContextID string `json:"context_id"`

	// Cooldown is the initial shared cooldown for both throttled action
	// kinds. Owner-tunable at runtime via SetCooldown.
	Cooldown time.Duration `json:"cooldown,string"`

	// OracleVerifyKey is the oracle's proof verification key, hex encoded.
	OracleVerifyKey string `json:"oracle_verify_key"`
}

// Engine wires the four protocol components together behind one handle:
// access control gates every mutating call, the ledger accepts submissions
// while a batch is open and within throttle limits, and the coordinator
// issues oracle requests and consumes callbacks.
type Engine struct {
	Access      *AccessControl
	Throttle    *Throttle
	Ledger      *BatchLedger
	Coordinator *Coordinator

	config *Config
}

// NewEngine builds an engine from config, an oracle collaborator and an
// event sink.
func NewEngine(config *Config, oracle Oracle, events EventSink) (*Engine, error) {
	if config.Owner == "" {
		return nil, errors.New("config: owner address is required")
	}
	if config.ContextID == "" {
		return nil, errors.New("config: context id is required")
	}
	verifyKey, err := crypto.NewPublicKeyFromString(config.OracleVerifyKey)
	if err != nil {
		return nil, errors.New("config: invalid oracle verify key")
	}
	if events == nil {
		events = NopSink{}
	}

	access := NewAccessControl(config.Owner, config.Cooldown, events)
	throttle := NewThrottle()
	ledger := NewBatchLedger(access, throttle, events)
	coordinator := NewCoordinator(access, throttle, ledger, oracle, verifyKey, config.ContextID, events)

	return &Engine{
		Access:      access,
		Throttle:    throttle,
		Ledger:      ledger,
		Coordinator: coordinator,
		config:      config,
	}, nil
}

// Config returns the engine's construction config.
func (e *Engine) Config() *Config {
	return e.config
}
