package protocol

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ActionKind distinguishes the two independently throttled actions. Each kind
// keeps its own per-actor clock; the cooldown duration is shared.
type ActionKind string

const (
	ActionSubmit         ActionKind = "submit"
	ActionDecryptRequest ActionKind = "decrypt_request"
)

// Throttle enforces a minimum elapsed time between two successive actions of
// the same kind by the same actor. Only the timestamp of the last accepted
// action is stored; the cooldown is evaluated at check time against the
// duration currently in force, so owner cooldown changes apply to windows
// already in flight.
//
// Check never mutates. Record must be called only after every other
// precondition of the surrounding operation has passed, so a rejected
// operation leaves no trace here.
type Throttle struct {
	records *gocache.Cache
}

// NewThrottle creates an empty throttle table.
func NewThrottle() *Throttle {
	return &Throttle{
		records: gocache.New(gocache.NoExpiration, 0),
	}
}

func throttleKey(actor string, kind ActionKind) string {
	return string(kind) + "/" + actor
}

// Check returns ErrCooldownActive (as a CooldownError with the remaining
// wait) if the actor acted too recently for this kind under the given
// cooldown. A non-positive cooldown disables throttling.
func (t *Throttle) Check(actor string, kind ActionKind, cooldown time.Duration) error {
	if cooldown <= 0 {
		return nil
	}
	v, found := t.records.Get(throttleKey(actor, kind))
	if !found {
		return nil
	}
	remaining := cooldown - time.Since(v.(time.Time))
	if remaining <= 0 {
		return nil
	}
	return &CooldownError{Remaining: remaining}
}

// Record stamps the action time for (actor, kind), starting a new cooldown
// window. The timestamp is kept even while the cooldown is zero, so raising
// it later re-covers recent actions.
func (t *Throttle) Record(actor string, kind ActionKind) {
	t.records.Set(throttleKey(actor, kind), time.Now(), gocache.NoExpiration)
}
