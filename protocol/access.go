package protocol

import (
	"sync"
	"time"
)

// AccessControl owns the role and configuration state shared by the rest of
// the engine: the owner address, the provider set, the pause switch and the
// cooldown duration. It is handed by reference to the ledger and the
// coordinator so the components stay independently testable.
//
// The owner is fixed at construction. Owners are implicitly privileged for
// administrative calls but are not providers unless explicitly added.
type AccessControl struct {
	events EventSink

	mu        sync.RWMutex
	owner     string
	providers map[string]struct{}
	paused    bool
	cooldown  time.Duration
}

// NewAccessControl creates the role bookkeeping for one engine instance.
func NewAccessControl(owner string, cooldown time.Duration, events EventSink) *AccessControl {
	return &AccessControl{
		events:    events,
		owner:     owner,
		providers: make(map[string]struct{}),
		cooldown:  cooldown,
	}
}

// AddProvider grants the provider role to actor. Owner only.
func (a *AccessControl) AddProvider(caller, actor string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if caller != a.owner {
		return ErrNotOwner
	}
	a.providers[actor] = struct{}{}

	ev := newEvent(EventProviderAdded)
	ev.Actor = actor
	a.events.Emit(ev)
	return nil
}

// RemoveProvider revokes the provider role from actor. Owner only.
// Submissions the actor already made remain in the ledger.
func (a *AccessControl) RemoveProvider(caller, actor string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if caller != a.owner {
		return ErrNotOwner
	}
	delete(a.providers, actor)

	ev := newEvent(EventProviderRemoved)
	ev.Actor = actor
	a.events.Emit(ev)
	return nil
}

// SetPaused flips the pause switch. Owner only. While paused, every mutating
// engine operation fails with ErrPaused.
func (a *AccessControl) SetPaused(caller string, paused bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if caller != a.owner {
		return ErrNotOwner
	}
	a.paused = paused

	ev := newEvent(EventPausedSet)
	ev.Paused = paused
	a.events.Emit(ev)
	return nil
}

// SetCooldown changes the shared cooldown duration. Owner only. The single
// duration applies to both throttled action kinds; each kind keeps its own
// per-actor clock.
func (a *AccessControl) SetCooldown(caller string, cooldown time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if caller != a.owner {
		return ErrNotOwner
	}
	a.cooldown = cooldown

	ev := newEvent(EventCooldownSet)
	ev.Cooldown = cooldown.String()
	a.events.Emit(ev)
	return nil
}

// IsProvider reports whether actor holds the provider role.
func (a *AccessControl) IsProvider(actor string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.providers[actor]
	return ok
}

// IsPaused reports the pause switch.
func (a *AccessControl) IsPaused() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.paused
}

// Cooldown returns the currently configured cooldown duration.
func (a *AccessControl) Cooldown() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cooldown
}

// Owner returns the owner address.
func (a *AccessControl) Owner() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.owner
}

// RestoreProvider reinstates a provider role during state reload. Used only
// when rebuilding an engine from persistent storage; emits no event.
func (a *AccessControl) RestoreProvider(actor string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.providers[actor] = struct{}{}
}

// RestoreSettings sets the pause switch and cooldown directly during state
// reload. Used only when rebuilding an engine from persistent storage; emits
// no event.
func (a *AccessControl) RestoreSettings(paused bool, cooldown time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = paused
	a.cooldown = cooldown
}

// Providers returns a snapshot of the provider set.
func (a *AccessControl) Providers() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.providers))
	for p := range a.providers {
		out = append(out, p)
	}
	return out
}
