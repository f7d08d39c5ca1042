package protocol

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memorySink records events for assertions. Shared by the package tests.
type memorySink struct {
	mu     sync.Mutex
	events []Event
}

func (m *memorySink) Emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *memorySink) all() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *memorySink) lastOfType(t EventType) (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Type == t {
			return m.events[i], true
		}
	}
	return Event{}, false
}

const (
	testOwner    = "owner-address"
	testProvider = "provider-address"
)

func newTestAccess(t *testing.T) (*AccessControl, *memorySink) {
	t.Helper()
	sink := &memorySink{}
	return NewAccessControl(testOwner, 0, sink), sink
}

func TestAccessControl_OwnerManagesProviders(t *testing.T) {
	access, sink := newTestAccess(t)

	require.False(t, access.IsProvider(testProvider))

	err := access.AddProvider(testOwner, testProvider)
	require.NoError(t, err)
	require.True(t, access.IsProvider(testProvider))

	ev, ok := sink.lastOfType(EventProviderAdded)
	require.True(t, ok)
	require.Equal(t, testProvider, ev.Actor)

	err = access.RemoveProvider(testOwner, testProvider)
	require.NoError(t, err)
	require.False(t, access.IsProvider(testProvider))

	_, ok = sink.lastOfType(EventProviderRemoved)
	require.True(t, ok)
}

func TestAccessControl_NonOwnerRejected(t *testing.T) {
	access, sink := newTestAccess(t)

	require.ErrorIs(t, access.AddProvider("intruder", testProvider), ErrNotOwner)
	require.ErrorIs(t, access.RemoveProvider("intruder", testProvider), ErrNotOwner)
	require.ErrorIs(t, access.SetPaused("intruder", true), ErrNotOwner)
	require.ErrorIs(t, access.SetCooldown("intruder", time.Minute), ErrNotOwner)

	require.False(t, access.IsPaused())
	require.Empty(t, sink.all(), "failed calls must not emit events")
}

func TestAccessControl_PauseAndCooldown(t *testing.T) {
	access, sink := newTestAccess(t)

	require.NoError(t, access.SetPaused(testOwner, true))
	require.True(t, access.IsPaused())
	ev, ok := sink.lastOfType(EventPausedSet)
	require.True(t, ok)
	require.True(t, ev.Paused)

	require.NoError(t, access.SetPaused(testOwner, false))
	require.False(t, access.IsPaused())

	require.NoError(t, access.SetCooldown(testOwner, 45*time.Second))
	require.Equal(t, 45*time.Second, access.Cooldown())
	ev, ok = sink.lastOfType(EventCooldownSet)
	require.True(t, ok)
	require.Equal(t, "45s", ev.Cooldown)
}

func TestAccessControl_OwnerIsNotImplicitlyProvider(t *testing.T) {
	access, _ := newTestAccess(t)
	require.False(t, access.IsProvider(testOwner))
}
