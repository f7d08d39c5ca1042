package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThrottle_CooldownWindow(t *testing.T) {
	throttle := NewThrottle()

	require.NoError(t, throttle.Check("actor", ActionSubmit, time.Minute))

	throttle.Record("actor", ActionSubmit)

	err := throttle.Check("actor", ActionSubmit, time.Minute)
	require.ErrorIs(t, err, ErrCooldownActive)

	var cooldownErr *CooldownError
	require.ErrorAs(t, err, &cooldownErr)
	require.Greater(t, cooldownErr.Remaining, time.Duration(0))
}

func TestThrottle_WindowClosesAfterCooldown(t *testing.T) {
	throttle := NewThrottle()

	throttle.Record("actor", ActionSubmit)

	require.ErrorIs(t, throttle.Check("actor", ActionSubmit, 50*time.Millisecond), ErrCooldownActive)
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, throttle.Check("actor", ActionSubmit, 50*time.Millisecond))
}

func TestThrottle_ActionKindsAreIndependent(t *testing.T) {
	throttle := NewThrottle()

	throttle.Record("actor", ActionSubmit)

	require.ErrorIs(t, throttle.Check("actor", ActionSubmit, time.Minute), ErrCooldownActive)
	require.NoError(t, throttle.Check("actor", ActionDecryptRequest, time.Minute))
}

func TestThrottle_ActorsAreIndependent(t *testing.T) {
	throttle := NewThrottle()

	throttle.Record("alice", ActionSubmit)

	require.ErrorIs(t, throttle.Check("alice", ActionSubmit, time.Minute), ErrCooldownActive)
	require.NoError(t, throttle.Check("bob", ActionSubmit, time.Minute))
}

func TestThrottle_ZeroCooldownDisablesThrottling(t *testing.T) {
	throttle := NewThrottle()

	throttle.Record("actor", ActionSubmit)
	require.NoError(t, throttle.Check("actor", ActionSubmit, 0))
}

// The cooldown is read at check time, so a changed duration applies to
// windows opened before the change.
func TestThrottle_CooldownChangesApplyToOpenWindows(t *testing.T) {
	throttle := NewThrottle()

	throttle.Record("actor", ActionSubmit)

	// Lowering the cooldown releases the window immediately
	require.ErrorIs(t, throttle.Check("actor", ActionSubmit, time.Hour), ErrCooldownActive)
	require.NoError(t, throttle.Check("actor", ActionSubmit, 0))

	// Raising it re-covers the same recorded action
	err := throttle.Check("actor", ActionSubmit, time.Hour)
	require.ErrorIs(t, err, ErrCooldownActive)

	var cooldownErr *CooldownError
	require.ErrorAs(t, err, &cooldownErr)
	require.LessOrEqual(t, cooldownErr.Remaining, time.Hour)
}

func TestThrottle_CheckDoesNotMutate(t *testing.T) {
	throttle := NewThrottle()

	require.NoError(t, throttle.Check("actor", ActionSubmit, time.Minute))
	require.NoError(t, throttle.Check("actor", ActionSubmit, time.Minute), "repeated checks must not start a cooldown")
}
