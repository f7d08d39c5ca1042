package protocol

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for every way an engine operation can fail. All of them are
// raised before any state mutation: an operation either applies completely or
// leaves the engine untouched.
var (
	// Authorization failures.
	ErrNotOwner    = errors.New("caller is not the owner")
	ErrNotProvider = errors.New("caller is not a registered provider")

	// Lifecycle failures.
	ErrPaused             = errors.New("engine is paused")
	ErrInvalidBatch       = errors.New("batch does not exist or is not open")
	ErrAlreadyInitialized = errors.New("provider already submitted for this batch")
	ErrNotInitialized     = errors.New("no submission exists for this batch and provider")

	// Throttle failures.
	ErrCooldownActive = errors.New("cooldown has not elapsed")

	// Integrity failures. These may be adversarial and are raised before any
	// state is touched.
	ErrReplayDetected   = errors.New("decryption request unknown or already processed")
	ErrInvalidState     = errors.New("ciphertext state does not match the requested state")
	ErrDecryptionFailed = errors.New("decryption result rejected")
)

// CooldownError wraps ErrCooldownActive with the remaining wait.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown has not elapsed, %s remaining", e.Remaining.Round(time.Millisecond))
}

// Unwrap makes errors.Is(err, ErrCooldownActive) hold for CooldownError.
func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}

// IsAuthorizationError reports whether err is a role failure.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotOwner) || errors.Is(err, ErrNotProvider)
}

// IsLifecycleError reports whether err is a batch or pause state failure.
func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrPaused) || errors.Is(err, ErrInvalidBatch) ||
		errors.Is(err, ErrAlreadyInitialized) || errors.Is(err, ErrNotInitialized)
}

// IsThrottleError reports whether err is a cooldown failure.
func IsThrottleError(err error) bool {
	return errors.Is(err, ErrCooldownActive)
}

// IsIntegrityError reports whether err is a replay, state-binding or proof
// failure.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrReplayDetected) || errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrDecryptionFailed)
}
