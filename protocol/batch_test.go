package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
)

func newTestLedger(t *testing.T) (*BatchLedger, *AccessControl, *memorySink) {
	t.Helper()
	sink := &memorySink{}
	access := NewAccessControl(testOwner, 0, sink)
	ledger := NewBatchLedger(access, NewThrottle(), sink)
	require.NoError(t, access.AddProvider(testOwner, testProvider))
	return ledger, access, sink
}

func testHandle(seed byte) crypto.CiphertextHandle {
	data := make([]byte, 32)
	for i := range data {
		data[i] = seed
	}
	return crypto.NewCiphertextHandle(data)
}

func TestBatchLedger_OpenWhileClosedKeepsID(t *testing.T) {
	ledger, _, sink := newTestLedger(t)

	id, open := ledger.CurrentBatch()
	require.EqualValues(t, 0, id)
	require.False(t, open)

	opened, err := ledger.OpenBatch(testOwner)
	require.NoError(t, err)
	require.EqualValues(t, 0, opened)

	ev, ok := sink.lastOfType(EventBatchOpened)
	require.True(t, ok)
	require.EqualValues(t, 0, ev.BatchID)

	closed, err := ledger.CloseBatch(testOwner)
	require.NoError(t, err)
	require.EqualValues(t, 0, closed)

	// Reopening after a close reuses the id that was just closed.
	opened, err = ledger.OpenBatch(testOwner)
	require.NoError(t, err)
	require.EqualValues(t, 0, opened)
}

func TestBatchLedger_OpenWhileOpenAdvancesID(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	first, err := ledger.OpenBatch(testOwner)
	require.NoError(t, err)

	second, err := ledger.OpenBatch(testOwner)
	require.NoError(t, err)
	require.Equal(t, first+1, second, "open-while-open must strictly advance the batch id")

	third, err := ledger.OpenBatch(testOwner)
	require.NoError(t, err)
	require.Equal(t, second+1, third)

	_, open := ledger.CurrentBatch()
	require.True(t, open)
}

func TestBatchLedger_CloseRequiresOpen(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	_, err := ledger.CloseBatch(testOwner)
	require.ErrorIs(t, err, ErrInvalidBatch)
}

func TestBatchLedger_LifecycleRequiresOwnerAndUnpaused(t *testing.T) {
	ledger, access, _ := newTestLedger(t)

	_, err := ledger.OpenBatch("intruder")
	require.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, access.SetPaused(testOwner, true))
	_, err = ledger.OpenBatch(testOwner)
	require.ErrorIs(t, err, ErrPaused)
	_, err = ledger.CloseBatch(testOwner)
	require.ErrorIs(t, err, ErrPaused)
}

func TestBatchLedger_SubmitStoresWriteOnce(t *testing.T) {
	ledger, _, sink := newTestLedger(t)

	batchID, err := ledger.OpenBatch(testOwner)
	require.NoError(t, err)

	handle := testHandle(1)
	sub, err := ledger.Submit(testProvider, batchID, handle)
	require.NoError(t, err)
	require.Equal(t, crypto.HandleCommitment(handle), sub.Commitment)

	ev, ok := sink.lastOfType(EventSubmissionRecorded)
	require.True(t, ok)
	require.Equal(t, sub.Commitment.String(), ev.Commitment)
	require.NotContains(t, ev.Commitment, handle.String(), "events must not leak the raw handle")

	// Second submit for the same (batch, provider) fails and leaves the
	// stored value unchanged.
	_, err = ledger.Submit(testProvider, batchID, testHandle(2))
	require.ErrorIs(t, err, ErrAlreadyInitialized)

	stored, ok := ledger.Submission(batchID, testProvider)
	require.True(t, ok)
	require.Equal(t, handle, stored.Handle)
}

func TestBatchLedger_SubmitPreconditions(t *testing.T) {
	ledger, access, _ := newTestLedger(t)

	// Not a provider.
	_, err := ledger.Submit("stranger", 0, testHandle(1))
	require.ErrorIs(t, err, ErrNotProvider)

	// No open batch.
	_, err = ledger.Submit(testProvider, 0, testHandle(1))
	require.ErrorIs(t, err, ErrInvalidBatch)

	batchID, err := ledger.OpenBatch(testOwner)
	require.NoError(t, err)

	// Wrong batch id.
	_, err = ledger.Submit(testProvider, batchID+1, testHandle(1))
	require.ErrorIs(t, err, ErrInvalidBatch)

	// Paused.
	require.NoError(t, access.SetPaused(testOwner, true))
	_, err = ledger.Submit(testProvider, batchID, testHandle(1))
	require.ErrorIs(t, err, ErrPaused)
	require.NoError(t, access.SetPaused(testOwner, false))

	_, err = ledger.Submit(testProvider, batchID, testHandle(1))
	require.NoError(t, err)
}

func TestBatchLedger_SubmitCooldown(t *testing.T) {
	sink := &memorySink{}
	access := NewAccessControl(testOwner, 60*time.Millisecond, sink)
	ledger := NewBatchLedger(access, NewThrottle(), sink)
	require.NoError(t, access.AddProvider(testOwner, testProvider))

	batchID, err := ledger.OpenBatch(testOwner)
	require.NoError(t, err)

	_, err = ledger.Submit(testProvider, batchID, testHandle(1))
	require.NoError(t, err)

	// Same provider, next batch, still inside the cooldown window.
	batchID, err = ledger.OpenBatch(testOwner)
	require.NoError(t, err)
	_, err = ledger.Submit(testProvider, batchID, testHandle(2))
	require.ErrorIs(t, err, ErrCooldownActive)

	// A rejected submit must not store anything.
	_, ok := ledger.Submission(batchID, testProvider)
	require.False(t, ok)

	time.Sleep(70 * time.Millisecond)
	_, err = ledger.Submit(testProvider, batchID, testHandle(2))
	require.NoError(t, err)
}

// Cooldown changes take effect for windows already in flight: the throttle
// stores only the action timestamp and reads the configured duration when it
// checks.
func TestBatchLedger_SubmitCooldownChangeAppliesImmediately(t *testing.T) {
	sink := &memorySink{}
	access := NewAccessControl(testOwner, time.Hour, sink)
	ledger := NewBatchLedger(access, NewThrottle(), sink)
	require.NoError(t, access.AddProvider(testOwner, testProvider))

	batchID, err := ledger.OpenBatch(testOwner)
	require.NoError(t, err)
	_, err = ledger.Submit(testProvider, batchID, testHandle(1))
	require.NoError(t, err)

	batchID, err = ledger.OpenBatch(testOwner)
	require.NoError(t, err)
	_, err = ledger.Submit(testProvider, batchID, testHandle(2))
	require.ErrorIs(t, err, ErrCooldownActive)

	// Dropping the cooldown to zero releases the hour-long window.
	require.NoError(t, access.SetCooldown(testOwner, 0))
	_, err = ledger.Submit(testProvider, batchID, testHandle(2))
	require.NoError(t, err)

	// Raising it again re-covers the submit that just happened.
	require.NoError(t, access.SetCooldown(testOwner, time.Hour))
	batchID, err = ledger.OpenBatch(testOwner)
	require.NoError(t, err)
	_, err = ledger.Submit(testProvider, batchID, testHandle(3))
	require.ErrorIs(t, err, ErrCooldownActive)
}

func TestBatchLedger_FailedSubmitEmitsNoEvent(t *testing.T) {
	ledger, _, sink := newTestLedger(t)

	before := len(sink.all())
	_, err := ledger.Submit(testProvider, 0, testHandle(1))
	require.ErrorIs(t, err, ErrInvalidBatch)
	require.Len(t, sink.all(), before)
}
