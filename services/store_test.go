package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/protocol"
)

func TestInMemoryStore_EmptyLoadsNil(t *testing.T) {
	store := NewInMemoryStore()
	state, err := store.LoadState()
	require.NoError(t, err)
	require.Nil(t, state)
}

func TestRestoreEngine_RebuildsStateWithoutEvents(t *testing.T) {
	ownerPub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	providerPub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	oraclePub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	store := NewInMemoryStore()
	handle := crypto.NewCiphertextHandle(bytes.Repeat([]byte{0x11}, 32))
	submittedAt := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.SaveAccessState([]string{providerPub.String()}, false, 30*time.Second))
	require.NoError(t, store.SaveBatchState(2, true))
	require.NoError(t, store.SaveSubmission(&protocol.Submission{
		BatchID:     2,
		Provider:    providerPub.String(),
		Handle:      handle,
		Commitment:  crypto.HandleCommitment(handle),
		SubmittedAt: submittedAt,
	}))
	require.NoError(t, store.SaveRequest(&protocol.DecryptionRequest{
		RequestID:      "req-1",
		BatchID:        2,
		TargetProvider: providerPub.String(),
		StateHash:      crypto.StateCommitment(handle, "restore-test"),
		RequestedBy:    providerPub.String(),
		RequestedAt:    submittedAt,
		Processed:      true,
		ClearValue:     77,
		ProcessedAt:    submittedAt,
	}))

	events := NewEventLog()
	engine, err := protocol.NewEngine(&protocol.Config{
		Owner:           ownerPub.String(),
		ContextID:       "restore-test",
		OracleVerifyKey: oraclePub.String(),
	}, protocol.NewMockOracle(), events)
	require.NoError(t, err)

	require.NoError(t, RestoreEngine(engine, store))

	require.True(t, engine.Access.IsProvider(providerPub.String()))
	require.Equal(t, 30*time.Second, engine.Access.Cooldown())
	require.False(t, engine.Access.IsPaused())

	batchID, open := engine.Ledger.CurrentBatch()
	require.Equal(t, uint64(2), batchID)
	require.True(t, open)

	sub, ok := engine.Ledger.Submission(2, providerPub.String())
	require.True(t, ok)
	require.Equal(t, handle.Bytes(), sub.Handle.Bytes())

	req, ok := engine.Coordinator.Request("req-1")
	require.True(t, ok)
	require.True(t, req.Processed)
	require.Equal(t, uint64(77), req.ClearValue)

	// Rebuilding replays nothing into the audit stream
	require.Empty(t, events.Events())
}

func TestRestoreEngine_NoStateIsANoOp(t *testing.T) {
	ownerPub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	oraclePub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	engine, err := protocol.NewEngine(&protocol.Config{
		Owner:           ownerPub.String(),
		ContextID:       "restore-test",
		OracleVerifyKey: oraclePub.String(),
	}, protocol.NewMockOracle(), nil)
	require.NoError(t, err)

	require.NoError(t, RestoreEngine(engine, NewInMemoryStore()))

	batchID, open := engine.Ledger.CurrentBatch()
	require.Equal(t, uint64(0), batchID)
	require.False(t, open)
	require.Empty(t, engine.Ledger.Submissions())
}
