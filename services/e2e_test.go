package services

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/oracle"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/protocol"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/testutil"
)

// TestE2E_EngineWithOracleService drives the full deployment shape: the
// engine API and a real oracle service talking to each other over HTTP, with
// the oracle delivering its result through the engine's callback endpoint.
func TestE2E_EngineWithOracleService(t *testing.T) {
	ownerPub, ownerKey, err := testutil.GenerateTestKeyPair()
	require.NoError(t, err)
	providerPub, providerKey, err := testutil.GenerateTestKeyPair()
	require.NoError(t, err)
	oraclePub, oracleKey, err := testutil.GenerateTestKeyPair()
	require.NoError(t, err)

	contextID := "e2e-test"
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	// The engine router is served before its routes exist so both sides can
	// learn each other's URL
	engineRouter := chi.NewRouter()
	engineServer := httptest.NewServer(engineRouter)
	defer engineServer.Close()

	oracleSvc := oracle.NewService(&oracle.ServiceConfig{
		SigningKey:  oracleKey,
		ContextID:   contextID,
		CallbackURL: engineServer.URL + "/callback",
		Log:         log,
	})
	oracleRouter := chi.NewRouter()
	oracleSvc.RegisterRoutes(oracleRouter)
	oracleServer := httptest.NewServer(oracleRouter)
	defer oracleServer.Close()

	store := NewInMemoryStore()
	events := NewEventLog()
	cfg := testutil.NewTestConfig(
		testutil.WithOwner(ownerPub.String()),
		testutil.WithContextID(contextID),
		testutil.WithOracleVerifyKey(oraclePub.String()),
	)
	engine, err := protocol.NewEngine(cfg, oracle.NewClient(oracleServer.URL), protocol.MultiSink{events, &StoreSink{Store: store}})
	require.NoError(t, err)

	api := NewEngineAPI(&EngineAPIConfig{
		Engine: engine,
		Store:  store,
		Events: events,
		Log:    log,
	})
	api.RegisterRoutes(engineRouter)

	f := &apiFixture{
		engine:      engine,
		store:       store,
		events:      events,
		server:      engineServer,
		ownerKey:    ownerKey,
		owner:       ownerPub.String(),
		providerKey: providerKey,
		provider:    providerPub.String(),
		contextID:   contextID,
	}

	f.addProvider(t)
	batchID := f.openBatch(t)

	const amount = 777_000
	handle, err := oracle.EncodeAmount(amount)
	require.NoError(t, err)
	resp := postSigned(t, f, "/submit", providerKey, &SubmitRequest{BatchID: batchID, Handle: handle.String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postSigned(t, f, "/request-decryption", providerKey,
		&DecryptionRequestBody{BatchID: batchID, TargetProvider: providerPub.String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reqResp DecryptionRequestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reqResp))

	// The callback arrives asynchronously
	require.Eventually(t, func() bool {
		req, ok := engine.Coordinator.Request(reqResp.RequestID)
		return ok && req.Processed
	}, 5*time.Second, 50*time.Millisecond)

	req, ok := engine.Coordinator.Request(reqResp.RequestID)
	require.True(t, ok)
	require.Equal(t, uint64(amount), req.ClearValue)

	// The finalized request made it into the store as well
	state, err := store.LoadState()
	require.NoError(t, err)
	require.Len(t, state.Requests, 1)
	require.True(t, state.Requests[0].Processed)
	require.Equal(t, uint64(amount), state.Requests[0].ClearValue)
}
