package services

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/oracle"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/protocol"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/testutil"
)

type apiFixture struct {
	engine *protocol.Engine
	oracle *protocol.MockOracle
	store  *InMemoryStore
	events *EventLog
	server *httptest.Server

	ownerKey    crypto.PrivateKey
	owner       string
	providerKey crypto.PrivateKey
	provider    string
	oracleKey   crypto.PrivateKey

	contextID string
}

func setupAPIFixture(t *testing.T, adminToken string, options ...testutil.TestConfigOption) *apiFixture {
	t.Helper()

	providerPub, providerKey, err := testutil.GenerateTestKeyPair()
	require.NoError(t, err)

	contextID := "svc-test"
	store := NewInMemoryStore()
	events := NewEventLog()

	options = append([]testutil.TestConfigOption{testutil.WithContextID(contextID)}, options...)
	te, err := testutil.NewTestEngine(protocol.MultiSink{events, &StoreSink{Store: store}}, options...)
	require.NoError(t, err)

	api := NewEngineAPI(&EngineAPIConfig{
		Engine:     te.Engine,
		Store:      store,
		Events:     events,
		AdminToken: adminToken,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	router := chi.NewRouter()
	api.RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiFixture{
		engine:      te.Engine,
		oracle:      te.Oracle,
		store:       store,
		events:      events,
		server:      server,
		ownerKey:    te.OwnerKey,
		owner:       te.Owner,
		providerKey: providerKey,
		provider:    providerPub.String(),
		oracleKey:   te.OracleKey,
		contextID:   contextID,
	}
}

func postSigned[T any](t *testing.T, f *apiFixture, path string, key crypto.PrivateKey, obj *T) *http.Response {
	t.Helper()

	signed, err := protocol.NewSigned(key, obj)
	require.NoError(t, err)
	body, err := json.Marshal(signed)
	require.NoError(t, err)

	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *apiFixture) addProvider(t *testing.T) {
	t.Helper()
	resp := postSigned(t, f, "/admin/providers/add", f.ownerKey, &ProviderRequest{Provider: f.provider})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (f *apiFixture) openBatch(t *testing.T) uint64 {
	t.Helper()
	resp := postSigned(t, f, "/admin/batch/open", f.ownerKey, &struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var batch BatchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&batch))
	return batch.BatchID
}

func (f *apiFixture) submit(t *testing.T, batchID uint64) string {
	t.Helper()
	handle, err := testutil.GenerateTestHandle()
	require.NoError(t, err)
	resp := postSigned(t, f, "/submit", f.providerKey, &SubmitRequest{BatchID: batchID, Handle: handle.String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sub SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sub))
	return sub.Commitment
}

func TestEngineAPI_ProviderManagement(t *testing.T) {
	f := setupAPIFixture(t, "")

	resp := postSigned(t, f, "/admin/providers/add", f.ownerKey, &ProviderRequest{Provider: f.provider})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, f.engine.Access.IsProvider(f.provider))

	// Only the owner's signature authorizes role changes
	resp = postSigned(t, f, "/admin/providers/remove", f.providerKey, &ProviderRequest{Provider: f.provider})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.True(t, f.engine.Access.IsProvider(f.provider))

	resp = postSigned(t, f, "/admin/providers/remove", f.ownerKey, &ProviderRequest{Provider: f.provider})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, f.engine.Access.IsProvider(f.provider))
}

func TestEngineAPI_AdminBasicAuth(t *testing.T) {
	f := setupAPIFixture(t, "admin:secret")

	signed, err := protocol.NewSigned(f.ownerKey, &ProviderRequest{Provider: f.provider})
	require.NoError(t, err)
	body, err := json.Marshal(signed)
	require.NoError(t, err)

	// Without credentials the admin routes are closed even to the owner
	resp, err := http.Post(f.server.URL+"/admin/providers/add", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/admin/providers/add", bytes.NewReader(body))
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, f.engine.Access.IsProvider(f.provider))
}

func TestEngineAPI_SubmitFlow(t *testing.T) {
	f := setupAPIFixture(t, "")
	f.addProvider(t)
	batchID := f.openBatch(t)

	handle, err := testutil.GenerateTestHandle()
	require.NoError(t, err)
	resp := postSigned(t, f, "/submit", f.providerKey, &SubmitRequest{BatchID: batchID, Handle: handle.String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sub SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sub))
	require.Equal(t, batchID, sub.BatchID)
	require.Equal(t, f.provider, sub.Provider)
	require.Equal(t, crypto.HandleCommitment(handle).String(), sub.Commitment)

	// The slot is write-once
	resp = postSigned(t, f, "/submit", f.providerKey, &SubmitRequest{BatchID: batchID, Handle: handle.String()})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown signers are not providers
	_, strangerKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	resp = postSigned(t, f, "/submit", strangerKey, &SubmitRequest{BatchID: batchID, Handle: handle.String()})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEngineAPI_DecryptionRoundTrip(t *testing.T) {
	f := setupAPIFixture(t, "")
	f.addProvider(t)
	batchID := f.openBatch(t)
	f.submit(t, batchID)

	resp := postSigned(t, f, "/request-decryption", f.providerKey,
		&DecryptionRequestBody{BatchID: batchID, TargetProvider: f.provider})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reqResp DecryptionRequestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reqResp))
	require.NotEmpty(t, reqResp.RequestID)
	require.Len(t, f.oracle.Dispatched(reqResp.RequestID), 1)

	cleartext := testutil.EncodeClearValue(42_000)
	proof, err := crypto.SignDecryptionProof(f.oracleKey, f.contextID, reqResp.RequestID, cleartext)
	require.NoError(t, err)

	callback := &oracle.CallbackRequest{
		RequestID: reqResp.RequestID,
		Cleartext: hex.EncodeToString(cleartext),
		Proof:     hex.EncodeToString(proof.Bytes()),
	}
	body, err := json.Marshal(callback)
	require.NoError(t, err)

	resp2, err := http.Post(f.server.URL+"/callback", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var callbackResp oracle.CallbackResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&callbackResp))
	require.True(t, callbackResp.Accepted)

	getResp, err := http.Get(f.server.URL + "/requests/" + reqResp.RequestID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var stored protocol.DecryptionRequest
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&stored))
	require.True(t, stored.Processed)
	require.Equal(t, uint64(42_000), stored.ClearValue)

	// Redelivery of the same callback is a replay
	resp3, err := http.Post(f.server.URL+"/callback", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp3.Body.Close()
	require.Equal(t, http.StatusConflict, resp3.StatusCode)
}

func TestEngineAPI_ThrottledRequestCarriesRetryAfter(t *testing.T) {
	f := setupAPIFixture(t, "")
	f.addProvider(t)

	resp := postSigned(t, f, "/admin/cooldown", f.ownerKey, &CooldownRequest{Cooldown: time.Minute})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	batchID := f.openBatch(t)
	f.submit(t, batchID)

	resp = postSigned(t, f, "/request-decryption", f.providerKey,
		&DecryptionRequestBody{BatchID: batchID, TargetProvider: f.provider})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postSigned(t, f, "/request-decryption", f.providerKey,
		&DecryptionRequestBody{BatchID: batchID, TargetProvider: f.provider})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestEngineAPI_CooldownConfiguredAtStartup(t *testing.T) {
	f := setupAPIFixture(t, "", testutil.WithCooldown(time.Minute))
	f.addProvider(t)
	batchID := f.openBatch(t)
	f.submit(t, batchID)

	// The configured cooldown is live without any admin call
	nextBatch := f.openBatch(t)
	handle, err := testutil.GenerateTestHandle()
	require.NoError(t, err)
	resp := postSigned(t, f, "/submit", f.providerKey, &SubmitRequest{BatchID: nextBatch, Handle: handle.String()})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestEngineAPI_EventsAndWriteThrough(t *testing.T) {
	f := setupAPIFixture(t, "")
	f.addProvider(t)
	batchID := f.openBatch(t)
	f.submit(t, batchID)

	getResp, err := http.Get(f.server.URL + "/events")
	require.NoError(t, err)
	defer getResp.Body.Close()

	var events []protocol.Event
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&events))
	require.Len(t, events, 3)
	require.Equal(t, protocol.EventProviderAdded, events[0].Type)
	require.Equal(t, protocol.EventBatchOpened, events[1].Type)
	require.Equal(t, protocol.EventSubmissionRecorded, events[2].Type)

	// Accepted transitions are written through to the store
	state, err := f.store.LoadState()
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Equal(t, []string{f.provider}, state.Providers)
	require.Equal(t, batchID, state.BatchID)
	require.True(t, state.BatchOpen)
	require.Len(t, state.Submissions, 1)
	require.Len(t, f.store.Events(), 3)
}
