package services

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/metrics"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/oracle"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/protocol"
)

// EngineAPIConfig configures the engine's HTTP surface.
type EngineAPIConfig struct {
	Engine *protocol.Engine

	// Store persists accepted transitions. Optional; nil disables
	// write-through.
	Store EngineStore

	// Events backs the event listing endpoint. Optional.
	Events *EventLog

	// AdminToken guards the /admin routes with basic auth when set, in
	// "user:password" form. Signed owner envelopes are required either way.
	AdminToken string

	Log *slog.Logger
}

// EngineAPI exposes the protocol engine over HTTP. Every mutating call except
// the oracle callback arrives as a protocol.Signed envelope; the recovered
// signer is the acting address and the engine performs its own authorization.
// The callback authenticates through the oracle proof instead.
type EngineAPI struct {
	cfg    *EngineAPIConfig
	engine *protocol.Engine
	log    *slog.Logger
}

// NewEngineAPI creates the HTTP surface for one engine.
func NewEngineAPI(cfg *EngineAPIConfig) *EngineAPI {
	return &EngineAPI{
		cfg:    cfg,
		engine: cfg.Engine,
		log:    cfg.Log,
	}
}

// RegisterRoutes implements httpserver.RouteRegistrar.
func (a *EngineAPI) RegisterRoutes(router chi.Router) {
	router.Route("/admin", func(r chi.Router) {
		if a.cfg.AdminToken != "" {
			r.Use(a.requireAdminAuth)
		}
		r.Post("/providers/add", a.handleAddProvider)
		r.Post("/providers/remove", a.handleRemoveProvider)
		r.Post("/pause", a.handleSetPaused)
		r.Post("/cooldown", a.handleSetCooldown)
		r.Post("/batch/open", a.handleOpenBatch)
		r.Post("/batch/close", a.handleCloseBatch)
	})

	router.Post("/submit", a.handleSubmit)
	router.Post("/request-decryption", a.handleRequestDecryption)
	router.Post("/callback", a.handleCallback)

	router.Get("/batch", a.handleGetBatch)
	router.Get("/submissions", a.handleGetSubmissions)
	router.Get("/requests", a.handleGetRequests)
	router.Get("/requests/{request_id}", a.handleGetRequest)
	router.Get("/events", a.handleGetEvents)
	router.Get("/config", a.handleGetConfig)
}

func (a *EngineAPI) requireAdminAuth(next http.Handler) http.Handler {
	wantUser, wantPass := parseAdminToken(a.cfg.AdminToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseAdminToken(token string) (user, pass string) {
	idx := strings.Index(token, ":")
	if idx < 0 {
		return token, ""
	}
	return token[:idx], token[idx+1:]
}

// recoverSigned decodes a signed envelope and returns the payload plus the
// signer's address.
func recoverSigned[T any](r *http.Request) (*T, string, error) {
	signedReq, err := protocol.DecodeMessage[protocol.Signed[T]](r.Body)
	if err != nil {
		return nil, "", err
	}
	obj, signer, err := signedReq.Recover()
	if err != nil {
		return nil, "", err
	}
	return obj, signer.String(), nil
}

func (a *EngineAPI) handleAddProvider(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[ProviderRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	if err := a.engine.Access.AddProvider(signer, req.Provider); err != nil {
		a.writeProtocolError(w, err)
		return
	}

	a.persistAccessState()
	a.writeStatus(w)
}

func (a *EngineAPI) handleRemoveProvider(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[ProviderRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	if err := a.engine.Access.RemoveProvider(signer, req.Provider); err != nil {
		a.writeProtocolError(w, err)
		return
	}

	a.persistAccessState()
	a.writeStatus(w)
}

func (a *EngineAPI) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[PauseRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	if err := a.engine.Access.SetPaused(signer, req.Paused); err != nil {
		a.writeProtocolError(w, err)
		return
	}

	a.persistAccessState()
	a.writeStatus(w)
}

func (a *EngineAPI) handleSetCooldown(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[CooldownRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	if err := a.engine.Access.SetCooldown(signer, req.Cooldown); err != nil {
		a.writeProtocolError(w, err)
		return
	}

	a.persistAccessState()
	a.writeStatus(w)
}

func (a *EngineAPI) handleOpenBatch(w http.ResponseWriter, r *http.Request) {
	_, signer, err := recoverSigned[struct{}](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	batchID, err := a.engine.Ledger.OpenBatch(signer)
	if err != nil {
		a.writeProtocolError(w, err)
		return
	}

	a.persistBatchState()
	json.NewEncoder(w).Encode(&BatchResponse{BatchID: batchID, Open: true})
}

func (a *EngineAPI) handleCloseBatch(w http.ResponseWriter, r *http.Request) {
	_, signer, err := recoverSigned[struct{}](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	batchID, err := a.engine.Ledger.CloseBatch(signer)
	if err != nil {
		a.writeProtocolError(w, err)
		return
	}

	a.persistBatchState()
	json.NewEncoder(w).Encode(&BatchResponse{BatchID: batchID, Open: false})
}

func (a *EngineAPI) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[SubmitRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	handle, err := crypto.NewCiphertextHandleFromString(req.Handle)
	if err != nil {
		http.Error(w, "invalid handle encoding", http.StatusBadRequest)
		return
	}

	sub, err := a.engine.Ledger.Submit(signer, req.BatchID, handle)
	if err != nil {
		metrics.IncSubmission(false)
		a.writeProtocolError(w, err)
		return
	}
	metrics.IncSubmission(true)

	if a.cfg.Store != nil {
		if err := a.cfg.Store.SaveSubmission(sub); err != nil {
			a.log.Error("could not persist submission", "batch", sub.BatchID, "provider", sub.Provider, "err", err)
		}
	}

	json.NewEncoder(w).Encode(&SubmitResponse{
		BatchID:    sub.BatchID,
		Provider:   sub.Provider,
		Commitment: sub.Commitment.String(),
	})
}

func (a *EngineAPI) handleRequestDecryption(w http.ResponseWriter, r *http.Request) {
	req, signer, err := recoverSigned[DecryptionRequestBody](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	requestID, err := a.engine.Coordinator.RequestDecryption(r.Context(), signer, req.BatchID, req.TargetProvider)
	if err != nil {
		a.writeProtocolError(w, err)
		return
	}
	metrics.IncDecryptionRequest()

	a.persistRequest(requestID)
	json.NewEncoder(w).Encode(&DecryptionRequestResponse{RequestID: requestID})
}

func (a *EngineAPI) handleCallback(w http.ResponseWriter, r *http.Request) {
	req, err := protocol.DecodeMessage[oracle.CallbackRequest](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cleartext, err := hex.DecodeString(req.Cleartext)
	if err != nil {
		http.Error(w, "invalid cleartext encoding", http.StatusBadRequest)
		return
	}
	proofBytes, err := hex.DecodeString(req.Proof)
	if err != nil {
		http.Error(w, "invalid proof encoding", http.StatusBadRequest)
		return
	}

	value, err := a.engine.Coordinator.HandleCallback(req.RequestID, cleartext, crypto.NewSignature(proofBytes))
	if err != nil {
		metrics.IncCallback(false)
		a.log.Warn("rejected oracle callback", "request", req.RequestID, "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(callbackStatus(err))
		json.NewEncoder(w).Encode(&oracle.CallbackResponse{Accepted: false, Message: err.Error()})
		return
	}
	metrics.IncCallback(true)

	a.log.Info("decryption finalized", "request", req.RequestID, "value", value)
	a.persistRequest(req.RequestID)
	json.NewEncoder(w).Encode(&oracle.CallbackResponse{Accepted: true})
}

func (a *EngineAPI) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, open := a.engine.Ledger.CurrentBatch()
	json.NewEncoder(w).Encode(&BatchResponse{
		BatchID:     batchID,
		Open:        open,
		Submissions: len(a.engine.Ledger.Submissions()),
	})
}

func (a *EngineAPI) handleGetSubmissions(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(a.engine.Ledger.Submissions())
}

func (a *EngineAPI) handleGetRequests(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(a.engine.Coordinator.Requests())
}

func (a *EngineAPI) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")
	req, ok := a.engine.Coordinator.Request(requestID)
	if !ok {
		http.Error(w, "unknown request", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(req)
}

func (a *EngineAPI) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if a.cfg.Events == nil {
		json.NewEncoder(w).Encode([]protocol.Event{})
		return
	}
	json.NewEncoder(w).Encode(a.cfg.Events.Events())
}

func (a *EngineAPI) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(a.engine.Config())
}

func (a *EngineAPI) writeStatus(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(&StatusResponse{Success: true})
}

// writeProtocolError maps engine errors onto HTTP statuses. Throttle
// rejections carry a Retry-After hint.
func (a *EngineAPI) writeProtocolError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case protocol.IsAuthorizationError(err):
		status = http.StatusForbidden
	case protocol.IsThrottleError(err):
		status = http.StatusTooManyRequests
		var cooldownErr *protocol.CooldownError
		if errors.As(err, &cooldownErr) {
			seconds := int(cooldownErr.Remaining.Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	case protocol.IsLifecycleError(err):
		status = http.StatusConflict
	case protocol.IsIntegrityError(err):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

// callbackStatus distinguishes replays from malformed or unverifiable
// callbacks for the oracle's retry logic.
func callbackStatus(err error) int {
	if errors.Is(err, protocol.ErrReplayDetected) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func (a *EngineAPI) persistAccessState() {
	if a.cfg.Store == nil {
		return
	}
	err := a.cfg.Store.SaveAccessState(
		a.engine.Access.Providers(),
		a.engine.Access.IsPaused(),
		a.engine.Access.Cooldown(),
	)
	if err != nil {
		a.log.Error("could not persist access state", "err", err)
	}
}

func (a *EngineAPI) persistBatchState() {
	if a.cfg.Store == nil {
		return
	}
	batchID, open := a.engine.Ledger.CurrentBatch()
	if err := a.cfg.Store.SaveBatchState(batchID, open); err != nil {
		a.log.Error("could not persist batch state", "err", err)
	}
}

func (a *EngineAPI) persistRequest(requestID string) {
	if a.cfg.Store == nil {
		return
	}
	req, ok := a.engine.Coordinator.Request(requestID)
	if !ok {
		return
	}
	if err := a.cfg.Store.SaveRequest(req); err != nil {
		a.log.Error("could not persist decryption request", "request", requestID, "err", err)
	}
}
