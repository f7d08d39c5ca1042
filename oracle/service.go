package oracle

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
)

// ServiceConfig configures a demo oracle service.
type ServiceConfig struct {
	// SigningKey signs decryption proofs; its public half is the engine's
	// oracle verification key.
	SigningKey crypto.PrivateKey

	// ContextID must match the engine's protocol instance identifier, or
	// every proof the oracle produces will be rejected.
	ContextID string

	// CallbackURL is the engine endpoint results are posted to.
	CallbackURL string

	// Delay is an artificial latency before the callback fires, simulating
	// the oracle's off-band threshold computation.
	Delay time.Duration

	Log *slog.Logger
}

// Service is a stand-in for a real threshold-decryption network. It accepts
// decryption requests, assigns request ids, decodes demo handles, and posts
// signed results back to the engine asynchronously.
type Service struct {
	cfg        *ServiceConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewService creates a demo oracle service.
func NewService(cfg *ServiceConfig) *Service {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// RegisterRoutes registers the oracle's request endpoint.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/decrypt", s.handleDecrypt)
}

// handleDecrypt acknowledges the request immediately with a fresh request id
// and performs the decryption plus callback on a separate goroutine. The
// engine sees the same shape of asynchrony a real oracle network produces.
func (s *Service) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	var req DecryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Handles) == 0 {
		http.Error(w, "no handles in request", http.StatusBadRequest)
		return
	}

	handle, err := crypto.NewCiphertextHandleFromString(req.Handles[0])
	if err != nil {
		http.Error(w, "invalid handle encoding", http.StatusBadRequest)
		return
	}

	requestID := uuid.NewString()
	go s.decryptAndCallBack(requestID, handle)

	json.NewEncoder(w).Encode(&DecryptResponse{RequestID: requestID})
}

func (s *Service) decryptAndCallBack(requestID string, handle crypto.CiphertextHandle) {
	if s.cfg.Delay > 0 {
		time.Sleep(s.cfg.Delay)
	}

	amount, err := DecodeAmount(handle)
	if err != nil {
		s.log.Error("could not decode handle", "request", requestID, "err", err)
		return
	}

	cleartext := make([]byte, 8)
	binary.BigEndian.PutUint64(cleartext, amount)

	proof, err := crypto.SignDecryptionProof(s.cfg.SigningKey, s.cfg.ContextID, requestID, cleartext)
	if err != nil {
		s.log.Error("could not sign proof", "request", requestID, "err", err)
		return
	}

	callback := &CallbackRequest{
		RequestID: requestID,
		Cleartext: hex.EncodeToString(cleartext),
		Proof:     proof.String(),
	}
	body, _ := json.Marshal(callback)

	// A 409 means the engine has not recorded the request yet, or has already
	// processed it; both resolve themselves, so the delivery is retried. A 400
	// is a deterministic rejection and retrying it cannot help.
	err = retry.Do(
		func() error {
			resp, err := s.httpClient.Post(s.cfg.CallbackURL, "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			resp.Body.Close()
			switch {
			case resp.StatusCode < 300:
				return nil
			case resp.StatusCode == http.StatusBadRequest:
				return retry.Unrecoverable(fmt.Errorf("callback rejected: %s", resp.Status))
			default:
				return fmt.Errorf("callback not accepted: %s", resp.Status)
			}
		},
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		s.log.Error("callback delivery failed", "request", requestID, "err", err)
		return
	}
	s.log.Info("callback delivered", "request", requestID)
}
