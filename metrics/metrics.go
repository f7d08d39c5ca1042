// Package metrics exposes Prometheus-compatible counters for the
// payment-request engine and a small standalone metrics server.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	vmmetrics "github.com/VictoriaMetrics/metrics"
)

var (
	submissionsAccepted = vmmetrics.NewCounter("prf_submissions_accepted_total")
	submissionsRejected = vmmetrics.NewCounter("prf_submissions_rejected_total")
	decryptionRequests  = vmmetrics.NewCounter("prf_decryption_requests_total")
	callbacksAccepted   = vmmetrics.NewCounter("prf_callbacks_accepted_total")
	callbacksRejected   = vmmetrics.NewCounter("prf_callbacks_rejected_total")
)

// IncSubmission counts one submission attempt by outcome.
func IncSubmission(accepted bool) {
	if accepted {
		submissionsAccepted.Inc()
	} else {
		submissionsRejected.Inc()
	}
}

// IncDecryptionRequest counts one accepted decryption request.
func IncDecryptionRequest() {
	decryptionRequests.Inc()
}

// IncCallback counts one oracle callback by outcome.
func IncCallback(accepted bool) {
	if accepted {
		callbacksAccepted.Inc()
	} else {
		callbacksRejected.Inc()
	}
}

// MetricsServer serves the /metrics endpoint on its own listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given address. An empty address
// returns a server that does nothing.
func New(namespace, addr string) (*MetricsServer, error) {
	if namespace == "" {
		return nil, fmt.Errorf("metrics namespace is required")
	}
	if addr == "" {
		return &MetricsServer{}, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmmetrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}, nil
}

// ListenAndServe starts the metrics listener.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
