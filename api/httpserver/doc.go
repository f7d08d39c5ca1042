// Package httpserver provides a reusable HTTP server implementation with
// common functionality for the engine and oracle daemons.
//
// The BaseServer bundles standard health endpoints, structured request
// logging, an optional metrics server and graceful shutdown, so each daemon
// only contributes its routes through the RouteRegistrar interface.
//
// # Health and Diagnostics
//
// All servers built with BaseServer automatically include:
//
//   - Liveness Check: Simple endpoint to verify the server is running (/livez)
//   - Readiness Check: Endpoint indicating if the server accepts requests (/readyz)
//   - Drain Control: Endpoints to prepare for graceful shutdown (/drain, /undrain)
//   - Metrics: Optional Prometheus-compatible metrics endpoint
//   - Profiling: Optional pprof debugging endpoints when enabled
//
// # Usage
//
//	api := services.NewEngineAPI(cfg)
//	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
//	    ListenAddr: "127.0.0.1:8080",
//	    Log:        log,
//	}, api)
//	srv.RunInBackground()
//	defer srv.Shutdown()
package httpserver
