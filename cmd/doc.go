// Package cmd provides CLI commands for the payment-request engine.
//
// # Commands
//
// engine: Runs the engine service. Accepts provider submissions, drives the
// batch lifecycle and coordinates asynchronous decryption with the oracle.
// Optional PostgreSQL persistence.
//
//	go run ./cmd/engine --owner=<hex pubkey> --oracle-verify-key=<hex pubkey>
//	go run ./cmd/engine --owner=... --oracle-verify-key=... --db-host=localhost
//
// oracle: Runs the demo decryption oracle. Decodes demo handles and posts
// proof-signed results back to the engine.
//
//	go run ./cmd/oracle --callback-url=http://127.0.0.1:8080/callback
//
// demo-cli: CLI for a running engine: key generation, provider management,
// batch lifecycle, submissions, decryption requests and audit inspection.
//
//	go run ./cmd/demo-cli keygen
//	go run ./cmd/demo-cli submit --key=<hex> --batch=0 --amount=125000
//
// # Local Demo
//
// A minimal two-terminal setup:
//
//	# Terminal 1: oracle (logs its verify key on startup)
//	go run ./cmd/oracle
//
//	# Terminal 2: engine
//	go run ./cmd/engine --owner=$OWNER --oracle-verify-key=$VERIFY_KEY
//
// Then drive it with demo-cli: add a provider, open a batch, submit, request
// decryption and watch the events stream.
package cmd
