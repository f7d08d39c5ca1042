/*
# Engine Services Package

The services package exposes the payment-request protocol engine over HTTP
and persists its state.

## Components

### EngineAPI (`engine_api.go`)

Wraps `protocol.Engine` with a chi route tree:

  - `POST /admin/providers/add` - Grant the provider role (owner signed)
  - `POST /admin/providers/remove` - Revoke the provider role (owner signed)
  - `POST /admin/pause` - Flip the pause switch (owner signed)
  - `POST /admin/cooldown` - Change the shared cooldown (owner signed)
  - `POST /admin/batch/open` - Open a submission batch (owner signed)
  - `POST /admin/batch/close` - Close the open batch (owner signed)
  - `POST /submit` - Record a provider's encrypted value (provider signed)
  - `POST /request-decryption` - Issue an oracle decryption request (provider signed)
  - `POST /callback` - Oracle result delivery (authenticated by proof)
  - `GET /batch`, `/submissions`, `/requests`, `/requests/{id}`, `/events`, `/config`

Mutating calls are `protocol.Signed` envelopes. The HTTP layer only recovers
the signer; authorization decisions stay in the protocol packages. The /admin
routes can additionally be guarded with a basic-auth token.

Engine errors map to statuses: authorization failures 403, throttle
rejections 429 with a Retry-After hint, lifecycle conflicts 409, integrity
failures 400.

### Stores (`store.go`, `postgres_store.go`)

`EngineStore` persists access-control snapshots, the batch cursor,
submissions, decryption requests and the audit event stream. `PostgresStore`
backs production deployments, `InMemoryStore` backs tests and demo runs.
`RestoreEngine` rebuilds a fresh engine from a store via the protocol restore
hooks without re-emitting events.

## Usage

	engine, _ := protocol.NewEngine(cfg, oracleClient, events)
	api := services.NewEngineAPI(&services.EngineAPIConfig{Engine: engine, Store: store, Log: log})
	srv, _ := httpserver.New(httpCfg, api)
	srv.RunInBackground()
*/
package services
