// Command engine runs the payment-request engine service.
//
// The engine accepts confidential submissions from providers, tracks batch
// lifecycle, and coordinates asynchronous decryption through an external
// oracle service.
//
// # Usage
//
//	go run ./cmd/engine \
//	  --owner=<hex pubkey> \
//	  --oracle-verify-key=<hex pubkey> \
//	  --oracle-url=http://127.0.0.1:8090 \
//	  --listen-addr=127.0.0.1:8080
//
// Persistence is enabled by pointing --db-host at a PostgreSQL instance;
// without it the engine keeps state in memory only.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/api/httpserver"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/common"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/oracle"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/protocol"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/services"
)

func main() {
	var (
		listenAddr  = flag.String("listen-addr", "127.0.0.1:8080", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Metrics listen address (empty disables metrics)")
		enablePprof = flag.Bool("pprof", false, "Enable the pprof debug API")
		logJSON     = flag.Bool("log-json", false, "Log in JSON format")
		logDebug    = flag.Bool("log-debug", false, "Log debug messages")

		owner           = flag.String("owner", "", "Owner address (hex ed25519 public key)")
		contextID       = flag.String("context-id", "payment-request", "Protocol instance identifier")
		cooldown        = flag.Duration("cooldown", 30*time.Second, "Initial per-actor action cooldown")
		oracleURL       = flag.String("oracle-url", "http://127.0.0.1:8090", "Decryption oracle base URL")
		oracleVerifyKey = flag.String("oracle-verify-key", "", "Oracle proof verification key (hex)")
		adminToken      = flag.String("admin-token", "", "Basic auth token for /admin routes (user:pass)")

		dbHost     = flag.String("db-host", "", "PostgreSQL host (empty disables persistence)")
		dbPort     = flag.Int("db-port", 5432, "PostgreSQL port")
		dbUser     = flag.String("db-user", "postgres", "PostgreSQL user")
		dbPassword = flag.String("db-password", "", "PostgreSQL password")
		dbName     = flag.String("db-name", "payment_request", "PostgreSQL database name")
		dbSSLMode  = flag.String("db-sslmode", "", "PostgreSQL SSL mode")
	)
	flag.Parse()

	log := common.SetupLogger(*logJSON, *logDebug)

	if *owner == "" {
		log.Error("--owner is required")
		os.Exit(1)
	}
	if *oracleVerifyKey == "" {
		log.Error("--oracle-verify-key is required")
		os.Exit(1)
	}

	var store services.EngineStore
	if *dbHost != "" {
		pg, err := services.NewPostgresStore(&services.PostgresConfig{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Password: *dbPassword,
			Database: *dbName,
			SSLMode:  *dbSSLMode,
		})
		if err != nil {
			log.Error("Could not connect to database", "err", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
	}

	eventLog := services.NewEventLog()
	sink := protocol.MultiSink{&protocol.SlogSink{Log: log}, eventLog}
	if store != nil {
		sink = append(sink, &services.StoreSink{Store: store, Log: log})
	}

	engine, err := protocol.NewEngine(&protocol.Config{
		Owner:           *owner,
		ContextID:       *contextID,
		Cooldown:        *cooldown,
		OracleVerifyKey: *oracleVerifyKey,
	}, oracle.NewClient(*oracleURL), sink)
	if err != nil {
		log.Error("Could not create engine", "err", err)
		os.Exit(1)
	}

	if store != nil {
		if err := services.RestoreEngine(engine, store); err != nil {
			log.Error("Could not restore engine state", "err", err)
			os.Exit(1)
		}
		batchID, open := engine.Ledger.CurrentBatch()
		log.Info("Restored engine state",
			"batch", batchID,
			"open", open,
			"providers", len(engine.Access.Providers()),
			"submissions", len(engine.Ledger.Submissions()),
			"requests", len(engine.Coordinator.Requests()),
		)
	}

	if *adminToken == "" {
		log.Warn("No admin token configured, /admin routes rely on owner signatures only")
	}

	api := services.NewEngineAPI(&services.EngineAPIConfig{
		Engine:     engine,
		Store:      store,
		Events:     eventLog,
		AdminToken: *adminToken,
		Log:        log,
	})

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *listenAddr,
		MetricsAddr:              *metricsAddr,
		EnablePprof:              *enablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, api)
	if err != nil {
		log.Error("Could not create HTTP server", "err", err)
		os.Exit(1)
	}
	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit

	log.Info("Shutting down engine")
	srv.Shutdown()
}
