// Command oracle runs the demo decryption oracle service.
//
// The oracle accepts decryption requests from the engine, decodes demo
// ciphertext handles off-band, and posts proof-signed results back to the
// engine's callback endpoint after an optional artificial delay.
//
// # Usage
//
//	go run ./cmd/oracle \
//	  --callback-url=http://127.0.0.1:8080/callback \
//	  --signing-key=<hex privkey> \
//	  --listen-addr=127.0.0.1:8090
//
// Without --signing-key a fresh keypair is generated and both halves are
// logged; pass the public half to the engine as --oracle-verify-key.
package main

import (
	"encoding/hex"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/api/httpserver"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/common"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/oracle"
)

func main() {
	var (
		listenAddr  = flag.String("listen-addr", "127.0.0.1:8090", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Metrics listen address (empty disables metrics)")
		logJSON     = flag.Bool("log-json", false, "Log in JSON format")
		logDebug    = flag.Bool("log-debug", false, "Log debug messages")

		signingKeyHex = flag.String("signing-key", "", "Proof signing key (hex, generated when empty)")
		contextID     = flag.String("context-id", "payment-request", "Protocol instance identifier")
		callbackURL   = flag.String("callback-url", "http://127.0.0.1:8080/callback", "Engine callback endpoint")
		delay         = flag.Duration("delay", 2*time.Second, "Artificial decryption latency")
	)
	flag.Parse()

	log := common.SetupLogger(*logJSON, *logDebug)

	var signingKey crypto.PrivateKey
	if *signingKeyHex != "" {
		raw, err := hex.DecodeString(*signingKeyHex)
		if err != nil {
			log.Error("Invalid signing key", "err", err)
			os.Exit(1)
		}
		signingKey = crypto.NewPrivateKeyFromBytes(raw)
	} else {
		pubKey, privKey, err := crypto.GenerateKeyPair()
		if err != nil {
			log.Error("Could not generate signing key", "err", err)
			os.Exit(1)
		}
		signingKey = privKey
		log.Info("Generated oracle keypair",
			"verifyKey", pubKey.String(),
			"signingKey", hex.EncodeToString(privKey.Bytes()),
		)
	}

	pubKey, err := signingKey.PublicKey()
	if err != nil {
		log.Error("Invalid signing key", "err", err)
		os.Exit(1)
	}
	log.Info("Oracle proof verification key", "verifyKey", pubKey.String())

	svc := oracle.NewService(&oracle.ServiceConfig{
		SigningKey:  signingKey,
		ContextID:   *contextID,
		CallbackURL: *callbackURL,
		Delay:       *delay,
		Log:         log,
	})

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *listenAddr,
		MetricsAddr:              *metricsAddr,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, svc)
	if err != nil {
		log.Error("Could not create HTTP server", "err", err)
		os.Exit(1)
	}
	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit

	log.Info("Shutting down oracle")
	srv.Shutdown()
}
