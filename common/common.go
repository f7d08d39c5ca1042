// Package common provides shared constants and logger setup for the
// payment-request engine binaries.
package common

import (
	"log/slog"
	"os"
)

// PackageName identifies this module in metrics and logs.
const PackageName = "payment_request_fhe"

// SetupLogger creates a structured logger writing to stderr.
// JSON output is used when json is true, text output otherwise.
func SetupLogger(json bool, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
