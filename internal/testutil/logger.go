package testutil

import (
	"bytes"
	"log/slog"
)

// NopLogger returns a logger that drops every record
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// CaptureLogger returns a JSON logger writing to the returned buffer,
// for tests that assert on log output. Debug records are kept.
func CaptureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
