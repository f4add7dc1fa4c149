// Package testutil provides shared test helpers: a logger bound to the
// test and the blog model used across packages.
package testutil

import (
	"bytes"
	"log/slog"
	"testing"
)

// NewTestLogger returns a debug logger that writes to t.Log. Output shows
// on failure or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}
