package testutil

import "log/slog"

// DiscardLogger returns a logger that drops everything. Equivalent to
// log.NewNop but without importing internal/log, which keeps testutil usable
// from that package's own tests.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
