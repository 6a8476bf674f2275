// Package logging centralizes the node's log/slog setup. Grounded on
// geanlabs-gean/cmd/gean/main.go's inline level-switch and text handler,
// factored out so every entry point (cmd/leancon, spectests) configures
// logging identically.
package logging

import (
	"log/slog"
	"os"

	"github.com/leanconsensus/node/types"
)

// New builds a text-handler slog.Logger writing to stdout at level, which
// must be one of "debug", "info", "warn", "error" (anything else falls back
// to info).
func New(level string) *slog.Logger {
	l := slog.LevelInfo
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}

// ShortHash renders the first 4 bytes of root as hex, for log lines that
// would otherwise print a full 32-byte root.
func ShortHash(root types.Root) string {
	return root.Short()
}
