// Package xlog provides the process-wide logger used by every other
// package in twine. Logging is an external collaborator: nothing here
// participates in route-table or ARP invariants, it only observes them.
package xlog

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/lmittmann/tint"
)

var (
	mu      sync.Mutex
	current = newDefault()
)

func newDefault() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelInfo,
	}))
}

// SetOutput replaces the destination of the global logger. Tests redirect
// this to capture or silence output.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	current = slog.New(tint.NewHandler(w, &tint.Options{Level: level}))
}

// Get returns the current global logger.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// With returns a logger derived from the global one, scoped to a component.
func With(component string) *slog.Logger {
	return Get().With("component", component)
}
