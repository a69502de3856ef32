// Package llm holds the transports that turn a (system, prompt) pair into the
// raw text of a JSON completion.
package llm

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

var ErrCircuitOpen = errors.New("llm circuit open")

// Generator asks a model for a JSON-formatted completion and returns the
// raw text. Implementations do not retry.
type Generator interface {
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
}

// package-level logger for pkg/llm; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/llm. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}
