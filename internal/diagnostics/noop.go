// Package diagnostics provides sinks for the order pipeline's trace events.
// Events never reach stdout, which carries the response contract.
package diagnostics

import (
	"context"
	"log/slog"
)

// Noop logs events at debug level and otherwise drops them. It is the default sink.
type Noop struct {
	logger *slog.Logger
}

// NewNoop returns a sink that logs through logger, or slog.Default when nil.
func NewNoop(logger *slog.Logger) *Noop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Noop{logger: logger}
}

func (n *Noop) Record(ctx context.Context, event string, payload map[string]any) {
	n.logger.DebugContext(ctx, "diagnostics::"+event, "payload", payload)
}

func (n *Noop) Close() error {
	return nil
}
