package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/domain"
)

// Entry is one diagnostics record.
type Entry struct {
	TSUTC   string         `json:"ts_utc,omitempty"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// JSONLines appends one JSON object per event to a file.
type JSONLines struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	now    func() time.Time
	logger *slog.Logger
}

// OpenJSONLines opens path for appending, creating parent directories as needed.
func OpenJSONLines(path string, logger *slog.Logger) (*JSONLines, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create diagnostics directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open diagnostics file: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLines{
		file:   f,
		enc:    json.NewEncoder(f),
		now:    time.Now,
		logger: logger,
	}, nil
}

// Record writes the event. Write failures are logged and swallowed.
func (j *JSONLines) Record(ctx context.Context, event string, payload map[string]any) {
	entry := Entry{
		TSUTC:   domain.FormatTimestamp(j.now()),
		Event:   event,
		Payload: payload,
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.enc.Encode(entry); err != nil {
		j.logger.WarnContext(ctx, "failed to write diagnostics event", "event", event, "error", err)
	}
}

func (j *JSONLines) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
