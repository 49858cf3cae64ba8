package diagnostics

import (
	"context"
	"maps"
	"sync"
)

// Memory keeps events in memory for assertions in tests.
type Memory struct {
	mu     sync.Mutex
	events []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, event string, payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Entry{Event: event, Payload: maps.Clone(payload)})
}

// Events returns a snapshot of the recorded events.
func (m *Memory) Events() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.events...)
}

// Names returns the recorded event names in order.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.events))
	for _, e := range m.events {
		names = append(names, e.Event)
	}
	return names
}

func (m *Memory) Close() error {
	return nil
}
