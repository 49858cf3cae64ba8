// Package idgen produces ORD-XXXXXXXX order identifiers.
package idgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Random derives IDs from the first four bytes of a random UUID.
type Random struct{}

func (Random) NewID() string {
	id := uuid.New()
	return fmt.Sprintf("ORD-%X", id[:4])
}

// Sequential hands out ORD-00000001, ORD-00000002, ... It is safe for concurrent use.
type Sequential struct {
	mu   sync.Mutex
	next uint32
}

// NewSequential starts the sequence at start.
func NewSequential(start uint32) *Sequential {
	return &Sequential{next: start}
}

func (s *Sequential) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("ORD-%08X", s.next)
	s.next++
	return id
}

// Scripted replays a fixed list of IDs, then falls back to Next.
type Scripted struct {
	mu   sync.Mutex
	ids  []string
	Next interface{ NewID() string }
}

func NewScripted(next interface{ NewID() string }, ids ...string) *Scripted {
	return &Scripted{ids: ids, Next: next}
}

func (s *Scripted) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return s.Next.NewID()
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id
}
