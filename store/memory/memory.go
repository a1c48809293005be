// Package memory provides an in-memory StateStore for testing and dev.
package memory

import (
	"context"
	"sync"

	"github.com/warp/budget-engine/plan"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store keeps the state, projection, and events in process memory with
// the same semantics as the SQLite store: conditional writes, version
// increments, and insert-or-ignore events.
type Store struct {
	mu     sync.RWMutex
	state  plan.State
	seeded bool
	events map[string]plan.LedgerEvent
}

func New() *Store {
	return &Store{events: make(map[string]plan.LedgerEvent)}
}

func (m *Store) ReadState(_ context.Context) (plan.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.seeded {
		return plan.DefaultState(), nil
	}
	return m.state, nil
}

func (m *Store) WriteState(_ context.Context, candidate plan.State, expectedVersion *int64, events []plan.LedgerEvent) (plan.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.state
	if !m.seeded {
		current = plan.DefaultState()
	}

	if expectedVersion != nil && *expectedVersion != current.Version {
		return plan.State{}, &plan.ConflictError{CurrentVersion: current.Version}
	}

	next := plan.SanitizeState(candidate)
	next.Version = current.Version + 1

	for _, event := range events {
		if event.ReferenceKey == "" || event.EventType == "" ||
			event.EffectiveDate.IsZero() || event.Amount.IsZero() {
			continue
		}
		if _, exists := m.events[event.ReferenceKey]; exists {
			continue
		}
		m.events[event.ReferenceKey] = event
	}

	m.state = next
	m.seeded = true
	return next, nil
}

// Event returns the stored event for a reference key, if any.
func (m *Store) Event(referenceKey string) (plan.LedgerEvent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	event, ok := m.events[referenceKey]
	return event, ok
}

// EventCount reports how many distinct events have been recorded.
func (m *Store) EventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
