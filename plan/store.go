/*
store.go - Persistence contract for the versioned state

PURPOSE:
  Defines the interface between the domain and the database. The store
  persists one singleton state under optimistic concurrency: conditional
  writes are rejected with a ConflictError when the stored version moved,
  and every successful write atomically rebuilds the transaction
  projection and appends the supplied ledger events.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - store/memory: in-memory store for tests and dev
*/
package plan

import "context"

// StateStore persists the plan state with a monotonic version.
type StateStore interface {
	// ReadState returns the current sanitized state, including its
	// version. A store with no state yet returns DefaultState().
	ReadState(ctx context.Context) (State, error)

	// WriteState persists candidate. When expectedVersion is non-nil and
	// does not match the stored version, the write fails with a
	// *ConflictError and nothing is mutated. On success the returned
	// state carries the incremented version, the transaction projection
	// mirrors the new entry lists, and events are appended with
	// insert-or-ignore semantics, all within one transaction boundary.
	WriteState(ctx context.Context, candidate State, expectedVersion *int64, events []LedgerEvent) (State, error)
}

// EntryQuerier serves the read-only month projection.
type EntryQuerier interface {
	// EntriesForMonth returns entries of one type in one "YYYY-MM"
	// month, newest first, with per-category and grand totals.
	EntriesForMonth(ctx context.Context, entryType EntryType, month string) (MonthEntries, error)
}
