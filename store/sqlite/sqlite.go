/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements plan.StateStore and plan.EntryQuerier using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  plan.StateStore:    Versioned singleton state with conditional writes
  plan.EntryQuerier:  Read-only month projection over ledger entries

OPTIMISTIC CONCURRENCY:
  The state lives in exactly one row (id=1). A conditional write updates
  it with "WHERE id = 1 AND version = ?"; a zero rowcount means another
  writer got there first, and the caller gets *plan.ConflictError with
  the stored version. No write path ever bypasses the version gate.

KEY TABLES:
  app_state:       The singleton state row (JSON columns + version)
  ledger_entries:  Queryable projection of the state's entry lists,
                   rebuilt on every successful write
  ledger_events:   Append-only audit trail, deduplicated on reference_key

CONCURRENCY:
  Uses sync.Mutex around every write and RWMutex semantics for reads.
  With PostgreSQL, database-level concurrency control handles this
  instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/budget.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - plan/store.go: Interface definitions
  - plan/orchestrator.go: Retry loop built on the conditional write
*/
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/plan"
)

// Synthetic projection IDs start here so they can never collide with
// real entry IDs coming from the UI (millisecond timestamps).
const syntheticIDBase = 900000000000

// Store implements plan.StateStore and plan.EntryQuerier using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- The singleton state row. id is always 1; version is the sole
	-- conflict gate for optimistic concurrency.
	CREATE TABLE IF NOT EXISTS app_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL,
		balance TEXT NOT NULL,
		payments_json TEXT NOT NULL,
		incomes_json TEXT NOT NULL,
		expense_entries_json TEXT NOT NULL,
		income_entries_json TEXT NOT NULL,
		expense_totals_json TEXT NOT NULL,
		income_totals_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Queryable mirror of the state's entry lists. entry_key is
	-- "<type>:<id>"; rebuilt inside the same transaction as every
	-- successful state write.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		entry_key TEXT PRIMARY KEY,
		entry_type TEXT NOT NULL,
		entry_id INTEGER NOT NULL,
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		source TEXT NOT NULL,
		name TEXT NOT NULL,
		icon TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_type_date
		ON ledger_entries(entry_type, entry_date DESC);

	-- Append-only audit trail. reference_key is the idempotency key;
	-- re-inserting an existing key is a silent no-op.
	CREATE TABLE IF NOT EXISTS ledger_events (
		event_id TEXT PRIMARY KEY,
		reference_key TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		currency TEXT NOT NULL,
		details_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_events_type
		ON ledger_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_ledger_events_date
		ON ledger_events(effective_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STATE STORE (plan.StateStore interface)
// =============================================================================

// ReadState returns the current sanitized state. A database with no
// state row yet yields plan.DefaultState() without writing anything.
func (s *Store) ReadState(ctx context.Context) (plan.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readStateRow(ctx, s.db)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) readStateRow(ctx context.Context, db querier) (plan.State, error) {
	var (
		version                        int64
		balance                        string
		paymentsJSON, incomesJSON      string
		expEntriesJSON, incEntriesJSON string
		expTotalsJSON, incTotalsJSON   string
	)

	err := db.QueryRowContext(ctx, `
		SELECT version, balance, payments_json, incomes_json,
		       expense_entries_json, income_entries_json,
		       expense_totals_json, income_totals_json
		FROM app_state WHERE id = 1
	`).Scan(&version, &balance, &paymentsJSON, &incomesJSON,
		&expEntriesJSON, &incEntriesJSON, &expTotalsJSON, &incTotalsJSON)

	if err == sql.ErrNoRows {
		return plan.DefaultState(), nil
	}
	if err != nil {
		return plan.State{}, fmt.Errorf("failed to read state: %w", err)
	}

	state := plan.State{Version: version}
	if state.Balance, err = decimal.NewFromString(balance); err != nil {
		state.Balance = decimal.Zero
	}

	// Stored JSON is trusted but still passed through the sanitizer so
	// legacy rows written by older builds come out well-formed.
	json.Unmarshal([]byte(paymentsJSON), &state.Payments)
	json.Unmarshal([]byte(incomesJSON), &state.Incomes)
	json.Unmarshal([]byte(expEntriesJSON), &state.ExpenseEntries)
	json.Unmarshal([]byte(incEntriesJSON), &state.IncomeEntries)
	json.Unmarshal([]byte(expTotalsJSON), &state.ExpenseCategoryTotals)
	json.Unmarshal([]byte(incTotalsJSON), &state.IncomeCategoryTotals)

	return plan.SanitizeState(state), nil
}

// WriteState persists candidate under the optimistic-concurrency gate.
// The projection rebuild and event inserts share the state update's
// transaction: either everything lands or nothing does.
func (s *Store) WriteState(ctx context.Context, candidate plan.State, expectedVersion *int64, events []plan.LedgerEvent) (plan.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return plan.State{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.readStateRow(ctx, tx)
	if err != nil {
		return plan.State{}, err
	}

	if expectedVersion != nil && *expectedVersion != current.Version {
		return plan.State{}, &plan.ConflictError{CurrentVersion: current.Version}
	}

	next := plan.SanitizeState(candidate)
	next.Version = current.Version + 1

	if err := s.upsertStateRow(ctx, tx, next, current.Version); err != nil {
		return plan.State{}, err
	}
	if err := s.syncProjection(ctx, tx, next); err != nil {
		return plan.State{}, err
	}
	if err := s.insertLedgerEvents(ctx, tx, events); err != nil {
		return plan.State{}, err
	}

	if err := tx.Commit(); err != nil {
		return plan.State{}, fmt.Errorf("failed to commit state write: %w", err)
	}

	return next, nil
}

func (s *Store) upsertStateRow(ctx context.Context, tx *sql.Tx, next plan.State, currentVersion int64) error {
	paymentsJSON, _ := json.Marshal(next.Payments)
	incomesJSON, _ := json.Marshal(next.Incomes)
	expEntriesJSON, _ := json.Marshal(next.ExpenseEntries)
	incEntriesJSON, _ := json.Marshal(next.IncomeEntries)
	expTotalsJSON, _ := json.Marshal(next.ExpenseCategoryTotals)
	incTotalsJSON, _ := json.Marshal(next.IncomeCategoryTotals)
	now := time.Now().UTC().Format(time.RFC3339)

	// The conditional UPDATE is the concurrency gate: it only lands when
	// the row still holds the version we read inside this transaction.
	result, err := tx.ExecContext(ctx, `
		UPDATE app_state SET
			version = ?, balance = ?, payments_json = ?, incomes_json = ?,
			expense_entries_json = ?, income_entries_json = ?,
			expense_totals_json = ?, income_totals_json = ?, updated_at = ?
		WHERE id = 1 AND version = ?
	`, next.Version, next.Balance.String(), string(paymentsJSON), string(incomesJSON),
		string(expEntriesJSON), string(incEntriesJSON),
		string(expTotalsJSON), string(incTotalsJSON), now, currentVersion)
	if err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check state update: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// No row updated: either the singleton does not exist yet, or a
	// concurrent writer moved the version between our read and update.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO app_state
			(id, version, balance, payments_json, incomes_json,
			 expense_entries_json, income_entries_json,
			 expense_totals_json, income_totals_json, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, next.Version, next.Balance.String(), string(paymentsJSON), string(incomesJSON),
		string(expEntriesJSON), string(incEntriesJSON),
		string(expTotalsJSON), string(incTotalsJSON), now)
	if err != nil {
		if isUniqueConstraintError(err) {
			var storedVersion int64
			if scanErr := tx.QueryRowContext(ctx,
				"SELECT version FROM app_state WHERE id = 1").Scan(&storedVersion); scanErr == nil {
				return &plan.ConflictError{CurrentVersion: storedVersion}
			}
		}
		return fmt.Errorf("failed to insert state: %w", err)
	}
	return nil
}

// syncProjection mirrors the state's entry lists into ledger_entries.
// Upserts every live key, then deletes keys absent from the new state.
func (s *Store) syncProjection(ctx context.Context, tx *sql.Tx, state plan.State) error {
	now := time.Now().UTC().Format(time.RFC3339)
	live := make(map[string]bool)

	mirror := func(entryType plan.EntryType, entries []plan.LedgerEntry) error {
		for idx, entry := range entries {
			id := entry.ID
			if id <= 0 {
				id = syntheticIDBase + int64(idx) + 1
			}
			key := fmt.Sprintf("%s:%d", entryType, id)
			live[key] = true

			_, err := tx.ExecContext(ctx, `
				INSERT INTO ledger_entries
					(entry_key, entry_type, entry_id, amount, category,
					 entry_date, source, name, icon, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(entry_key) DO UPDATE SET
					amount = excluded.amount,
					category = excluded.category,
					entry_date = excluded.entry_date,
					source = excluded.source,
					name = excluded.name,
					icon = excluded.icon,
					updated_at = excluded.updated_at
			`, key, string(entryType), id, entry.Amount.String(), entry.Category,
				entry.Date.String(), entry.Source, entry.Name, entry.Icon, now)
			if err != nil {
				return fmt.Errorf("failed to sync entry %s: %w", key, err)
			}
		}
		return nil
	}

	if err := mirror(plan.EntryExpense, state.ExpenseEntries); err != nil {
		return err
	}
	if err := mirror(plan.EntryIncome, state.IncomeEntries); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, "SELECT entry_key FROM ledger_entries")
	if err != nil {
		return fmt.Errorf("failed to list projection keys: %w", err)
	}
	var stale []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return err
		}
		if !live[key] {
			stale = append(stale, key)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, key := range stale {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM ledger_entries WHERE entry_key = ?", key); err != nil {
			return fmt.Errorf("failed to prune projection key %s: %w", key, err)
		}
	}
	return nil
}

// insertLedgerEvents appends audit events with insert-or-ignore
// semantics. Events missing a key, type, date, or amount are skipped
// rather than failing the whole write.
func (s *Store) insertLedgerEvents(ctx context.Context, tx *sql.Tx, events []plan.LedgerEvent) error {
	for _, event := range events {
		if strings.TrimSpace(event.ReferenceKey) == "" || strings.TrimSpace(event.EventType) == "" {
			continue
		}
		if event.EffectiveDate.IsZero() || event.Amount.IsZero() {
			continue
		}

		currency := event.Currency
		if currency == "" {
			currency = plan.DefaultCurrency
		}
		createdAt := event.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		var detailsJSON any
		if len(event.Details) > 0 {
			raw, err := json.Marshal(event.Details)
			if err == nil {
				detailsJSON = string(raw)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO ledger_events
				(event_id, reference_key, event_type, amount,
				 effective_date, currency, details_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, newEventID(), event.ReferenceKey, event.EventType,
			plan.RoundCurrency(event.Amount).String(),
			event.EffectiveDate.String(), currency, detailsJSON,
			createdAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to insert ledger event %s: %w", event.ReferenceKey, err)
		}
	}
	return nil
}

// =============================================================================
// MONTH PROJECTION (plan.EntryQuerier interface)
// =============================================================================

// EntriesForMonth returns all entries of one type within a "YYYY-MM"
// month, newest first, with per-category and grand totals.
func (s *Store) EntriesForMonth(ctx context.Context, entryType plan.EntryType, month string) (plan.MonthEntries, error) {
	if !plan.ValidEntryType(entryType) {
		return plan.MonthEntries{}, plan.ErrInvalidEntryType
	}
	start, end, err := plan.MonthRange(month)
	if err != nil {
		return plan.MonthEntries{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, amount, category, entry_date, source, name, icon
		FROM ledger_entries
		WHERE entry_type = ? AND entry_date >= ? AND entry_date < ?
		ORDER BY entry_date DESC, entry_id DESC
	`, string(entryType), start.String(), end.String())
	if err != nil {
		return plan.MonthEntries{}, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	result := plan.MonthEntries{
		Type:             entryType,
		Month:            month,
		Entries:          []plan.LedgerEntry{},
		TotalsByCategory: plan.CategoryTotals{},
		TotalAmount:      decimal.Zero,
	}

	for rows.Next() {
		var (
			entry   plan.LedgerEntry
			amount  string
			dateRaw string
		)
		if err := rows.Scan(&entry.ID, &amount, &entry.Category, &dateRaw,
			&entry.Source, &entry.Name, &entry.Icon); err != nil {
			return plan.MonthEntries{}, fmt.Errorf("failed to scan entry: %w", err)
		}

		if entry.Amount, err = decimal.NewFromString(amount); err != nil {
			entry.Amount = decimal.Zero
		}
		if entry.Date, err = plan.ParseDate(dateRaw); err != nil {
			continue
		}

		result.Entries = append(result.Entries, entry)
		category := entry.Category
		if category == "" {
			category = plan.DefaultCategory
		}
		result.TotalsByCategory[category] = plan.RoundCurrency(
			result.TotalsByCategory[category].Add(entry.Amount))
		result.TotalAmount = plan.RoundCurrency(result.TotalAmount.Add(entry.Amount))
	}
	if err := rows.Err(); err != nil {
		return plan.MonthEntries{}, err
	}

	return result, nil
}

// =============================================================================
// EVENT QUERIES (admin and test support)
// =============================================================================

// EventRecord is a stored audit event.
type EventRecord struct {
	EventID       string
	ReferenceKey  string
	EventType     string
	Amount        decimal.Decimal
	EffectiveDate plan.Date
	Currency      string
	Details       map[string]any
	CreatedAt     time.Time
}

// EventByReferenceKey returns one event, or nil when the key is absent.
func (s *Store) EventByReferenceKey(ctx context.Context, referenceKey string) (*EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT event_id, reference_key, event_type, amount,
		       effective_date, currency, details_json, created_at
		FROM ledger_events WHERE reference_key = ?
	`, referenceKey)

	record, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListEvents returns the most recent events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, reference_key, event_type, amount,
		       effective_date, currency, details_json, created_at
		FROM ledger_events
		ORDER BY created_at DESC, event_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		record, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*EventRecord, error) {
	var (
		record        EventRecord
		amount        string
		effectiveDate string
		detailsJSON   sql.NullString
		createdAt     string
	)

	err := row.Scan(&record.EventID, &record.ReferenceKey, &record.EventType,
		&amount, &effectiveDate, &record.Currency, &detailsJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	record.Amount, _ = decimal.NewFromString(amount)
	record.EffectiveDate, _ = plan.ParseDate(effectiveDate)
	record.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if detailsJSON.Valid && detailsJSON.String != "" {
		json.Unmarshal([]byte(detailsJSON.String), &record.Details)
	}
	return &record, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func newEventID() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
