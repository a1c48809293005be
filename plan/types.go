/*
Package plan is the core budget-plan domain: schedule items, ledger
entries, and the settlement engine that converts due occurrences into
history entries, balance deltas, and audit events.

PURPOSE:
  Everything in this package operates on in-memory values only. The wire
  format (JSON blobs inside the SQLite row) is a concern of the store
  layer; the occurrence calculator and settlement engine never see it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Payment/Income: recurring or one-off schedule items
  - LedgerEntry: an immutable history row contributing to the balance
  - State: the unit of optimistic-concurrency control (versioned)
  - LedgerEvent: deduplicated audit record of a balance-affecting change
  - Summary: result of one settlement run

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all money, rounded to 2 places
  2. Idempotency: every ledger event carries a unique reference key
  3. Derivation: category totals are always rebuilt from entries,
     never mutated independently

SEE ALSO:
  - occurrence.go: occurrence calculation and due-date scanning
  - settle.go: the settlement engine
  - store.go: the persistence contract (StateStore)
*/
package plan

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LIMITS AND DEFAULTS
// =============================================================================

const (
	MaxTextLength = 120
	MaxIconLength = 16

	// Local wall-clock hour after which today's occurrences become due.
	SettleCutoffHour = 12

	DefaultCategory        = "inne"
	PlannedExpenseCategory = "zaplanowane płatności"
	PlannedIncomeCategory  = "zaplanowane wpływy"
	PlannedEntryIcon       = "📅"

	SourcePlannedPayment = "planned-payment"
	SourcePlannedIncome  = "planned-income"
	SourceBalanceUpdate  = "balance-update"

	DefaultCurrency = "PLN"
	DefaultTimezone = "Europe/Warsaw"

	defaultItemName = "Bez nazwy"
)

// =============================================================================
// FREQUENCY
// =============================================================================

type Frequency string

const (
	FreqOnce     Frequency = "once"
	FreqMonthly  Frequency = "monthly"
	FreqSelected Frequency = "selected" // payments only
)

func ValidPaymentFrequency(f Frequency) bool {
	return f == FreqOnce || f == FreqMonthly || f == FreqSelected
}

func ValidIncomeFrequency(f Frequency) bool {
	return f == FreqOnce || f == FreqMonthly
}

// =============================================================================
// SCHEDULE ITEMS
// =============================================================================

// Payment is a recurring or one-off planned expense. Date anchors the
// schedule; PaidDates records every occurrence already settled.
type Payment struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Date      Date            `json:"date"`
	Frequency Frequency       `json:"frequency"`
	Months    []int           `json:"months"`
	PaidDates []Date          `json:"paidDates"`
	Type      string          `json:"type"`
}

// Income mirrors Payment without the selected-months form.
type Income struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Date          Date            `json:"date"`
	Frequency     Frequency       `json:"frequency"`
	ReceivedDates []Date          `json:"receivedDates"`
	Type          string          `json:"type"`
}

// =============================================================================
// LEDGER ENTRIES AND DERIVED TOTALS
// =============================================================================

// LedgerEntry is one history row. Entries are never edited in place;
// the whole state is replaced on every write.
type LedgerEntry struct {
	ID       int64           `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     Date            `json:"date"`
	Source   string          `json:"source"`
	Name     string          `json:"name"`
	Icon     string          `json:"icon"`
}

// CategoryTotals maps category name to the 2-decimal sum of its entries.
type CategoryTotals map[string]decimal.Decimal

// =============================================================================
// APPLICATION STATE
// =============================================================================

// State is the whole persisted plan. Version starts at 1 and increases
// by exactly 1 per successful write; it is the sole conflict gate.
type State struct {
	Version               int64           `json:"version"`
	Balance               decimal.Decimal `json:"balance"`
	Payments              []Payment       `json:"payments"`
	Incomes               []Income        `json:"incomes"`
	ExpenseEntries        []LedgerEntry   `json:"expenseEntries"`
	IncomeEntries         []LedgerEntry   `json:"incomeEntries"`
	ExpenseCategoryTotals CategoryTotals  `json:"expenseCategoryTotals"`
	IncomeCategoryTotals  CategoryTotals  `json:"incomeCategoryTotals"`
}

// DefaultState is the sanitized empty plan at version 1.
func DefaultState() State {
	return SanitizeState(State{Version: 1})
}

// =============================================================================
// LEDGER EVENTS
// =============================================================================

// LedgerEvent is an immutable audit record. ReferenceKey is the
// idempotency key: inserting an event whose key already exists is a
// silent no-op.
type LedgerEvent struct {
	ReferenceKey  string          `json:"referenceKey"`
	EventType     string          `json:"eventType"`
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate Date            `json:"effectiveDate"`
	Currency      string          `json:"currency"`
	Details       map[string]any  `json:"details"`
	CreatedAt     time.Time       `json:"createdAt"`
}

const (
	EventSettlementPayment    = "settlement_payment"
	EventSettlementIncome     = "settlement_income"
	EventManualBalanceExpense = "manual_balance_expense"
	EventManualBalanceIncome  = "manual_balance_income"
	EventManualBalanceAdjust  = "manual_balance_adjustment"
)

// =============================================================================
// SETTLEMENT SUMMARY
// =============================================================================

// Summary describes one settlement run.
type Summary struct {
	Changed         bool            `json:"changed"`
	SettledPayments int             `json:"settledPayments"`
	SettledIncomes  int             `json:"settledIncomes"`
	BalanceDelta    decimal.Decimal `json:"balanceDelta"`
	RunAt           time.Time       `json:"runAt"`
	Today           Date            `json:"today"`
	IncludeToday    bool            `json:"includeToday"`
}

// =============================================================================
// MONTH QUERY RESULT
// =============================================================================

type EntryType string

const (
	EntryExpense EntryType = "expense"
	EntryIncome  EntryType = "income"
)

func ValidEntryType(t EntryType) bool {
	return t == EntryExpense || t == EntryIncome
}

// MonthEntries is the read-only projection result for one calendar month.
type MonthEntries struct {
	Type             EntryType       `json:"type"`
	Month            string          `json:"month"`
	Entries          []LedgerEntry   `json:"entries"`
	TotalsByCategory CategoryTotals  `json:"totalsByCategory"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// RoundCurrency normalizes any monetary value to 2 decimal places.
// Applied after every accumulation step so sums cannot drift.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
