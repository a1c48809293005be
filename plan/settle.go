/*
settle.go - The settlement engine

PURPOSE:
  Converts due occurrences into ledger entries, a balance delta, updated
  settled-date sets, and audit events. The engine is pure over its
  inputs: it never touches persistence, and a run that settles nothing
  returns the re-sanitized state unchanged with Changed=false.

RUN MODES:
  Auto  - every schedule item is scanned against local "today".
  Manual - a run reason of the form manual-(payment|income)-<id>-<date>
           restricts settlement to exactly that occurrence of that item,
           and only if the occurrence calculator confirms the date and it
           is not already settled. All other items pass through unchanged.

IDEMPOTENCY:
  Every settled occurrence emits one LedgerEvent keyed
  settlement:<kind>:<itemID>:<occurrence>. The store's insert-or-ignore
  on that key is the sole guard against double-booking across retries.
*/
package plan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs settlement against a plan state. Location decides what
// "today" means; Now is injectable for tests and defaults to time.Now.
type Engine struct {
	Location *time.Location
	Now      func() time.Time
}

// NewEngine creates an engine for the named timezone, falling back to
// the default app timezone and then UTC when the name cannot load.
func NewEngine(timezone string) *Engine {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}
	return &Engine{Location: loc}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().In(e.Location)
	}
	return time.Now().In(e.Location)
}

// =============================================================================
// MANUAL TARGETING
// =============================================================================

var manualReasonRe = regexp.MustCompile(`^manual-(payment|income)-(\d+)-(\d{4}-\d{2}-\d{2})$`)

// ManualTarget restricts a settlement run to one occurrence of one item.
type ManualTarget struct {
	Kind       string // "payment" or "income"
	ID         int64
	Occurrence Date
}

// ParseManualReason extracts a manual settlement target from a run
// reason, or nil when the reason is not in manual form.
func ParseManualReason(reason string) *ManualTarget {
	m := manualReasonRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(reason)))
	if m == nil {
		return nil
	}
	id, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return nil
	}
	occurrence, err := ParseDate(m[3])
	if err != nil {
		return nil
	}
	return &ManualTarget{Kind: m[1], ID: id, Occurrence: occurrence}
}

// =============================================================================
// SETTLEMENT
// =============================================================================

// Apply settles every due occurrence in state and returns the updated
// state, a run summary, and the audit events to append. The input state
// is not mutated.
func (e *Engine) Apply(state State, reason string) (State, Summary, []LedgerEvent) {
	clean := SanitizeState(state)
	nowLocal := e.now()
	target := ParseManualReason(reason)
	includeToday := nowLocal.Hour() >= SettleCutoffHour || target != nil
	today := DateOf(nowLocal)

	summary := Summary{
		BalanceDelta: decimal.Zero,
		RunAt:        nowLocal,
		Today:        today,
		IncludeToday: includeToday,
	}

	expenses := append([]LedgerEntry(nil), clean.ExpenseEntries...)
	incomeEntries := append([]LedgerEntry(nil), clean.IncomeEntries...)
	nextID := NextEntryID(expenses, incomeEntries)

	var events []LedgerEvent

	keptPayments := make([]Payment, 0, len(clean.Payments))
	for _, p := range clean.Payments {
		due := duePaymentOccurrences(p, target, today, includeToday)
		if len(due) == 0 {
			keptPayments = append(keptPayments, p)
			continue
		}

		amount := RoundCurrency(p.Amount.Abs())
		paid := append([]Date(nil), p.PaidDates...)

		for _, occ := range due {
			if !amount.IsPositive() || containsDate(paid, occ) {
				continue
			}
			summary.SettledPayments++
			summary.BalanceDelta = RoundCurrency(summary.BalanceDelta.Sub(amount))
			expenses = append(expenses, LedgerEntry{
				ID:       nextID,
				Amount:   amount,
				Category: PlannedExpenseCategory,
				Date:     occ,
				Source:   SourcePlannedPayment,
				Name:     p.Name,
				Icon:     PlannedEntryIcon,
			})
			nextID++
			paid = append(paid, occ)
			events = append(events, LedgerEvent{
				ReferenceKey:  fmt.Sprintf("settlement:payment:%d:%s", p.ID, occ),
				EventType:     EventSettlementPayment,
				Amount:        amount.Neg(),
				EffectiveDate: occ,
				Currency:      DefaultCurrency,
				Details: map[string]any{
					"paymentId":   p.ID,
					"paymentName": p.Name,
					"frequency":   string(p.Frequency),
					"source":      SourcePlannedPayment,
					"runReason":   reason,
				},
			})
		}

		if p.Frequency != FreqOnce {
			p.PaidDates = NormalizeDates(paid)
			keptPayments = append(keptPayments, p)
		}
	}

	keptIncomes := make([]Income, 0, len(clean.Incomes))
	for _, in := range clean.Incomes {
		due := dueIncomeOccurrences(in, target, today, includeToday)
		if len(due) == 0 {
			keptIncomes = append(keptIncomes, in)
			continue
		}

		amount := RoundCurrency(in.Amount.Abs())
		received := append([]Date(nil), in.ReceivedDates...)

		for _, occ := range due {
			if !amount.IsPositive() || containsDate(received, occ) {
				continue
			}
			summary.SettledIncomes++
			summary.BalanceDelta = RoundCurrency(summary.BalanceDelta.Add(amount))
			incomeEntries = append(incomeEntries, LedgerEntry{
				ID:       nextID,
				Amount:   amount,
				Category: PlannedIncomeCategory,
				Date:     occ,
				Source:   SourcePlannedIncome,
				Name:     in.Name,
				Icon:     PlannedEntryIcon,
			})
			nextID++
			received = append(received, occ)
			events = append(events, LedgerEvent{
				ReferenceKey:  fmt.Sprintf("settlement:income:%d:%s", in.ID, occ),
				EventType:     EventSettlementIncome,
				Amount:        amount,
				EffectiveDate: occ,
				Currency:      DefaultCurrency,
				Details: map[string]any{
					"incomeId":   in.ID,
					"incomeName": in.Name,
					"frequency":  string(in.Frequency),
					"source":     SourcePlannedIncome,
					"runReason":  reason,
				},
			})
		}

		if in.Frequency != FreqOnce {
			in.ReceivedDates = NormalizeDates(received)
			keptIncomes = append(keptIncomes, in)
		}
	}

	if summary.SettledPayments == 0 && summary.SettledIncomes == 0 {
		return clean, summary, nil
	}

	clean.Payments = keptPayments
	clean.Incomes = keptIncomes
	clean.ExpenseEntries = SanitizeEntries(expenses, DefaultCategory)
	clean.IncomeEntries = SanitizeEntries(incomeEntries, DefaultCategory)
	clean.ExpenseCategoryTotals = BuildCategoryTotals(clean.ExpenseEntries)
	clean.IncomeCategoryTotals = BuildCategoryTotals(clean.IncomeEntries)
	clean.Balance = RoundCurrency(clean.Balance.Add(summary.BalanceDelta))

	summary.Changed = true
	summary.BalanceDelta = RoundCurrency(summary.BalanceDelta)
	return clean, summary, events
}

// EmptySummary describes a run that settled nothing, stamped with the
// engine's current clock. Used for soft failures.
func (e *Engine) EmptySummary() Summary {
	nowLocal := e.now()
	return Summary{
		BalanceDelta: decimal.Zero,
		RunAt:        nowLocal,
		Today:        DateOf(nowLocal),
		IncludeToday: nowLocal.Hour() >= SettleCutoffHour,
	}
}

// duePaymentOccurrences resolves the due set for one payment under the
// current run mode. A manual target of either kind suppresses auto
// scanning entirely.
func duePaymentOccurrences(p Payment, target *ManualTarget, today Date, includeToday bool) []Date {
	if target != nil {
		if target.Kind != "payment" || p.ID != target.ID {
			return nil
		}
		if p.IsOccurrence(target.Occurrence) && !p.IsPaid(target.Occurrence) {
			return []Date{target.Occurrence}
		}
		return nil
	}
	return p.DueOccurrences(today, includeToday)
}

func dueIncomeOccurrences(in Income, target *ManualTarget, today Date, includeToday bool) []Date {
	if target != nil {
		if target.Kind != "income" || in.ID != target.ID {
			return nil
		}
		if in.IsOccurrence(target.Occurrence) && !in.IsReceived(target.Occurrence) {
			return []Date{target.Occurrence}
		}
		return nil
	}
	return in.DueOccurrences(today, includeToday)
}

// NextEntryID allocates the next locally-unique ledger entry id: one
// past the maximum across both entry lists.
func NextEntryID(expenses, incomes []LedgerEntry) int64 {
	var max int64
	for _, e := range expenses {
		if e.ID > max {
			max = e.ID
		}
	}
	for _, e := range incomes {
		if e.ID > max {
			max = e.ID
		}
	}
	return max + 1
}
