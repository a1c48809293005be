/*
events.go - Audit events for user-initiated balance changes

A user write that adds balance-update entries or moves the balance
directly still produces ledger events, keyed manual:<kind>:<entryId> so
a retried write cannot double-book. Any balance movement not explained
by new entries is recorded as a single adjustment event keyed to the
version the write will produce.
*/
package plan

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ManualBalanceEvents diffs old against next and returns the audit
// events a user-initiated write must append.
func ManualBalanceEvents(old, next State, expectedVersion int64) []LedgerEvent {
	var events []LedgerEvent

	oldExpenseIDs := entryIDSet(old.ExpenseEntries)
	oldIncomeIDs := entryIDSet(old.IncomeEntries)

	tracked := decimal.Zero
	for _, entry := range next.ExpenseEntries {
		if oldExpenseIDs[entry.ID] || entry.Source != SourceBalanceUpdate {
			continue
		}
		amount := RoundCurrency(entry.Amount.Abs())
		if !amount.IsPositive() {
			continue
		}
		tracked = RoundCurrency(tracked.Sub(amount))
		events = append(events, LedgerEvent{
			ReferenceKey:  fmt.Sprintf("manual:expense:%d", entry.ID),
			EventType:     EventManualBalanceExpense,
			Amount:        amount.Neg(),
			EffectiveDate: entry.Date,
			Currency:      DefaultCurrency,
			Details: map[string]any{
				"entryId":         entry.ID,
				"category":        entry.Category,
				"name":            entry.Name,
				"source":          entry.Source,
				"expectedVersion": expectedVersion,
			},
		})
	}

	for _, entry := range next.IncomeEntries {
		if oldIncomeIDs[entry.ID] || entry.Source != SourceBalanceUpdate {
			continue
		}
		amount := RoundCurrency(entry.Amount.Abs())
		if !amount.IsPositive() {
			continue
		}
		tracked = RoundCurrency(tracked.Add(amount))
		events = append(events, LedgerEvent{
			ReferenceKey:  fmt.Sprintf("manual:income:%d", entry.ID),
			EventType:     EventManualBalanceIncome,
			Amount:        amount,
			EffectiveDate: entry.Date,
			Currency:      DefaultCurrency,
			Details: map[string]any{
				"entryId":         entry.ID,
				"category":        entry.Category,
				"name":            entry.Name,
				"source":          entry.Source,
				"expectedVersion": expectedVersion,
			},
		})
	}

	oldBalance := RoundCurrency(old.Balance)
	newBalance := RoundCurrency(next.Balance)
	remainder := RoundCurrency(newBalance.Sub(oldBalance).Sub(tracked))
	if !remainder.IsZero() {
		events = append(events, LedgerEvent{
			ReferenceKey:  fmt.Sprintf("manual:adjustment:v%d", expectedVersion+1),
			EventType:     EventManualBalanceAdjust,
			Amount:        remainder,
			EffectiveDate: DateOf(nowUTC()),
			Currency:      DefaultCurrency,
			Details: map[string]any{
				"oldBalance":      oldBalance,
				"newBalance":      newBalance,
				"trackedDelta":    tracked,
				"expectedVersion": expectedVersion,
			},
		})
	}

	return events
}

func entryIDSet(entries []LedgerEntry) map[int64]bool {
	set := make(map[int64]bool, len(entries))
	for _, e := range entries {
		set[e.ID] = true
	}
	return set
}
