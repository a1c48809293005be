package plan_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/plan"
)

func TestManualBalanceEvents_NewEntries(t *testing.T) {
	// GIVEN: A write adding one manual expense and one manual income
	old := plan.DefaultState()
	old.Balance = decimal.NewFromInt(1000)

	next := old
	next.Balance = decimal.NewFromInt(1050)
	next.ExpenseEntries = []plan.LedgerEntry{
		{ID: 11, Amount: decimal.NewFromInt(50), Category: "food", Date: mustDate("2025-04-01"), Source: plan.SourceBalanceUpdate},
	}
	next.IncomeEntries = []plan.LedgerEntry{
		{ID: 12, Amount: decimal.NewFromInt(100), Category: "bonus", Date: mustDate("2025-04-02"), Source: plan.SourceBalanceUpdate},
	}

	// WHEN: Events are derived for a write against version 3
	events := plan.ManualBalanceEvents(old, next, 3)

	// THEN: Each new entry gets its own keyed event, nothing else
	require.Len(t, events, 2)
	assert.Equal(t, "manual:expense:11", events[0].ReferenceKey)
	assert.Equal(t, plan.EventManualBalanceExpense, events[0].EventType)
	assert.True(t, events[0].Amount.Equal(decimal.NewFromInt(-50)))

	assert.Equal(t, "manual:income:12", events[1].ReferenceKey)
	assert.True(t, events[1].Amount.Equal(decimal.NewFromInt(100)))
}

func TestManualBalanceEvents_Adjustment(t *testing.T) {
	// GIVEN: A balance moved directly with no entry explaining it
	old := plan.DefaultState()
	old.Balance = decimal.NewFromInt(1000)
	next := old
	next.Balance = decimal.NewFromFloat(1234.56)

	events := plan.ManualBalanceEvents(old, next, 5)

	require.Len(t, events, 1)
	assert.Equal(t, "manual:adjustment:v6", events[0].ReferenceKey, "keyed to the version the write produces")
	assert.Equal(t, plan.EventManualBalanceAdjust, events[0].EventType)
	assert.True(t, events[0].Amount.Equal(decimal.NewFromFloat(234.56)))
}

func TestManualBalanceEvents_EntriesExplainBalance(t *testing.T) {
	// GIVEN: The balance moved exactly as much as the new entries say
	old := plan.DefaultState()
	old.Balance = decimal.NewFromInt(1000)
	next := old
	next.Balance = decimal.NewFromInt(950)
	next.ExpenseEntries = []plan.LedgerEntry{
		{ID: 11, Amount: decimal.NewFromInt(50), Category: "food", Date: mustDate("2025-04-01"), Source: plan.SourceBalanceUpdate},
	}

	events := plan.ManualBalanceEvents(old, next, 1)

	require.Len(t, events, 1, "no adjustment event when entries explain the delta")
	assert.Equal(t, "manual:expense:11", events[0].ReferenceKey)
}

func TestManualBalanceEvents_IgnoresSettlementEntries(t *testing.T) {
	// Entries from settlement carry their own events; a user write that
	// happens to include them must not re-book them.
	old := plan.DefaultState()
	next := old
	next.ExpenseEntries = []plan.LedgerEntry{
		{ID: 21, Amount: decimal.NewFromInt(1200), Category: plan.PlannedExpenseCategory, Date: mustDate("2025-04-01"), Source: plan.SourcePlannedPayment},
	}

	assert.Empty(t, plan.ManualBalanceEvents(old, next, 1))
}

func TestManualBalanceEvents_NoChange(t *testing.T) {
	state := plan.DefaultState()
	state.Balance = decimal.NewFromInt(500)
	assert.Empty(t, plan.ManualBalanceEvents(state, state, 1))
}
