package plan_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/plan"
)

func TestSanitizePayment_Defaults(t *testing.T) {
	// GIVEN: A payment with every field degraded
	p := plan.SanitizePayment(plan.Payment{
		ID:        1,
		Name:      "   ",
		Amount:    decimal.NewFromFloat(-12.345),
		Frequency: "  WEEKLY ",
		Months:    []int{3, 0, 13, 3},
		Type:      "income",
	})

	// THEN: Everything degrades to a safe default
	assert.Equal(t, "Bez nazwy", p.Name)
	assert.True(t, p.Amount.Equal(decimal.NewFromFloat(12.35)), "amount is absolute, 2 decimals")
	assert.Equal(t, plan.FreqOnce, p.Frequency, "unknown frequency falls back to once")
	assert.False(t, p.Date.IsZero(), "missing anchor becomes today")
	assert.Empty(t, p.Months, "months only survive on selected frequency")
	assert.Equal(t, "expense", p.Type)
}

func TestSanitizePayment_SelectedMonths(t *testing.T) {
	p := plan.SanitizePayment(plan.Payment{
		ID:        1,
		Name:      "insurance",
		Amount:    decimal.NewFromInt(300),
		Date:      mustDate("2025-01-31"),
		Frequency: "Selected",
		Months:    []int{10, 1, 7, 4, 4, 0, 13},
	})

	assert.Equal(t, plan.FreqSelected, p.Frequency)
	assert.Equal(t, []int{1, 4, 7, 10}, p.Months)
}

func TestSanitizeIncome_RejectsSelected(t *testing.T) {
	in := plan.SanitizeIncome(plan.Income{
		ID:        1,
		Name:      "salary",
		Amount:    decimal.NewFromInt(5000),
		Date:      mustDate("2025-01-01"),
		Frequency: "selected",
	})
	assert.Equal(t, plan.FreqOnce, in.Frequency, "incomes have no selected form")
}

func TestSanitizeEntries(t *testing.T) {
	entries := plan.SanitizeEntries([]plan.LedgerEntry{
		{ID: 1, Amount: decimal.NewFromFloat(-9.999), Category: "  ", Name: " coffee ", Icon: strings.Repeat("x", 40), Date: mustDate("2025-01-05")},
		{ID: 2, Amount: decimal.NewFromInt(5), Category: strings.Repeat("k", 200), Date: mustDate("2025-01-06"), Source: ""},
	}, plan.DefaultCategory)

	require.Len(t, entries, 2)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromFloat(10.00)))
	assert.Equal(t, plan.DefaultCategory, entries[0].Category)
	assert.Equal(t, "coffee", entries[0].Name)
	assert.Len(t, []rune(entries[0].Icon), plan.MaxIconLength)
	assert.Len(t, []rune(entries[1].Category), plan.MaxTextLength)
	assert.Equal(t, plan.SourceBalanceUpdate, entries[1].Source)
}

func TestBuildCategoryTotals_RoundsEveryStep(t *testing.T) {
	entries := []plan.LedgerEntry{
		{Category: "a", Amount: decimal.NewFromFloat(0.105)},
		{Category: "a", Amount: decimal.NewFromFloat(0.105)},
		{Category: "", Amount: decimal.NewFromInt(3)},
	}

	totals := plan.BuildCategoryTotals(entries)

	// 0.105 rounds to 0.11 before accumulation
	assert.True(t, totals["a"].Equal(decimal.NewFromFloat(0.22)), "total was %s", totals["a"])
	assert.True(t, totals[plan.DefaultCategory].Equal(decimal.NewFromInt(3)), "empty category maps to the default")
}

func TestNormalizeDates(t *testing.T) {
	out := plan.NormalizeDates([]plan.Date{
		mustDate("2025-03-01"),
		{},
		mustDate("2025-01-15"),
		mustDate("2025-03-01"),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "2025-01-15", out[0].String())
	assert.Equal(t, "2025-03-01", out[1].String())
}

func TestSanitizeState_RebuildsTotals(t *testing.T) {
	// GIVEN: A state whose stored totals disagree with its entries
	raw := plan.State{
		Version:        0,
		Balance:        decimal.NewFromFloat(100.005),
		ExpenseEntries: []plan.LedgerEntry{{ID: 1, Amount: decimal.NewFromInt(40), Category: "food", Date: mustDate("2025-02-01")}},
		ExpenseCategoryTotals: plan.CategoryTotals{
			"food": decimal.NewFromInt(999),
		},
	}

	clean := plan.SanitizeState(raw)

	// THEN: Totals come from the entries, never from the stored map
	assert.Equal(t, int64(1), clean.Version, "version floor is 1")
	assert.True(t, clean.Balance.Equal(decimal.NewFromFloat(100.01)))
	assert.True(t, clean.ExpenseCategoryTotals["food"].Equal(decimal.NewFromInt(40)))
}
