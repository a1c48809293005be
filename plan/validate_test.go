package plan_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/plan"
)

func validState() plan.State {
	s := plan.DefaultState()
	s.Payments = []plan.Payment{{
		ID:        1,
		Name:      "rent",
		Amount:    decimal.NewFromInt(1200),
		Date:      mustDate("2025-01-15"),
		Frequency: plan.FreqMonthly,
	}}
	s.Incomes = []plan.Income{{
		ID:        1,
		Name:      "salary",
		Amount:    decimal.NewFromInt(5000),
		Date:      mustDate("2025-01-01"),
		Frequency: plan.FreqMonthly,
	}}
	return s
}

func fieldsOf(errs plan.ValidationErrors) []string {
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	return fields
}

func TestValidateState_Valid(t *testing.T) {
	assert.Nil(t, plan.ValidateState(validState()))
}

func TestValidateState_Version(t *testing.T) {
	s := validState()
	s.Version = 0
	errs := plan.ValidateState(s)
	require.NotNil(t, errs)
	assert.Contains(t, fieldsOf(errs), "version")
}

func TestValidateState_PaymentFields(t *testing.T) {
	s := validState()
	s.Payments = append(s.Payments, plan.Payment{
		ID:        1, // duplicate of the first payment
		Name:      "",
		Amount:    decimal.NewFromInt(-5),
		Frequency: "weekly",
		Months:    []int{3},
	})

	errs := plan.ValidateState(s)
	require.NotNil(t, errs)

	fields := fieldsOf(errs)
	assert.Contains(t, fields, "payments[1].id")
	assert.Contains(t, fields, "payments[1].name")
	assert.Contains(t, fields, "payments[1].amount")
	assert.Contains(t, fields, "payments[1].date")
	assert.Contains(t, fields, "payments[1].frequency")
	assert.Contains(t, fields, "payments[1].months", "months without selected frequency")
}

func TestValidateState_SelectedMonths(t *testing.T) {
	s := validState()
	s.Payments[0].Frequency = plan.FreqSelected
	s.Payments[0].Months = nil

	errs := plan.ValidateState(s)
	require.NotNil(t, errs)
	assert.Contains(t, fieldsOf(errs), "payments[0].months")

	s.Payments[0].Months = []int{3, 3}
	errs = plan.ValidateState(s)
	require.NotNil(t, errs)
	assert.Contains(t, fieldsOf(errs), "payments[0].months", "duplicate months rejected")

	s.Payments[0].Months = []int{1, 6, 12}
	assert.Nil(t, plan.ValidateState(s))
}

func TestValidateState_IncomeFrequency(t *testing.T) {
	s := validState()
	s.Incomes[0].Frequency = plan.FreqSelected

	errs := plan.ValidateState(s)
	require.NotNil(t, errs)
	assert.Contains(t, fieldsOf(errs), "incomes[0].frequency")
}

func TestValidateState_Entries(t *testing.T) {
	s := validState()
	s.ExpenseEntries = []plan.LedgerEntry{
		{ID: 0, Amount: decimal.Zero, Category: ""},
	}

	errs := plan.ValidateState(s)
	require.NotNil(t, errs)

	fields := fieldsOf(errs)
	assert.Contains(t, fields, "expenseEntries[0].id")
	assert.Contains(t, fields, "expenseEntries[0].amount")
	assert.Contains(t, fields, "expenseEntries[0].category")
	assert.Contains(t, fields, "expenseEntries[0].date")
}

func TestValidateState_PaidDates(t *testing.T) {
	s := validState()
	s.Payments[0].PaidDates = []plan.Date{mustDate("2025-01-15"), mustDate("2025-01-15")}

	errs := plan.ValidateState(s)
	require.NotNil(t, errs)
	assert.Contains(t, fieldsOf(errs), "payments[0].paidDates")
}

func TestValidateState_Totals(t *testing.T) {
	s := validState()
	s.ExpenseCategoryTotals = plan.CategoryTotals{
		"food": decimal.NewFromInt(-1),
	}

	errs := plan.ValidateState(s)
	require.NotNil(t, errs)
	assert.Contains(t, fieldsOf(errs), "expenseCategoryTotals.food")
}
