/*
validate.go - Strict field-level validation of user-supplied state

Sanitization (sanitize.go) tolerates bad data from legacy rows; this
file does the opposite for user writes: every problem is collected with
its field path and the payload is rejected whole. A state that passes
ValidateState can be written without any silent correction beyond the
usual sanitize pass.
*/
package plan

import (
	"fmt"
	"strings"
)

// ValidateState checks a user-supplied state. A nil return means the
// payload is acceptable; otherwise every problem found is listed.
func ValidateState(s State) ValidationErrors {
	var errs ValidationErrors

	if s.Version < 1 {
		errs.add("version", "Version must be a positive integer")
	}

	validatePayments(&errs, s.Payments)
	validateIncomes(&errs, s.Incomes)
	validateEntries(&errs, "expenseEntries", s.ExpenseEntries)
	validateEntries(&errs, "incomeEntries", s.IncomeEntries)
	validateTotals(&errs, "expenseCategoryTotals", s.ExpenseCategoryTotals)
	validateTotals(&errs, "incomeCategoryTotals", s.IncomeCategoryTotals)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validatePayments(errs *ValidationErrors, payments []Payment) {
	seen := make(map[int64]bool)
	for i, p := range payments {
		prefix := fmt.Sprintf("payments[%d]", i)
		validateItemID(errs, prefix, p.ID, seen)
		validateItemName(errs, prefix, p.Name)
		if !p.Amount.IsPositive() {
			errs.add(prefix+".amount", "Amount must be > 0")
		}
		if p.Date.IsZero() {
			errs.add(prefix+".date", "Date must be in YYYY-MM-DD format")
		}

		freq := Frequency(strings.ToLower(strings.TrimSpace(string(p.Frequency))))
		if !ValidPaymentFrequency(freq) {
			errs.add(prefix+".frequency", "Invalid frequency")
		}

		if freq == FreqSelected {
			normalized := NormalizeMonths(p.Months)
			if len(normalized) == 0 {
				errs.add(prefix+".months", "Selected frequency requires at least one month")
			}
			if len(normalized) != len(p.Months) {
				errs.add(prefix+".months", "Months must contain unique values from 1 to 12")
			}
		} else if len(p.Months) > 0 {
			errs.add(prefix+".months", "Months are allowed only for selected frequency")
		}

		validateDateList(errs, prefix+".paidDates", p.PaidDates)
	}
}

func validateIncomes(errs *ValidationErrors, incomes []Income) {
	seen := make(map[int64]bool)
	for i, in := range incomes {
		prefix := fmt.Sprintf("incomes[%d]", i)
		validateItemID(errs, prefix, in.ID, seen)
		validateItemName(errs, prefix, in.Name)
		if !in.Amount.IsPositive() {
			errs.add(prefix+".amount", "Amount must be > 0")
		}
		if in.Date.IsZero() {
			errs.add(prefix+".date", "Date must be in YYYY-MM-DD format")
		}
		if !ValidIncomeFrequency(Frequency(strings.ToLower(strings.TrimSpace(string(in.Frequency))))) {
			errs.add(prefix+".frequency", "Invalid frequency")
		}
		validateDateList(errs, prefix+".receivedDates", in.ReceivedDates)
	}
}

func validateEntries(errs *ValidationErrors, field string, entries []LedgerEntry) {
	seen := make(map[int64]bool)
	for i, e := range entries {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		validateItemID(errs, prefix, e.ID, seen)
		if !e.Amount.IsPositive() {
			errs.add(prefix+".amount", "Amount must be > 0")
		}

		category := strings.TrimSpace(e.Category)
		if category == "" {
			errs.add(prefix+".category", "Category is required")
		}
		if len([]rune(category)) > MaxTextLength {
			errs.add(prefix+".category", fmt.Sprintf("Category max length is %d", MaxTextLength))
		}

		if e.Date.IsZero() {
			errs.add(prefix+".date", "Date must be in YYYY-MM-DD format")
		}
		if len([]rune(strings.TrimSpace(e.Name))) > MaxTextLength {
			errs.add(prefix+".name", fmt.Sprintf("Name max length is %d", MaxTextLength))
		}
		if len([]rune(strings.TrimSpace(e.Icon))) > MaxIconLength {
			errs.add(prefix+".icon", fmt.Sprintf("Icon max length is %d", MaxIconLength))
		}
	}
}

func validateTotals(errs *ValidationErrors, field string, totals CategoryTotals) {
	for category, total := range totals {
		name := strings.TrimSpace(category)
		if name == "" {
			errs.add(field, "Category key cannot be empty")
			continue
		}
		if len([]rune(name)) > MaxTextLength {
			errs.add(field+"."+name, fmt.Sprintf("Category key max length is %d", MaxTextLength))
		}
		if total.IsNegative() {
			errs.add(field+"."+name, "Total must be a finite number >= 0")
		}
	}
}

func validateItemID(errs *ValidationErrors, prefix string, id int64, seen map[int64]bool) {
	if id <= 0 {
		errs.add(prefix+".id", "ID must be a positive integer")
		return
	}
	if seen[id] {
		errs.add(prefix+".id", "Duplicate ID")
		return
	}
	seen[id] = true
}

func validateItemName(errs *ValidationErrors, prefix, name string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		errs.add(prefix+".name", "Name is required")
	}
	if len([]rune(trimmed)) > MaxTextLength {
		errs.add(prefix+".name", fmt.Sprintf("Name max length is %d", MaxTextLength))
	}
}

func validateDateList(errs *ValidationErrors, field string, dates []Date) {
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			errs.add(field, "Must contain valid YYYY-MM-DD dates")
			return
		}
		if seen[d.String()] {
			errs.add(field, "Must contain unique dates")
			return
		}
		seen[d.String()] = true
	}
}
