/*
sanitize.go - Tolerant normalization of loose or legacy state

PURPOSE:
  Every state crossing the persistence boundary (read or write) passes
  through SanitizeState. Legacy rows with missing fields, invalid dates,
  or unknown frequencies degrade to safe defaults instead of erroring.
  Strict rejection of user input is validate.go's job; this file only
  guarantees the engine always operates on well-formed values.
*/
package plan

import (
	"sort"
	"strings"
	"time"
)

// SanitizeState returns a fully normalized copy of raw. Category totals
// are always rebuilt from the cleaned entry lists, so the invariant
// "totals == sum of entries per category" holds after every call.
func SanitizeState(raw State) State {
	version := raw.Version
	if version < 1 {
		version = 1
	}

	payments := make([]Payment, 0, len(raw.Payments))
	for _, p := range raw.Payments {
		payments = append(payments, SanitizePayment(p))
	}
	incomes := make([]Income, 0, len(raw.Incomes))
	for _, in := range raw.Incomes {
		incomes = append(incomes, SanitizeIncome(in))
	}

	expenseEntries := SanitizeEntries(raw.ExpenseEntries, DefaultCategory)
	incomeEntries := SanitizeEntries(raw.IncomeEntries, DefaultCategory)

	return State{
		Version:               version,
		Balance:               RoundCurrency(raw.Balance),
		Payments:              payments,
		Incomes:               incomes,
		ExpenseEntries:        expenseEntries,
		IncomeEntries:         incomeEntries,
		ExpenseCategoryTotals: BuildCategoryTotals(expenseEntries),
		IncomeCategoryTotals:  BuildCategoryTotals(incomeEntries),
	}
}

// SanitizePayment normalizes one payment item. Unknown frequencies fall
// back to once; invalid anchor dates fall back to today.
func SanitizePayment(p Payment) Payment {
	freq := Frequency(strings.ToLower(strings.TrimSpace(string(p.Frequency))))
	if !ValidPaymentFrequency(freq) {
		freq = FreqOnce
	}

	anchor := p.Date
	if anchor.IsZero() {
		anchor = DateOf(time.Now())
	}

	months := []int{}
	if freq == FreqSelected {
		months = NormalizeMonths(p.Months)
	}

	return Payment{
		ID:        p.ID,
		Name:      sanitizeText(p.Name, MaxTextLength, defaultItemName, false),
		Amount:    RoundCurrency(p.Amount.Abs()),
		Date:      anchor,
		Frequency: freq,
		Months:    months,
		PaidDates: NormalizeDates(p.PaidDates),
		Type:      "expense",
	}
}

// SanitizeIncome normalizes one income item.
func SanitizeIncome(in Income) Income {
	freq := Frequency(strings.ToLower(strings.TrimSpace(string(in.Frequency))))
	if !ValidIncomeFrequency(freq) {
		freq = FreqOnce
	}

	anchor := in.Date
	if anchor.IsZero() {
		anchor = DateOf(time.Now())
	}

	return Income{
		ID:            in.ID,
		Name:          sanitizeText(in.Name, MaxTextLength, defaultItemName, false),
		Amount:        RoundCurrency(in.Amount.Abs()),
		Date:          anchor,
		Frequency:     freq,
		ReceivedDates: NormalizeDates(in.ReceivedDates),
		Type:          "income",
	}
}

// SanitizeEntries normalizes a ledger entry list. Entries keep their IDs
// even when non-positive; the projection assigns synthetic keys for those.
func SanitizeEntries(raw []LedgerEntry, defaultCategory string) []LedgerEntry {
	cleaned := make([]LedgerEntry, 0, len(raw))
	for _, e := range raw {
		entryDate := e.Date
		if entryDate.IsZero() {
			entryDate = DateOf(time.Now())
		}

		category := sanitizeText(e.Category, MaxTextLength, defaultCategory, false)
		if category == "" {
			category = defaultCategory
		}

		cleaned = append(cleaned, LedgerEntry{
			ID:       e.ID,
			Amount:   RoundCurrency(e.Amount.Abs()),
			Category: category,
			Date:     entryDate,
			Source:   sanitizeText(e.Source, 64, SourceBalanceUpdate, false),
			Name:     sanitizeText(e.Name, MaxTextLength, "", true),
			Icon:     sanitizeText(e.Icon, MaxIconLength, "", true),
		})
	}
	return cleaned
}

// BuildCategoryTotals recomputes the derived totals map from scratch.
func BuildCategoryTotals(entries []LedgerEntry) CategoryTotals {
	totals := make(CategoryTotals)
	for _, e := range entries {
		category := e.Category
		if category == "" {
			category = DefaultCategory
		}
		totals[category] = RoundCurrency(totals[category].Add(RoundCurrency(e.Amount)))
	}
	return totals
}

// NormalizeDates drops zero dates, removes duplicates, and sorts.
func NormalizeDates(raw []Date) []Date {
	seen := make(map[string]bool, len(raw))
	out := make([]Date, 0, len(raw))
	for _, d := range raw {
		if d.IsZero() || seen[d.String()] {
			continue
		}
		seen[d.String()] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// NormalizeMonths keeps unique months in [1, 12], sorted ascending.
func NormalizeMonths(raw []int) []int {
	seen := make(map[int]bool, len(raw))
	out := make([]int, 0, len(raw))
	for _, m := range raw {
		if m < 1 || m > 12 || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// sanitizeText trims, applies the fallback for required fields, and
// truncates to maxLen runes.
func sanitizeText(value string, maxLen int, fallback string, allowEmpty bool) string {
	text := strings.TrimSpace(value)
	if text == "" && !allowEmpty {
		text = fallback
	}
	runes := []rune(text)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return text
}
