/*
occurrence.go - Occurrence calculation and due-date scanning

PURPOSE:
  Pure calendar arithmetic over schedule items. OccurrenceForMonth answers
  "on which date does this item fall in month M?", clamping the anchor day
  to the last valid day of the month (anchor Jan-31 -> Feb-28/29).
  DueOccurrences walks every month from the anchor to today, so a dormant
  item surfaces one occurrence per missed month, bounded only by the
  settled-date set.

EDGE-CASE POLICY:
  Invalid anchors or unknown frequencies yield no occurrence rather than
  an error, tolerating legacy data. The same calculator validates manually
  targeted occurrences, so a settled-date set can never contain a date the
  calculator would not generate.
*/
package plan

import "time"

// =============================================================================
// OCCURRENCE CALCULATOR
// =============================================================================

// occurrenceForMonth is the shared core: given an anchor, a frequency,
// and an optional selected-months set, return the occurrence date in the
// target month, if any.
func occurrenceForMonth(anchor Date, freq Frequency, months []int, year int, month time.Month) (Date, bool) {
	if anchor.IsZero() {
		return Date{}, false
	}

	switch freq {
	case FreqOnce:
		if anchor.Year() == year && anchor.Month() == month {
			return anchor, true
		}
		return Date{}, false

	case FreqMonthly:
		occ := clampToMonth(anchor, year, month)
		if occ.Before(anchor) {
			return Date{}, false
		}
		return occ, true

	case FreqSelected:
		if !containsMonth(months, int(month)) {
			return Date{}, false
		}
		occ := clampToMonth(anchor, year, month)
		if occ.Before(anchor) {
			return Date{}, false
		}
		return occ, true
	}

	return Date{}, false
}

// clampToMonth places the anchor's day-of-month into the target month,
// clamped to that month's last valid day.
func clampToMonth(anchor Date, year int, month time.Month) Date {
	day := anchor.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

func containsMonth(months []int, month int) bool {
	for _, m := range months {
		if m == month {
			return true
		}
	}
	return false
}

// OccurrenceForMonth returns the payment's occurrence date in the given
// month, or false when the payment does not occur there.
func (p Payment) OccurrenceForMonth(year int, month time.Month) (Date, bool) {
	return occurrenceForMonth(p.Date, p.Frequency, p.Months, year, month)
}

// OccurrenceForMonth returns the income's occurrence date in the given
// month, or false. Incomes have no selected-months form.
func (in Income) OccurrenceForMonth(year int, month time.Month) (Date, bool) {
	return occurrenceForMonth(in.Date, in.Frequency, nil, year, month)
}

// IsOccurrence reports whether a candidate date is a legitimate
// occurrence of the payment. Used to validate manual settlement targets.
func (p Payment) IsOccurrence(candidate Date) bool {
	if candidate.IsZero() {
		return false
	}
	occ, ok := p.OccurrenceForMonth(candidate.Year(), candidate.Month())
	return ok && occ.Equal(candidate)
}

// IsOccurrence reports whether a candidate date is a legitimate
// occurrence of the income.
func (in Income) IsOccurrence(candidate Date) bool {
	if candidate.IsZero() {
		return false
	}
	occ, ok := in.OccurrenceForMonth(candidate.Year(), candidate.Month())
	return ok && occ.Equal(candidate)
}

// =============================================================================
// SETTLED-DATE LOOKUP
// =============================================================================

// IsPaid reports whether the payment occurrence is already settled.
func (p Payment) IsPaid(occurrence Date) bool {
	return containsDate(p.PaidDates, occurrence)
}

// IsReceived reports whether the income occurrence is already settled.
func (in Income) IsReceived(occurrence Date) bool {
	return containsDate(in.ReceivedDates, occurrence)
}

func containsDate(dates []Date, d Date) bool {
	for _, existing := range dates {
		if existing.Equal(d) {
			return true
		}
	}
	return false
}

// =============================================================================
// DUE-OCCURRENCE SCANNER
// =============================================================================

// dueOccurrences enumerates due, unsettled occurrence dates in order.
// An occurrence is due when it falls strictly before today, or on today
// when includeToday is set. Recurring items visit every month from the
// anchor's month through today's month inclusive.
func dueOccurrences(anchor Date, freq Frequency, months []int, settled []Date, today Date, includeToday bool) []Date {
	if anchor.IsZero() {
		return nil
	}

	isDue := func(occ Date) bool {
		return occ.Before(today) || (includeToday && occ.Equal(today))
	}

	if freq == FreqOnce {
		if isDue(anchor) && !containsDate(settled, anchor) {
			return []Date{anchor}
		}
		return nil
	}

	var due []Date
	year, month := anchor.Year(), anchor.Month()
	for monthOnOrBefore(year, month, today.Year(), today.Month()) {
		if occ, ok := occurrenceForMonth(anchor, freq, months, year, month); ok {
			if isDue(occ) && !containsDate(settled, occ) {
				due = append(due, occ)
			}
		}
		year, month = nextMonth(year, month)
	}
	return due
}

// DueOccurrences returns the payment's due, unsettled occurrences up to
// today.
func (p Payment) DueOccurrences(today Date, includeToday bool) []Date {
	return dueOccurrences(p.Date, p.Frequency, p.Months, p.PaidDates, today, includeToday)
}

// DueOccurrences returns the income's due, unsettled occurrences up to
// today.
func (in Income) DueOccurrences(today Date, includeToday bool) []Date {
	return dueOccurrences(in.Date, in.Frequency, nil, in.ReceivedDates, today, includeToday)
}
