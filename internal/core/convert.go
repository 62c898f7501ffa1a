package core

// convert.go provides conversion functions from CSV cells to domain values.
//
// These functions handle the messy reality of spreadsheet exports:
//   - Day-first dates (Mexican exports), ISO dates and compact dates
//   - 12 and 24 hour clock values, with or without seconds
//   - Spanish and English booleans (sí/no, true/false, 1/0)
//   - Excel formula prefixes (="value")

import (
	"strings"
	"time"
)

// Canonical layouts for stored dates and times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling.
// Slash and dash dates are day-first.
var (
	twoDigitYearLayouts = []string{
		"2/1/06", "02/01/06", "2-1-06", "2.1.06", "02.01.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
		"2 Jan 2006", "Jan 2, 2006",
		"20060102",
	}
	clockLayouts = []string{
		"15:04:05", "15:04", "3:04:05 PM", "3:04 PM", "3:04PM", "15.04",
	}
)

// ParseDate parses a date cell. The second result is false for empty or
// unrecognised input.
func ParseDate(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	currentYear := time.Now().Year()
	pivotYear := currentYear + TwoDigitYearPivot

	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseClock parses a time-of-day cell and returns it as HH:MM:SS.
func ParseClock(s string) (string, bool) {
	s = strings.ToUpper(CleanCell(s))
	if s == "" {
		return "", false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), true
		}
	}
	return "", false
}

// ParseBool accepts various representations: sí/no, true/false, yes/no, 1/0.
// The second result is false when the value is empty or unrecognised.
func ParseBool(s string) (bool, bool) {
	switch FoldKey(CleanCell(s)) {
	case "si", "s", "true", "t", "yes", "y", "1", "activo":
		return true, true
	case "no", "n", "false", "f", "0", "inactivo", "baja":
		return false, true
	default:
		return false, false
	}
}

// ParseStatus maps a status cell to a Status.
func ParseStatus(s string) (Status, bool) {
	switch FoldKey(CleanCell(s)) {
	case "presente", "present", "p", "asistio", "a tiempo":
		return StatusPresent, true
	case "retardo", "late", "r", "tarde", "tardanza":
		return StatusLate, true
	default:
		return "", false
	}
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are folded for case- and accent-insensitive matching; the first
// occurrence of a repeated header wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := FoldKey(CleanCell(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
