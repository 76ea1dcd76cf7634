package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Supplier bills carry expiry dates in wildly inconsistent shapes:
// "05/26", "5-26", "2025-11", full dates, or free text. Rules are tried
// in order and the first match wins; anything unparseable is treated as
// unknown rather than an error.

var (
	monthYearPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{2})$`)
	yearMonthPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
)

// genericDateFormats are tried last, for bills that print a complete date.
var genericDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/2006",
	"2006/01/02",
	"02-01-2006",
	"Jan 2006",
	"January 2006",
	"02 Jan 2006",
}

// ParseExpiry interprets a raw expiry string from a bill. It returns nil
// when the string is empty or no rule applies.
func ParseExpiry(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if m := monthYearPattern.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			// Two-digit years pivot at 50: 26 -> 2026, 99 -> 1999.
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
			t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}

	if m := yearMonthPattern.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}

	for _, format := range genericDateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}

	return nil
}
