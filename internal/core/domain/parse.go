package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyValue       = errors.New("value is empty")
	ErrNotNumeric       = errors.New("value is not numeric")
	ErrNegativeAmount   = errors.New("value must not be negative")
	ErrUnrecognizedDate = errors.New("value is not a recognized date")
)

// Currency markers that may surround an amount typed by a person.
var currencyMarkers = strings.NewReplacer(
	"Bs.", "", "bs.", "", "BS.", "",
	"Bs", "", "bs", "", "BS", "",
	"USD", "", "usd", "",
	"EUR", "", "eur", "",
	"$", "", "€", "",
	" ", "", "\u00a0", "",
)

var plainDecimal = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ParseAmount reads a non-negative monetary amount written in either the
// 1,234.56 or the 1.234,56 convention.
//
// When both separators appear the rightmost one is the decimal point. A
// separator that appears once is a decimal point; one that repeats is a
// thousands separator.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := currencyMarkers.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, ErrEmptyValue
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case dot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	if !plainDecimal.MatchString(s) {
		return decimal.Zero, ErrNotNumeric
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNotNumeric
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// FormatAmount renders an amount the way it is stored: two decimals, dot
// separator, no grouping.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// CalendarDateLayout is the stored form of a calendar date.
const CalendarDateLayout = "2006-01-02"

var calendarDateLayouts = []string{
	CalendarDateLayout,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
}

// ParseCalendarDate reads a calendar date written as ISO (2006-01-02),
// day-first (02/01/2006) or as a full RFC 3339 timestamp. The result is
// midnight UTC of that date.
func ParseCalendarDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrEmptyValue
	}
	for _, layout := range calendarDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, ErrUnrecognizedDate
}

// FormatCalendarDate renders a date in its stored form. The zero time
// renders as an empty cell.
func FormatCalendarDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(CalendarDateLayout)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04:05",
}

// ParseTimestamp reads a stored submission timestamp. Plain dates are
// accepted for rows written before timestamps carried a time of day.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrEmptyValue
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return ParseCalendarDate(s)
}

// MatchOption finds raw among options ignoring case and surrounding
// whitespace, returning the option's configured spelling.
func MatchOption(raw string, options []string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	for _, opt := range options {
		if strings.EqualFold(s, strings.TrimSpace(opt)) {
			return opt, true
		}
	}
	return "", false
}
