package services

import (
	"strings"
	"time"
	"unicode"

	"taxdeed-scraper/models"
)

// dateLayouts are tried in order until one parses. They cover the long
// announcement form used on auction calendars ("Wednesday September 10, 2025")
// and the short forms county sites render in sales tables.
var dateLayouts = []string{
	"Monday January 2, 2006",
	"01/02/2006",
	"2006-01-02",
	"02/01/2006",
}

// priceReplacer strips currency symbols and thousands separators.
var priceReplacer = strings.NewReplacer("$", "", ",", "")

// ParseDate parses a raw date string against the known layouts. Unparseable
// or empty input yields the zero time so one bad cell never aborts a batch;
// callers treat zero as "no date".
func ParseDate(raw string) time.Time {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CleanPrice strips "$" and "," from a raw amount and trims whitespace.
// Empty input (or input that is nothing but symbols) yields "0" so price
// comparisons always have something to chew on.
//
//	"$141,100.00 " → "141100.00"
//	""             → "0"
func CleanPrice(raw string) string {
	cleaned := strings.TrimSpace(priceReplacer.Replace(raw))
	if cleaned == "" {
		return "0"
	}
	return cleaned
}

// NormalizeDate renders a raw date in ordinal form (2006-01-02) so that
// plain string comparison orders dates correctly. Unparseable input yields
// the empty string, which every real marker compares newer than.
func NormalizeDate(raw string) string {
	t := ParseDate(raw)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// SameDate reports whether two raw date strings name the same day, comparing
// parsed values so "09/10/2025" matches "Wednesday September 10, 2025".
// Two unparseable dates only match if the raw strings match.
func SameDate(a, b string) bool {
	ta, tb := ParseDate(a), ParseDate(b)
	if ta.IsZero() && tb.IsZero() {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return ta.Equal(tb)
}

// SamePrice reports whether two raw amounts are equal once cleaned.
func SamePrice(a, b string) bool {
	return CleanPrice(a) == CleanPrice(b)
}

// NewReference parses a task's raw sale date and price once, up front, so the
// extractor compares parsed values instead of re-parsing per row.
func NewReference(rawDate, rawPrice string) models.Reference {
	return models.Reference{
		Date:     ParseDate(rawDate),
		RawDate:  rawDate,
		Price:    CleanPrice(rawPrice),
		RawPrice: rawPrice,
	}
}

// CollapseSpace strips leading/trailing whitespace and collapses internal
// whitespace runs to single spaces.
func CollapseSpace(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
