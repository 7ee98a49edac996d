// Package parse converts heterogeneous scraped text into typed values.
//
// Every function here is total: malformed, empty, or missing input yields
// nil, never an error, a panic, or a NaN. Downstream aggregation treats nil
// as "value unknown" and excludes the data point.
package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	kmSuffixRe = regexp.MustCompile(`(?i)\s*km\s*`)
)

// Price extracts a numeric amount from a scraped price string such as
// "24.900 €" or "12.345,67". Currency symbols, spaces and thousands
// separators (dots) are stripped; a decimal comma becomes a decimal point.
func Price(s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	cleaned := strings.NewReplacer("€", "", ".", "", " ", "", " ", "").Replace(s)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Odometer extracts a kilometer reading. Scraped sources deliver either a
// number or a string like "44.986 km"; both are accepted. Any other type,
// or an unparseable string, yields nil.
func Odometer(v any) *int {
	switch km := v.(type) {
	case nil:
		return nil
	case int:
		return &km
	case int64:
		n := int(km)
		return &n
	case float64:
		n := int(km)
		return &n
	case string:
		return odometerString(km)
	case *int:
		return km
	}
	return nil
}

func odometerString(s string) *int {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	cleaned := kmSuffixRe.ReplaceAllString(s, "")
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, ".", ""))
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &n
}

// Year extracts the 4-digit year from a localized date string. Accepted
// shapes are ISO ("2024-10-29" or just "2024-...") and the feed's
// slash-separated "14 / 04 / 2025".
func Year(s string) *int {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	if strings.Contains(s, "-") {
		y, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(s, "-", 2)[0]))
		if err != nil {
			return nil
		}
		return &y
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return nil
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return nil
	}
	return &y
}

// Date parses a full localized date, "DD / MM / YYYY" or ISO "YYYY-MM-DD".
func Date(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if strings.Contains(s, "-") {
		if t, err := time.Parse("2006-01-02", s[:min(len(s), 10)]); err == nil {
			return &t
		}
		return nil
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return nil
	}
	day, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}

// DaysSince returns the whole days elapsed between t and now, never negative.
func DaysSince(t time.Time, now time.Time) int {
	d := int(now.Sub(t).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
