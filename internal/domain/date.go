package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Serial day numbers between these bounds are treated as plausible spreadsheet
// dates under the 1899-12-30 epoch: 50 ≈ 1900-02-18, 60000 ≈ 2064-04-07.
// Anything outside is assumed to be an identifier or a stray measurement.
const (
	serialDayMin = 50
	serialDayMax = 60000
)

// serialEpoch is the spreadsheet day-zero (the 1900 system with its historical
// off-by-two, so serial 42370 lands on 2016-01-01).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	// numericRe matches values that are purely numeric and therefore not
	// textual dates (serial day candidates, stray measurements).
	numericRe = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)

	// yearTokenRe extracts the first plausible 4-digit year (19xx/20xx) from
	// free text, bounded by non-digits.
	yearTokenRe = regexp.MustCompile(`(?:^|\D)((?:19|20)\d{2})(?:\D|$)`)
)

// InferEventDate recovers the best-effort event date for one record via an
// ordered, short-circuiting chain. For each candidate date column it tries a
// direct textual parse, then a range split on the first "/", then a serial day
// conversion; after the columns it falls back to discrete year/month/day
// components, then to free-text sniffing (workbook path only), then to a bare
// year. The first successful stage wins; later stages never override it.
func InferEventDate(rec OccurrenceRecord) DateResolution {
	for _, raw := range rec.DateTexts {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if t, ok := parseTextualDate(raw); ok {
			return dayResolution(t)
		}
		if t, ok := parseRangeStart(raw); ok {
			return dayResolution(t)
		}
		if t, ok := parseSerialDay(raw); ok {
			return dayResolution(t)
		}
	}

	if t, ok := dateFromComponents(rec.Year, rec.Month, rec.Day); ok {
		return dayResolution(t)
	}

	if t, ok := sniffFreeText(rec.FreeText); ok {
		return dayResolution(t)
	}

	if y, ok := parseYearNumber(rec.Year); ok {
		return DateResolution{Year: y, Granularity: GranularityYear}
	}

	return DateResolution{}
}

func dayResolution(t time.Time) DateResolution {
	t = t.UTC()
	return DateResolution{Instant: t, Year: t.Year(), Granularity: GranularityDay}
}

// parseTextualDate parses common textual date formats in UTC. Purely numeric
// values are not textual dates, with one exception: a 4-digit integer in
// 1000–9999 is a bare calendar year and resolves to January 1st. Longer or
// shorter digit runs fall through to the serial day stage.
func parseTextualDate(raw string) (time.Time, bool) {
	if numericRe.MatchString(raw) {
		if len(raw) == 4 {
			if y, err := strconv.Atoi(raw); err == nil && y >= 1000 {
				return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
			}
		}
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseRangeStart interprets text containing "/" as a start/end range
// (ISO 8601 interval style, "2007-03-01/2008-05-11") and parses the substring
// before the first separator as the start.
func parseRangeStart(raw string) (time.Time, bool) {
	idx := strings.Index(raw, "/")
	if idx < 0 {
		return time.Time{}, false
	}
	return parseTextualDate(strings.TrimSpace(raw[:idx]))
}

// parseSerialDay converts a plausible spreadsheet serial day number to a date.
func parseSerialDay(raw string) (time.Time, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f < serialDayMin || f > serialDayMax {
		return time.Time{}, false
	}
	return serialEpoch.Add(time.Duration(f * 24 * float64(time.Hour))), true
}

// dateFromComponents builds a date from discrete year/month/day columns.
// All three must be present, numeric, and form a real calendar date.
func dateFromComponents(year, month, day string) (time.Time, bool) {
	y, okY := parseIntegral(year)
	m, okM := parseIntegral(month)
	d, okD := parseIntegral(day)
	if !okY || !okM || !okD {
		return time.Time{}, false
	}
	if y < 1 || y > 9999 || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 → Mar 1); reject such inputs.
	if t.Day() != d || t.Month() != time.Month(m) || t.Year() != y {
		return time.Time{}, false
	}
	return t, true
}

// sniffFreeText concatenates the record's free-text columns and attempts a
// full-text date parse, then falls back to the first 19xx/20xx token treated
// as a January 1st date.
func sniffFreeText(texts []string) (time.Time, bool) {
	parts := make([]string, 0, len(texts))
	for _, s := range texts {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return time.Time{}, false
	}
	blob := strings.Join(parts, " ")

	if t, ok := parseTextualDate(blob); ok {
		return t, true
	}
	if m := yearTokenRe.FindStringSubmatch(blob); m != nil {
		y, err := strconv.Atoi(m[1])
		if err == nil {
			return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseYearNumber parses a numeric year column, truncating fractional values
// the way spreadsheet exports produce them ("2015.0").
func parseYearNumber(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return int(f), true
}

// parseIntegral parses a string as an integer, accepting float formatting of
// whole numbers.
func parseIntegral(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
