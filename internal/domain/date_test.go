package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferEventDate_ISODate(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{DateTexts: []string{"2015-06-12"}})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(2015, time.June, 12, 0, 0, 0, 0, time.UTC), res.Instant)
	assert.Equal(t, 2015, res.Year)
}

func TestInferEventDate_ISOTimestamp(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{DateTexts: []string{"2021-08-30T14:00:00Z"}})

	require.True(t, res.Full())
	assert.Equal(t, 2021, res.Year)
	assert.Equal(t, time.August, res.Instant.Month())
}

// A year/month value with a slash separator must resolve somewhere inside
// that year, whether the direct parse or the range split handles it.
func TestInferEventDate_YearMonthSlash(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{DateTexts: []string{"2015/06"}})

	require.True(t, res.Full())
	assert.Equal(t, 2015, res.Year)
	assert.False(t, res.Instant.Before(time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, res.Instant.Before(time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)))

	flags := ClassifyRecord(OccurrenceRecord{DateTexts: []string{"2015/06"}}, res)
	assert.True(t, flags.PostThreshold)
}

func TestInferEventDate_RangeStart(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{DateTexts: []string{"2007-03-01/2008-05-11"}})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(2007, time.March, 1, 0, 0, 0, 0, time.UTC), res.Instant)
}

func TestInferEventDate_SerialDay(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{DateTexts: []string{"42370"}})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC), res.Instant)
	assert.Equal(t, 2016, res.Year)
}

func TestInferEventDate_SerialDayFractional(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{DateTexts: []string{"42370.5"}})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(2016, time.January, 1, 12, 0, 0, 0, time.UTC), res.Instant)
}

// Digit runs outside the plausible serial window are identifiers, not dates.
func TestInferEventDate_SerialOutOfRange(t *testing.T) {
	for _, raw := range []string{"49", "60001", "99999999"} {
		res := InferEventDate(OccurrenceRecord{DateTexts: []string{raw}})
		assert.False(t, res.Dated(), "value %q should not resolve", raw)
	}
}

// Any digit run inside the window converts, even when it looks like a
// catalog number; the bounds are the only plausibility filter.
func TestInferEventDate_SerialInsideWindow(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{DateTexts: []string{"118"}})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(1900, time.April, 27, 0, 0, 0, 0, time.UTC), res.Instant)
	assert.Equal(t, 1900, res.Year)
}

// A bare 4-digit year in a date column resolves to January 1st of that year,
// never through the serial day conversion.
func TestInferEventDate_BareYearText(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{DateTexts: []string{"2015"}})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC), res.Instant)
}

func TestInferEventDate_ColumnFallthrough(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{DateTexts: []string{"not a date", "2014-05-06"}})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(2014, time.May, 6, 0, 0, 0, 0, time.UTC), res.Instant)
}

func TestInferEventDate_Components(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{Year: "1998", Month: "7", Day: "14"})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(1998, time.July, 14, 0, 0, 0, 0, time.UTC), res.Instant)
}

func TestInferEventDate_ComponentsFloatFormatted(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{Year: "2015.0", Month: "6.0", Day: "12.0"})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(2015, time.June, 12, 0, 0, 0, 0, time.UTC), res.Instant)
}

// Feb 30 must not normalize into March; the record degrades to year-only.
func TestInferEventDate_InvalidComponentsFallBackToYear(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{Year: "1999", Month: "2", Day: "30"})

	assert.True(t, res.Dated())
	assert.False(t, res.Full())
	assert.Equal(t, 1999, res.Year)
	assert.Equal(t, GranularityYear, res.Granularity)
}

func TestInferEventDate_FreeTextSniff(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{
		FreeText: []string{"collected 2004, voucher #118"},
	})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(2004, time.January, 1, 0, 0, 0, 0, time.UTC), res.Instant)
}

func TestInferEventDate_FreeTextIgnoresImplausibleYears(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{
		FreeText: []string{"catalog entry 1234, shelf 5678"},
	})

	assert.False(t, res.Dated())
}

func TestInferEventDate_YearOnly(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{Year: "2019"})

	assert.True(t, res.Dated())
	assert.False(t, res.Full())
	assert.Equal(t, 2019, res.Year)
}

func TestInferEventDate_YearOnlyFloatFormatted(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{Year: "2015.0"})

	assert.True(t, res.Dated())
	assert.Equal(t, 2015, res.Year)
}

func TestInferEventDate_Undated(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{})

	assert.False(t, res.Dated())
	assert.False(t, res.Full())
	assert.Equal(t, GranularityNone, res.Granularity)
}

// A resolved date column wins over components and the year fallback.
func TestInferEventDate_DateColumnWins(t *testing.T) {
	res := InferEventDate(OccurrenceRecord{
		DateTexts: []string{"2001-02-03"},
		Year:      "2010",
		Month:     "12",
		Day:       "31",
	})

	require.True(t, res.Full())
	assert.Equal(t, time.Date(2001, time.February, 3, 0, 0, 0, 0, time.UTC), res.Instant)
}

func TestInferEventDate_Deterministic(t *testing.T) {
	rec := OccurrenceRecord{
		DateTexts: []string{"", "2015/06"},
		Year:      "2015",
		FreeText:  []string{"seen 1987"},
	}

	first := InferEventDate(rec)
	second := InferEventDate(rec)
	assert.Equal(t, first, second)
}

func TestParseSerialDay_Bounds(t *testing.T) {
	_, ok := parseSerialDay("50")
	assert.True(t, ok)

	_, ok = parseSerialDay("49")
	assert.False(t, ok)

	_, ok = parseSerialDay("60000")
	assert.True(t, ok)

	_, ok = parseSerialDay("60001")
	assert.False(t, ok)

	_, ok = parseSerialDay("NaN")
	assert.False(t, ok)
}
