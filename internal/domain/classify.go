package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Canonical Darwin Core basis-of-record values. Exact matches pass through the
// bucket normalizer untouched.
const (
	BasisHumanObservation   = "HumanObservation"
	BasisObservation        = "Observation"
	BasisMachineObservation = "MachineObservation"
	BasisPreservedSpecimen  = "PreservedSpecimen"
	BasisFossilSpecimen     = "FossilSpecimen"
	BasisOther              = "Other"
)

// BasisBuckets lists every bucket in output order.
var BasisBuckets = []string{
	BasisHumanObservation,
	BasisObservation,
	BasisMachineObservation,
	BasisPreservedSpecimen,
	BasisFossilSpecimen,
	BasisOther,
}

// postThreshold is the recency cutoff: records observed on or after this
// instant (or with year >= 2010) count as post-threshold.
var postThreshold = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

// uncertaintyThresholdMeters is the coordinate uncertainty radius considered
// precise enough for fine-grained spatial analysis.
const uncertaintyThresholdMeters = 2000

// usCountryTokens are the country code/name spellings accepted as the United
// States. Matching is exact on the trimmed value.
var usCountryTokens = map[string]struct{}{
	"US":                       {},
	"USA":                      {},
	"United States":            {},
	"United States of America": {},
}

// US bounding box fallback used when country metadata is absent or does not
// match: covers the lower 48 plus Alaska, misses the far western Aleutians,
// and clips border regions of Canada and Mexico.
const (
	usLatMin = 18.0
	usLatMax = 72.0
	usLonMin = -179.5
	usLonMax = -66.0
)

// qualityIssueCodes is the denylist of GBIF validation flags that mark a
// record as having a known geographic or temporal defect. Matched by
// case-insensitive substring containment, since multiple codes are packed
// into one issues field.
var qualityIssueCodes = []string{
	"ZERO_COORDINATE",
	"COORDINATE_OUT_OF_RANGE",
	"COUNTRY_COORDINATE_MISMATCH",
	"COUNTRY_MISMATCH",
	"RECORDED_DATE_INVALID",
	"RECORDED_DATE_MISMATCH",
}

// captiveMeans are establishmentMeans values that mark a record as captive or
// managed, matched case-insensitively on the trimmed value.
var captiveMeans = map[string]struct{}{
	"captive":         {},
	"managed":         {},
	"captive/managed": {},
}

// captiveHintsRe catches captivity vocabulary leaking through free-text
// fields. Heuristic: "collection" in particular will flag some wild records.
var captiveHintsRe = regexp.MustCompile(`(?i)\b(zoo|captive|captivity|pet\s?store|collection|terrarium|museum\s?display)\b`)

// ClassifyRecord derives every quality and geography flag for one record.
// It is pure: no state, no I/O, deterministic for identical input.
func ClassifyRecord(rec OccurrenceRecord, date DateResolution) ClassificationFlags {
	return ClassificationFlags{
		InUS:                 IsUSRecord(rec),
		HasAnyDate:           date.Dated(),
		HasFullDate:          date.Full(),
		PostThreshold:        isPostThreshold(rec, date),
		ValidCoordinates:     hasValidCoordinates(rec),
		UncertaintyWithin2km: uncertaintyWithinThreshold(rec.CoordinateUncertainty),
		QualityIssue:         hasQualityIssue(rec.Issues),
		CaptiveOrigin:        isCaptiveOrigin(rec),
		HasMedia:             strings.TrimSpace(rec.MediaType) != "" || strings.TrimSpace(rec.AssociatedMedia) != "",
		BasisBucket:          BasisBucket(rec.BasisOfRecord),
	}
}

// IsUSRecord reports whether a record is located in the United States, by
// country token first and by the bounding box fallback when the tokens do not
// match.
func IsUSRecord(rec OccurrenceRecord) bool {
	if _, ok := usCountryTokens[strings.TrimSpace(rec.CountryCode)]; ok {
		return true
	}
	if _, ok := usCountryTokens[strings.TrimSpace(rec.Country)]; ok {
		return true
	}
	lat, okLat := parseCoord(rec.Latitude)
	lon, okLon := parseCoord(rec.Longitude)
	if !okLat || !okLon {
		return false
	}
	return lat >= usLatMin && lat <= usLatMax && lon >= usLonMin && lon <= usLonMax
}

// isPostThreshold is an OR of the resolved instant and the bare year column,
// matching upstream behavior: a year column >= 2010 counts even when a parsed
// instant disagrees.
func isPostThreshold(rec OccurrenceRecord, date DateResolution) bool {
	if date.Full() && !date.Instant.Before(postThreshold) {
		return true
	}
	if y, ok := parseYearNumber(rec.Year); ok && y >= postThreshold.Year() {
		return true
	}
	return false
}

func hasValidCoordinates(rec OccurrenceRecord) bool {
	lat, okLat := parseCoord(rec.Latitude)
	lon, okLon := parseCoord(rec.Longitude)
	return okLat && okLon &&
		lat >= -90 && lat <= 90 &&
		lon >= -180 && lon <= 180
}

func uncertaintyWithinThreshold(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := strconv.ParseFloat(raw, 64)
	return err == nil && !math.IsNaN(u) && u <= uncertaintyThresholdMeters
}

func hasQualityIssue(issues string) bool {
	up := strings.ToUpper(issues)
	for _, code := range qualityIssueCodes {
		if strings.Contains(up, code) {
			return true
		}
	}
	return false
}

func isCaptiveOrigin(rec OccurrenceRecord) bool {
	means := strings.ToLower(strings.TrimSpace(rec.EstablishmentMeans))
	if _, ok := captiveMeans[means]; ok {
		return true
	}
	text := rec.Remarks + " " + rec.Locality + " " + rec.Habitat
	return captiveHintsRe.MatchString(text)
}

// BasisBucket normalizes a free-text basis-of-record value to one of the six
// buckets. Exact canonical values pass through; anything else is uppercased,
// space/hyphen normalized, and matched by keyword stem in priority order.
func BasisBucket(value string) string {
	v := strings.TrimSpace(value)
	switch v {
	case BasisHumanObservation, BasisObservation, BasisMachineObservation,
		BasisPreservedSpecimen, BasisFossilSpecimen:
		return v
	}

	su := strings.ToUpper(v)
	su = strings.ReplaceAll(su, " ", "_")
	su = strings.ReplaceAll(su, "-", "_")
	switch {
	case strings.Contains(su, "HUMAN"):
		return BasisHumanObservation
	case strings.Contains(su, "MACHINE"):
		return BasisMachineObservation
	case strings.Contains(su, "FOSSIL"):
		return BasisFossilSpecimen
	case strings.Contains(su, "PRESERVED"), strings.Contains(su, "SPECIMEN"):
		return BasisPreservedSpecimen
	case strings.Contains(su, "OBSERVATION"):
		return BasisObservation
	}
	return BasisOther
}

func parseCoord(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
