package domain

import "time"

// OccurrenceRecord is one semantically resolved row from any source. Fields
// hold raw text exactly as read; parsing happens in the date inference chain
// and the classifier. Records live for one batch and are never persisted.
type OccurrenceRecord struct {
	// SpeciesID comes from the source file name on the streaming path and
	// from a normalized species/taxon column on the workbook path.
	SpeciesID string

	CountryCode string
	Country     string
	Latitude    string
	Longitude   string

	// DateTexts holds the values of every candidate date column for this
	// record, in column priority order. The streaming path has exactly one
	// candidate (eventDate); a workbook may have several.
	DateTexts []string
	Year      string
	Month     string
	Day       string

	BasisOfRecord      string
	EstablishmentMeans string
	Issues             string
	MediaType          string
	AssociatedMedia    string
	Remarks            string
	Locality           string
	Habitat            string

	// FreeText carries additional sniffable text columns (voucher notes,
	// detailed flags) found only on the workbook path. Empty on the
	// streaming path, which disables free-text date sniffing there.
	FreeText []string

	CoordinateUncertainty string
}

// DateGranularity describes how much of an event date could be recovered.
type DateGranularity int

const (
	// GranularityNone means every inference stage failed; the record is undated.
	GranularityNone DateGranularity = iota
	// GranularityYear means only a year is known.
	GranularityYear
	// GranularityDay means a full calendar instant was resolved.
	GranularityDay
)

// DateResolution is the outcome of the date inference chain for one record.
type DateResolution struct {
	// Instant is the resolved UTC timestamp. Valid only at GranularityDay.
	Instant time.Time
	// Year is the resolved year. Valid at GranularityYear and GranularityDay.
	Year        int
	Granularity DateGranularity
}

// Dated reports whether any date information was recovered.
func (r DateResolution) Dated() bool { return r.Granularity != GranularityNone }

// Full reports whether a complete calendar instant was recovered.
func (r DateResolution) Full() bool { return r.Granularity == GranularityDay }

// ClassificationFlags are the per-record quality and geography verdicts.
// They are a pure function of one OccurrenceRecord and its DateResolution.
type ClassificationFlags struct {
	InUS                 bool
	HasAnyDate           bool
	HasFullDate          bool
	PostThreshold        bool
	ValidCoordinates     bool
	UncertaintyWithin2km bool
	QualityIssue         bool
	CaptiveOrigin        bool
	HasMedia             bool
	BasisBucket          string
}

// Classified bundles a record with its derived date and flags, ready for
// aggregation.
type Classified struct {
	Record OccurrenceRecord
	Date   DateResolution
	Flags  ClassificationFlags
}
