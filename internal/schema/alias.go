// Package schema maps heterogeneous source column names onto the canonical
// occurrence fields. The alias table is declarative and priority ordered:
// for each canonical field the first matching header wins, and a field with
// no matching header resolves to empty values rather than failing.
package schema

import (
	"regexp"
	"strings"

	"github.com/couchcryptid/occurrence-metrics/internal/domain"
)

// Field identifies one canonical semantic field of an occurrence record.
type Field int

const (
	FieldSpecies Field = iota
	FieldCountryCode
	FieldCountry
	FieldLatitude
	FieldLongitude
	FieldYear
	FieldMonth
	FieldDay
	FieldBasisOfRecord
	FieldEstablishmentMeans
	FieldIssues
	FieldMediaType
	FieldAssociatedMedia
	FieldRemarks
	FieldLocality
	FieldHabitat
	FieldUncertainty
)

// aliases maps each canonical field to its accepted header spellings, in
// priority order. Lookup is case-insensitive.
var aliases = map[Field][]string{
	FieldSpecies:            {"final_species", "taxonomy_updated_species", "scientific_name", "scientificname", "species"},
	FieldCountryCode:        {"countrycode"},
	FieldCountry:            {"country"},
	FieldLatitude:           {"decimallatitude", "latitude"},
	FieldLongitude:          {"decimallongitude", "longitude"},
	FieldYear:               {"year"},
	FieldMonth:              {"month"},
	FieldDay:                {"day"},
	FieldBasisOfRecord:      {"basisofrecord", "source", "datasetname", "dataset"},
	FieldEstablishmentMeans: {"establishmentmeans"},
	FieldIssues:             {"issues", "issue"},
	FieldMediaType:          {"mediatype"},
	FieldAssociatedMedia:    {"associatedmedia"},
	FieldRemarks:            {"occurrenceremarks", "remarks"},
	FieldLocality:           {"locality"},
	FieldHabitat:            {"habitat"},
	FieldUncertainty:        {"coordinateuncertaintyinmeters", "accuracy_m"},
}

// datePriorities are date-like column names known from common export
// dialects, best first. Matched exactly (case-sensitive), the way curated
// sheets actually spell them.
var datePriorities = []string{
	"eventDate", "verbatimEventDate", "observed_on", "time_observed_at",
	"observation_date", "ObservationDate", "dateObserved", "date_observed",
	"date_collected", "collectionDate", "verbatim_date", "date", "Date",
}

// dateHeaderRe matches date-shaped headers that are not in the priority
// list: a date suffix behind an event/observation/collection/time token, or
// a header that is exactly "date".
var dateHeaderRe = regexp.MustCompile(`(?i)((event|observ(ed|ation)?|collect(ed|ion)?|time).*date|^date$)`)

// freeTextSniffNames are columns whose text is worth sniffing for dates on
// the workbook path: voucher notes, flagged-issue details, locality, remarks.
// Matched exactly.
var freeTextSniffNames = []string{
	"voucher", "flag_detailed", "issue", "issues", "locality", "Remarks", "remarks",
}

var speciesWhitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeSpeciesID collapses whitespace in a species/taxon name to
// underscores so it can serve as a stable aggregate key.
func NormalizeSpeciesID(name string) string {
	return speciesWhitespaceRe.ReplaceAllString(strings.TrimSpace(name), "_")
}

// Resolver maps positional rows from one source onto canonical fields.
type Resolver struct {
	headers  []string
	index    map[Field]int
	dateCols []int
	sniffs   []int
}

// NewResolver builds a resolver for a delimited source's header row.
func NewResolver(headers []string) *Resolver {
	return newResolver(headers, false)
}

// NewWorkbookResolver builds a resolver that additionally exposes free-text
// columns for date sniffing, which only the combined-workbook path uses.
func NewWorkbookResolver(headers []string) *Resolver {
	return newResolver(headers, true)
}

func newResolver(headers []string, sniff bool) *Resolver {
	lower := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := lower[key]; !seen {
			lower[key] = i
		}
	}

	r := &Resolver{headers: headers, index: make(map[Field]int, len(aliases))}
	for field, names := range aliases {
		for _, name := range names {
			if i, ok := lower[name]; ok {
				r.index[field] = i
				break
			}
		}
	}
	r.dateCols = DateCandidates(headers)
	if sniff {
		r.sniffs = sniffColumns(headers)
	}
	return r
}

// Headers returns the source's header row as seen.
func (r *Resolver) Headers() []string { return r.headers }

// Record maps one positional row onto an OccurrenceRecord. Short rows are
// treated as padded with empty cells.
func (r *Resolver) Record(row []string) domain.OccurrenceRecord {
	rec := domain.OccurrenceRecord{
		SpeciesID:             NormalizeSpeciesID(r.cell(row, FieldSpecies)),
		CountryCode:           r.cell(row, FieldCountryCode),
		Country:               r.cell(row, FieldCountry),
		Latitude:              r.cell(row, FieldLatitude),
		Longitude:             r.cell(row, FieldLongitude),
		Year:                  r.cell(row, FieldYear),
		Month:                 r.cell(row, FieldMonth),
		Day:                   r.cell(row, FieldDay),
		BasisOfRecord:         r.cell(row, FieldBasisOfRecord),
		EstablishmentMeans:    r.cell(row, FieldEstablishmentMeans),
		Issues:                r.cell(row, FieldIssues),
		MediaType:             r.cell(row, FieldMediaType),
		AssociatedMedia:       r.cell(row, FieldAssociatedMedia),
		Remarks:               r.cell(row, FieldRemarks),
		Locality:              r.cell(row, FieldLocality),
		Habitat:               r.cell(row, FieldHabitat),
		CoordinateUncertainty: r.cell(row, FieldUncertainty),
	}
	for _, i := range r.dateCols {
		rec.DateTexts = append(rec.DateTexts, at(row, i))
	}
	for _, i := range r.sniffs {
		rec.FreeText = append(rec.FreeText, at(row, i))
	}
	return rec
}

func (r *Resolver) cell(row []string, f Field) string {
	i, ok := r.index[f]
	if !ok {
		return ""
	}
	return at(row, i)
}

func at(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// DateCandidates returns the indexes of candidate date columns for a header
// row: exact priority-list matches first (best first), then date-shaped
// headers in source order.
func DateCandidates(headers []string) []int {
	var cols []int
	seen := make(map[int]struct{})
	for _, want := range datePriorities {
		for i, h := range headers {
			if h == want {
				if _, dup := seen[i]; !dup {
					cols = append(cols, i)
					seen[i] = struct{}{}
				}
			}
		}
	}
	for i, h := range headers {
		if _, dup := seen[i]; dup {
			continue
		}
		if dateHeaderRe.MatchString(h) {
			cols = append(cols, i)
			seen[i] = struct{}{}
		}
	}
	return cols
}

func sniffColumns(headers []string) []int {
	var cols []int
	seen := make(map[int]struct{})
	for _, want := range freeTextSniffNames {
		for i, h := range headers {
			if h == want {
				if _, dup := seen[i]; !dup {
					cols = append(cols, i)
					seen[i] = struct{}{}
				}
			}
		}
	}
	return cols
}

// ScoreHeaders rates how date-capable a workbook candidate looks from its
// header row alone: +5 per exact priority-list header, +1 per date-shaped
// header, +2 per exact year/month/day column.
func ScoreHeaders(headers []string) int {
	score := 0
	for _, want := range datePriorities {
		for _, h := range headers {
			if h == want {
				score += 5
				break
			}
		}
	}
	for _, h := range headers {
		if dateHeaderRe.MatchString(h) {
			score++
		}
	}
	for _, part := range []string{"year", "month", "day"} {
		for _, h := range headers {
			if strings.EqualFold(h, part) {
				score += 2
				break
			}
		}
	}
	return score
}
