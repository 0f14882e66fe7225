// Package report serializes finalized aggregates for the downstream
// presentation layer: a per-species CSV table, an overall JSON summary, and a
// diagnostic listing of workbook columns.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/occurrence-metrics/internal/aggregate"
	"github.com/couchcryptid/occurrence-metrics/internal/domain"
)

// Artifact file names, fixed so the presentation layer can find them.
const (
	SpeciesCSVName  = "occurrence_metrics_by_species.csv"
	OverallJSONName = "occurrence_metrics_overall.json"
	ColumnsSeenName = "occurrence_columns_seen.json"
)

// speciesHeader is the fixed column order of the per-species table.
var speciesHeader = []string{
	"species_id",
	"total_records",
	"usa_records",
	"dated_any",
	"dated_full",
	"post_2010",
	"captive_flagged",
	"valid_coords",
	"uncertainty_le_2km",
	"gbif_issue_flagged",
	"has_media",
	"basis_HumanObservation",
	"basis_Observation",
	"basis_MachineObservation",
	"basis_PreservedSpecimen",
	"basis_FossilSpecimen",
	"basis_Other",
	"pct_dated_any",
	"pct_dated_full",
	"pct_post_2010",
	"pct_uncertainty_le_2km",
	"pct_captive_flagged",
}

// WriteSpeciesCSV writes one row per species. Rows arrive already sorted by
// species identifier from Finalize.
func WriteSpeciesCSV(dir string, species []aggregate.SpeciesReport) error {
	path := filepath.Join(dir, SpeciesCSVName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // error captured via Flush/explicit close below

	w := csv.NewWriter(f)
	if err := w.Write(speciesHeader); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, sp := range species {
		row := []string{
			sp.SpeciesID,
			formatInt(sp.TotalRecords),
			formatInt(sp.USARecords),
			formatInt(sp.DatedAny),
			formatInt(sp.DatedFull),
			formatInt(sp.Post2010),
			formatInt(sp.CaptiveFlagged),
			formatInt(sp.ValidCoords),
			formatInt(sp.UncertaintyLE2km),
			formatInt(sp.IssueFlagged),
			formatInt(sp.HasMedia),
		}
		for _, bucket := range domain.BasisBuckets {
			row = append(row, formatInt(sp.BasisCounts[bucket]))
		}
		row = append(row,
			formatPct(sp.PctDatedAny),
			formatPct(sp.PctDatedFull),
			formatPct(sp.PctPost2010),
			formatPct(sp.PctUncertaintyLE2km),
			formatPct(sp.PctCaptiveFlagged),
		)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteOverallJSON writes the run-wide counter summary.
func WriteOverallJSON(dir string, overall aggregate.Counts) error {
	return writeJSON(filepath.Join(dir, OverallJSONName), overall)
}

// WriteColumnsSeen writes the header names of the selected workbook, for
// diagnosing column mapping. Only the workbook path produces this artifact.
func WriteColumnsSeen(dir string, headers []string) error {
	if headers == nil {
		headers = []string{}
	}
	return writeJSON(filepath.Join(dir, ColumnsSeenName), headers)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // error captured via explicit close below

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
