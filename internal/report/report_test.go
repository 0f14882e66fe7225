package report_test

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/occurrence-metrics/internal/aggregate"
	"github.com/couchcryptid/occurrence-metrics/internal/domain"
	"github.com/couchcryptid/occurrence-metrics/internal/report"
)

func sampleSpecies() []aggregate.SpeciesReport {
	a := aggregate.NewCounts()
	a.TotalRecords = 4
	a.USARecords = 3
	a.DatedAny = 3
	a.DatedFull = 2
	a.Post2010 = 2
	a.ValidCoords = 3
	a.UncertaintyLE2km = 1
	a.BasisCounts[domain.BasisHumanObservation] = 2
	a.BasisCounts[domain.BasisPreservedSpecimen] = 1

	b := aggregate.NewCounts()
	b.TotalRecords = 1
	b.USARecords = 1
	b.BasisCounts[domain.BasisOther] = 1

	return []aggregate.SpeciesReport{
		{SpeciesID: "Ambystoma_maculatum", Counts: *a, PctDatedAny: 1, PctDatedFull: 0.6667, PctPost2010: 0.6667, PctUncertaintyLE2km: 0.3333},
		{SpeciesID: "Plethodon_cinereus", Counts: *b},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteSpeciesCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, report.WriteSpeciesCSV(dir, sampleSpecies()))

	rows := readCSV(t, filepath.Join(dir, report.SpeciesCSVName))
	require.Len(t, rows, 3)

	header := rows[0]
	assert.Equal(t, "species_id", header[0])
	assert.Equal(t, "total_records", header[1])
	assert.Contains(t, header, "basis_HumanObservation")
	assert.Contains(t, header, "basis_Other")
	assert.Contains(t, header, "pct_captive_flagged")
	assert.Len(t, header, 22)

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}

	first := rows[1]
	assert.Equal(t, "Ambystoma_maculatum", first[cols["species_id"]])
	assert.Equal(t, "4", first[cols["total_records"]])
	assert.Equal(t, "3", first[cols["usa_records"]])
	assert.Equal(t, "2", first[cols["basis_HumanObservation"]])
	assert.Equal(t, "1", first[cols["basis_PreservedSpecimen"]])
	assert.Equal(t, "0", first[cols["basis_Other"]])
	assert.Equal(t, "1", first[cols["pct_dated_any"]])
	assert.Equal(t, "0.6667", first[cols["pct_dated_full"]])

	second := rows[2]
	assert.Equal(t, "Plethodon_cinereus", second[cols["species_id"]])
	assert.Equal(t, "0", second[cols["pct_dated_any"]])
}

func TestWriteSpeciesCSV_NoSpecies(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, report.WriteSpeciesCSV(dir, nil))

	rows := readCSV(t, filepath.Join(dir, report.SpeciesCSVName))
	// Header only.
	require.Len(t, rows, 1)
}

func TestWriteOverallJSON(t *testing.T) {
	dir := t.TempDir()
	overall := aggregate.NewCounts()
	overall.TotalRecords = 10
	overall.USARecords = 7
	overall.IssueFlagged = 2
	overall.BasisCounts[domain.BasisHumanObservation] = 7

	require.NoError(t, report.WriteOverallJSON(dir, *overall))

	data, err := os.ReadFile(filepath.Join(dir, report.OverallJSONName))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(10), got["total_records"])
	assert.Equal(t, float64(7), got["usa_records"])
	assert.Equal(t, float64(2), got["gbif_issue_flagged"])

	buckets, ok := got["basis_counts"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(7), buckets["HumanObservation"])
	assert.Len(t, buckets, len(domain.BasisBuckets))

	// Round-trips back into the counter struct.
	var counts aggregate.Counts
	require.NoError(t, json.Unmarshal(data, &counts))
	assert.Equal(t, int64(10), counts.TotalRecords)
}

func TestWriteColumnsSeen(t *testing.T) {
	dir := t.TempDir()
	headers := []string{"final_species", "observed_on", "year"}
	require.NoError(t, report.WriteColumnsSeen(dir, headers))

	data, err := os.ReadFile(filepath.Join(dir, report.ColumnsSeenName))
	require.NoError(t, err)

	var got []string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, headers, got)
}

func TestWriteColumnsSeen_NilHeaders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, report.WriteColumnsSeen(dir, nil))

	data, err := os.ReadFile(filepath.Join(dir, report.ColumnsSeenName))
	require.NoError(t, err)

	var got []string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
