package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/occurrence-metrics/internal/domain"
	"github.com/couchcryptid/occurrence-metrics/internal/ingest"
	"github.com/couchcryptid/occurrence-metrics/internal/observability"
	"github.com/couchcryptid/occurrence-metrics/internal/pipeline"
)

// --- mocks ---

type mockSource struct {
	name    string
	batches [][]domain.OccurrenceRecord
	err     error
	next    int
	closed  bool
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) ExtractBatch(_ context.Context, _ int) ([]domain.OccurrenceRecord, error) {
	if m.next >= len(m.batches) {
		if m.err != nil {
			return nil, m.err
		}
		return nil, io.EOF
	}
	b := m.batches[m.next]
	m.next++
	return b, nil
}

func (m *mockSource) Close() error {
	m.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func usRecord(species string) domain.OccurrenceRecord {
	return domain.OccurrenceRecord{
		SpeciesID:     species,
		CountryCode:   "US",
		Latitude:      "40.0",
		Longitude:     "-75.0",
		DateTexts:     []string{"2015-06-12"},
		BasisOfRecord: "HumanObservation",
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	sources := []pipeline.BatchExtractor{
		&mockSource{name: "a", batches: [][]domain.OccurrenceRecord{
			{usRecord("Ambystoma_maculatum"), usRecord("Ambystoma_maculatum")},
			{usRecord("Plethodon_cinereus")},
		}},
		&mockSource{name: "b", batches: [][]domain.OccurrenceRecord{
			{usRecord("Plethodon_cinereus")},
		}},
	}

	p := pipeline.New(pipeline.NewClassifier(), discardLogger(), newTestMetrics(), 100, 2)

	results, err := p.Run(context.Background(), sources)
	require.NoError(t, err)

	assert.Equal(t, int64(4), results.Overall.TotalRecords)
	assert.Equal(t, int64(4), results.Overall.USARecords)
	require.Len(t, results.Species, 2)
	assert.Equal(t, "Ambystoma_maculatum", results.Species[0].SpeciesID)
	assert.Equal(t, int64(2), results.Species[0].TotalRecords)
	assert.Equal(t, "Plethodon_cinereus", results.Species[1].SpeciesID)
	assert.Equal(t, int64(2), results.Species[1].TotalRecords)

	assert.NoError(t, p.CheckReadiness(context.Background()))
	for _, src := range sources {
		assert.True(t, src.(*mockSource).closed)
	}
}

func TestPipeline_Run_SourceErrorIsolated(t *testing.T) {
	bad := &mockSource{name: "bad.csv", err: errors.New("corrupt header")}
	good := &mockSource{name: "good.csv", batches: [][]domain.OccurrenceRecord{
		{usRecord("Ambystoma_maculatum")},
	}}

	metrics := newTestMetrics()
	p := pipeline.New(pipeline.NewClassifier(), discardLogger(), metrics, 100, 1)

	results, err := p.Run(context.Background(), []pipeline.BatchExtractor{bad, good})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.csv")

	// The good source still aggregated.
	assert.Equal(t, int64(1), results.Overall.TotalRecords)
	require.Len(t, results.Species, 1)
	assert.Equal(t, "Ambystoma_maculatum", results.Species[0].SpeciesID)
}

func TestPipeline_Run_NoSources(t *testing.T) {
	p := pipeline.New(pipeline.NewClassifier(), discardLogger(), newTestMetrics(), 100, 4)

	results, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, results.Overall.TotalRecords)
	assert.Empty(t, results.Species)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &mockSource{name: "a", batches: [][]domain.OccurrenceRecord{
		{usRecord("Ambystoma_maculatum")},
	}}
	p := pipeline.New(pipeline.NewClassifier(), discardLogger(), newTestMetrics(), 100, 1)

	results, err := p.Run(ctx, []pipeline.BatchExtractor{src})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, results)
	assert.Zero(t, results.Overall.TotalRecords)
}

// Two runs over identical inputs produce identical results regardless of
// worker interleaving.
func TestPipeline_Run_Deterministic(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	build := func() []pipeline.BatchExtractor {
		var sources []pipeline.BatchExtractor
		for _, sp := range []string{"A", "B", "C", "D"} {
			sources = append(sources, &mockSource{name: sp, batches: [][]domain.OccurrenceRecord{
				{usRecord(sp), usRecord(sp)},
				{{SpeciesID: sp, Country: "Canada"}},
			}})
		}
		return sources
	}

	p := pipeline.New(pipeline.NewClassifier(), discardLogger(), newTestMetrics(), 2, 4)

	first, err := p.Run(context.Background(), build())
	require.NoError(t, err)
	second, err := p.Run(context.Background(), build())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
}

func TestClassifier_Transform(t *testing.T) {
	cl := pipeline.NewClassifier().Transform(usRecord("Ambystoma_maculatum"))

	assert.Equal(t, "Ambystoma_maculatum", cl.Record.SpeciesID)
	assert.True(t, cl.Flags.InUS)
	assert.True(t, cl.Flags.HasFullDate)
	assert.True(t, cl.Flags.PostThreshold)
	assert.True(t, cl.Flags.ValidCoordinates)
	assert.Equal(t, domain.BasisHumanObservation, cl.Flags.BasisBucket)
	assert.Equal(t, 2015, cl.Date.Year)
}

// End to end over real files: discovery, extraction, classification, and
// aggregation on the streaming path.
func TestPipeline_EndToEndStreaming(t *testing.T) {
	dir := t.TempDir()
	writeCSV := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	writeCSV("Ambystoma_maculatum.csv",
		"countryCode,decimalLatitude,decimalLongitude,eventDate,basisOfRecord,coordinateUncertaintyInMeters\n"+
			"US,40.1,-75.2,2015-06-12,HumanObservation,150\n"+
			"US,40.2,-75.3,2015/06,HUMAN_OBSERVATION,3000\n"+
			"MX,19.4,-99.1,2012-03-04,HumanObservation,50\n")
	writeCSV("Plethodon_cinereus.csv",
		"countryCode,year,month,day,basisOfRecord,issues\n"+
			"US,2008,4,19,Observation,\n"+
			"US,2019,,,MachineObservation,ZERO_COORDINATE\n")

	logger := discardLogger()
	metrics := newTestMetrics()
	d, err := ingest.Discover(dir, logger, metrics)
	require.NoError(t, err)
	require.Equal(t, ingest.ModeStreaming, d.Mode)

	var sources []pipeline.BatchExtractor
	for _, f := range d.Files {
		sources = append(sources, f)
	}

	p := pipeline.New(pipeline.NewClassifier(), logger, metrics, 2, 2)
	results, err := p.Run(context.Background(), sources)
	require.NoError(t, err)

	assert.Equal(t, int64(5), results.Overall.TotalRecords)
	// The MX record sits inside the US bounding box, so all five count as US.
	assert.Equal(t, int64(5), results.Overall.USARecords)

	require.Len(t, results.Species, 2)
	am := results.Species[0]
	require.Equal(t, "Ambystoma_maculatum", am.SpeciesID)
	assert.Equal(t, int64(3), am.TotalRecords)
	assert.Equal(t, int64(3), am.DatedAny)
	assert.Equal(t, int64(3), am.DatedFull)
	assert.Equal(t, int64(3), am.Post2010)
	assert.Equal(t, int64(2), am.UncertaintyLE2km)
	assert.Equal(t, int64(3), am.BasisCounts[domain.BasisHumanObservation])

	pc := results.Species[1]
	require.Equal(t, "Plethodon_cinereus", pc.SpeciesID)
	assert.Equal(t, int64(2), pc.TotalRecords)
	assert.Equal(t, int64(2), pc.DatedAny)
	assert.Equal(t, int64(1), pc.DatedFull)
	assert.Equal(t, int64(1), pc.Post2010)
	assert.Equal(t, int64(1), pc.IssueFlagged)
	assert.Equal(t, int64(1), pc.BasisCounts[domain.BasisObservation])
	assert.Equal(t, int64(1), pc.BasisCounts[domain.BasisMachineObservation])
}
