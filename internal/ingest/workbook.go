package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/occurrence-metrics/internal/domain"
	"github.com/couchcryptid/occurrence-metrics/internal/schema"
)

// cleanMarkerSuffix marks a workbook file as a "cleaned" variant. On a score
// tie the un-cleaned original wins, since cleaning passes have been observed
// to strip the very date columns this scan needs.
const cleanMarkerSuffix = "_clean.xlsx"

// workbookCandidate is one scored xlsx file.
type workbookCandidate struct {
	path  string
	score int
	cols  int
}

func (c workbookCandidate) betterThan(o workbookCandidate) bool {
	if c.score != o.score {
		return c.score > o.score
	}
	return c.cols > o.cols
}

func (c workbookCandidate) atLeast(o workbookCandidate) bool {
	return !o.betterThan(c)
}

// SelectWorkbook scores each candidate by header inspection only and returns
// the best one. Unreadable candidates score -1 and so lose to anything
// readable. The tie-break prefers a file without the cleaned marker.
func SelectWorkbook(paths []string, logger *slog.Logger) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no workbook candidates")
	}

	ranked := make([]workbookCandidate, 0, len(paths))
	for _, p := range paths {
		c := scoreWorkbook(p)
		logger.Debug("scored workbook candidate", "path", p, "score", c.score, "columns", c.cols)
		ranked = append(ranked, c)
	}
	// Insertion sort keeps ranking stable for equal keys, so glob order
	// breaks any remaining tie deterministically.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].betterThan(ranked[j-1]); j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	best := ranked[0]
	if strings.HasSuffix(best.path, cleanMarkerSuffix) && len(ranked) > 1 && ranked[1].atLeast(best) {
		best = ranked[1]
	}
	return best.path, nil
}

// scoreWorkbook reads only the header row of the first sheet.
func scoreWorkbook(path string) workbookCandidate {
	header, err := readWorkbookHeader(path)
	if err != nil {
		return workbookCandidate{path: path, score: -1}
	}
	return workbookCandidate{
		path:  path,
		score: schema.ScoreHeaders(header),
		cols:  len(header),
	}
}

func readWorkbookHeader(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // read-only

	if !rows.Next() {
		return nil, fmt.Errorf("workbook %s has no header row", path)
	}
	return rows.Columns()
}

// WorkbookSource streams the selected combined workbook as record batches.
// The header is read at construction so column diagnostics are available even
// before the full load; rows load on the first ExtractBatch.
type WorkbookSource struct {
	path    string
	headers []string
	res     *schema.Resolver
	logger  *slog.Logger

	rows   [][]string
	cursor int
	loaded bool
}

// NewWorkbookSource opens the workbook far enough to resolve its header row.
func NewWorkbookSource(path string, logger *slog.Logger) (*WorkbookSource, error) {
	header, err := readWorkbookHeader(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &WorkbookSource{
		path:    path,
		headers: header,
		res:     schema.NewWorkbookResolver(header),
		logger:  logger,
	}, nil
}

// Name returns the workbook path.
func (s *WorkbookSource) Name() string { return s.path }

// Headers returns the column names of the selected workbook, for the
// diagnostic columns-seen artifact.
func (s *WorkbookSource) Headers() []string { return s.headers }

// ExtractBatch returns up to batchSize resolved records, io.EOF when done.
func (s *WorkbookSource) ExtractBatch(ctx context.Context, batchSize int) ([]domain.OccurrenceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.loaded {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	if s.cursor >= len(s.rows) {
		return nil, io.EOF
	}

	end := s.cursor + batchSize
	if end > len(s.rows) {
		end = len(s.rows)
	}
	batch := make([]domain.OccurrenceRecord, 0, end-s.cursor)
	for _, row := range s.rows[s.cursor:end] {
		batch = append(batch, s.res.Record(row))
	}
	s.cursor = end
	return batch, nil
}

// Close is a no-op; the workbook handle is released after load.
func (s *WorkbookSource) Close() error { return nil }

func (s *WorkbookSource) load() error {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s has no sheets", s.path)
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("read workbook %s: %w", s.path, err)
	}
	if len(all) > 0 {
		all = all[1:] // header handled at construction
	}
	for _, row := range all {
		for i, v := range row {
			row[i] = normalizeNA(v)
		}
	}
	s.rows = all
	s.loaded = true
	s.logger.Info("workbook loaded", "path", s.path, "rows", len(s.rows), "columns", len(s.headers))
	return nil
}
