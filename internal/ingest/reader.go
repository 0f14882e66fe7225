// Package ingest discovers occurrence sources on the filesystem and streams
// them as bounded batches of semantically resolved records.
package ingest

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/occurrence-metrics/internal/domain"
	"github.com/couchcryptid/occurrence-metrics/internal/observability"
	"github.com/couchcryptid/occurrence-metrics/internal/schema"
)

// tabularFileRe matches per-species occurrence files: delimited or NDJSON,
// optionally gzip-compressed. The species identifier is the file name with
// this suffix stripped.
var tabularFileRe = regexp.MustCompile(`(?i)\.(csv|tsv|txt|ndjson)(\.gz)?$`)

// ndjsonExtRe distinguishes line-delimited JSON sources from delimited text.
var ndjsonExtRe = regexp.MustCompile(`(?i)\.ndjson(\.gz)?$`)

// tsvExtRe selects the tab separator; .csv and .txt read as comma-delimited.
var tsvExtRe = regexp.MustCompile(`(?i)\.tsv(\.gz)?$`)

// SpeciesIDFromFilename derives the aggregate key for a streaming source from
// its file name, never from row content.
func SpeciesIDFromFilename(path string) string {
	return tabularFileRe.ReplaceAllString(filepath.Base(path), "")
}

// FileSource streams one per-species file as bounded record batches. It opens
// the file lazily on the first ExtractBatch and is not restartable.
type FileSource struct {
	path      string
	speciesID string
	logger    *slog.Logger
	metrics   *observability.Metrics

	file    *os.File
	gz      *gzip.Reader
	csvr    *csv.Reader
	scanner *bufio.Scanner
	res     *schema.Resolver

	// ndHeaders grows as NDJSON lines introduce new keys; the resolver is
	// rebuilt whenever that happens.
	ndHeaders []string
	ndIndex   map[string]int

	opened    bool
	exhausted bool
}

// NewFileSource wraps one tabular occurrence file.
func NewFileSource(path string, logger *slog.Logger, metrics *observability.Metrics) *FileSource {
	return &FileSource{
		path:      path,
		speciesID: SpeciesIDFromFilename(path),
		logger:    logger,
		metrics:   metrics,
	}
}

// Name returns the source path for logs and error messages.
func (s *FileSource) Name() string { return s.path }

// ExtractBatch reads up to batchSize records. It returns io.EOF once the
// source is exhausted; any other error is fatal for this file only.
func (s *FileSource) ExtractBatch(ctx context.Context, batchSize int) ([]domain.OccurrenceRecord, error) {
	if s.exhausted {
		return nil, io.EOF
	}
	if !s.opened {
		if err := s.open(); err != nil {
			s.exhausted = true
			return nil, err
		}
	}

	batch := make([]domain.OccurrenceRecord, 0, batchSize)
	for len(batch) < batchSize {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		var (
			rec domain.OccurrenceRecord
			err error
		)
		if s.scanner != nil {
			rec, err = s.nextNDJSON()
		} else {
			rec, err = s.nextDelimited()
		}
		if err == io.EOF {
			s.exhausted = true
			if len(batch) > 0 {
				return batch, nil
			}
			return nil, io.EOF
		}
		if err != nil {
			s.exhausted = true
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		rec.SpeciesID = s.speciesID
		batch = append(batch, rec)
	}
	return batch, nil
}

// Close releases the underlying file handles.
func (s *FileSource) Close() error {
	if s.gz != nil {
		s.gz.Close() //nolint:errcheck // read-side close
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

func (s *FileSource) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	s.file = f
	s.opened = true

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(s.path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open %s: %w", s.path, err)
		}
		s.gz = gz
		r = gz
	}

	if ndjsonExtRe.MatchString(s.path) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
		s.scanner = sc
		s.ndIndex = make(map[string]int)
		return nil
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if tsvExtRe.MatchString(s.path) {
		cr.Comma = '\t'
	}
	s.csvr = cr

	header, err := cr.Read()
	if err == io.EOF {
		s.res = schema.NewResolver(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header of %s: %w", s.path, err)
	}
	s.res = schema.NewResolver(header)
	return nil
}

func (s *FileSource) nextDelimited() (domain.OccurrenceRecord, error) {
	row, err := s.csvr.Read()
	if err != nil {
		return domain.OccurrenceRecord{}, err
	}
	for i, v := range row {
		row[i] = normalizeNA(v)
	}
	return s.res.Record(row), nil
}

// nextNDJSON reads lines until one parses; malformed lines are skipped, not
// fatal.
func (s *FileSource) nextNDJSON() (domain.OccurrenceRecord, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			s.metrics.RowsSkipped.Inc()
			s.logger.Debug("skipping malformed line", "file", s.path, "error", err)
			continue
		}
		flat := make(map[string]string)
		flattenJSON("", obj, flat)
		return s.resolveNamed(flat), nil
	}
	if err := s.scanner.Err(); err != nil {
		return domain.OccurrenceRecord{}, err
	}
	return domain.OccurrenceRecord{}, io.EOF
}

// resolveNamed maps a flattened JSON object through the shared alias table by
// maintaining a growing positional header.
func (s *FileSource) resolveNamed(fields map[string]string) domain.OccurrenceRecord {
	grew := false
	for k := range fields {
		if _, ok := s.ndIndex[k]; !ok {
			s.ndIndex[k] = len(s.ndHeaders)
			s.ndHeaders = append(s.ndHeaders, k)
			grew = true
		}
	}
	if grew || s.res == nil {
		s.res = schema.NewResolver(s.ndHeaders)
	}
	row := make([]string, len(s.ndHeaders))
	for k, v := range fields {
		row[s.ndIndex[k]] = v
	}
	return s.res.Record(row)
}

// flattenJSON flattens nested objects into dotted keys ("location.lat") and
// stringifies scalar values.
func flattenJSON(prefix string, obj map[string]any, out map[string]string) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenJSON(key, val, out)
		case nil:
			out[key] = ""
		case string:
			out[key] = val
		case bool:
			out[key] = strconv.FormatBool(val)
		case float64:
			out[key] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// normalizeNA maps spreadsheet missing-value sentinels to empty.
func normalizeNA(v string) string {
	switch v {
	case "NA", "NaN":
		return ""
	}
	return v
}
