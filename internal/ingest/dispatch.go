package ingest

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/occurrence-metrics/internal/observability"
)

// Mode is the ingestion path chosen by the dispatcher.
type Mode int

const (
	// ModeNone means no input was found; an empty result, not an error.
	ModeNone Mode = iota
	// ModeStreaming processes one delimited/NDJSON file per species.
	ModeStreaming
	// ModeWorkbook processes a single selected combined workbook.
	ModeWorkbook
)

func (m Mode) String() string {
	switch m {
	case ModeStreaming:
		return "streaming"
	case ModeWorkbook:
		return "workbook"
	default:
		return "none"
	}
}

// Discovery is the dispatcher's verdict: which path to take and the sources
// to feed the pipeline.
type Discovery struct {
	Mode    Mode
	Files   []*FileSource
	Book    *WorkbookSource
	BookHdr []string
}

// Discover inspects the input root and picks the ingestion path: per-species
// tabular files when any exist (recursively), otherwise the best-scoring
// workbook in the root itself, otherwise nothing. A missing root is an empty
// result, matching the no-input-found contract.
func Discover(root string, logger *slog.Logger, metrics *observability.Metrics) (*Discovery, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		logger.Info("no occurrence directory found", "root", root)
		return &Discovery{Mode: ModeNone}, nil
	}

	files, err := findTabularFiles(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if len(files) > 0 {
		d := &Discovery{Mode: ModeStreaming}
		for _, path := range files {
			d.Files = append(d.Files, NewFileSource(path, logger, metrics))
		}
		logger.Info("using streaming path", "files", len(files))
		return d, nil
	}

	books, err := filepath.Glob(filepath.Join(root, "*.xlsx"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if len(books) == 0 {
		logger.Info("no occurrence files found", "root", root)
		return &Discovery{Mode: ModeNone}, nil
	}
	sort.Strings(books)

	selected, err := SelectWorkbook(books, logger)
	if err != nil {
		return nil, err
	}
	src, err := NewWorkbookSource(selected, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("using workbook path", "path", selected, "candidates", len(books))
	return &Discovery{Mode: ModeWorkbook, Book: src, BookHdr: src.Headers()}, nil
}

func findTabularFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && tabularFileRe.MatchString(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
