package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/occurrence-metrics/internal/aggregate"
	"github.com/couchcryptid/occurrence-metrics/internal/domain"
	"github.com/couchcryptid/occurrence-metrics/internal/observability"
)

// BatchExtractor reads up to batchSize records from one source. It returns
// io.EOF once exhausted; any other error abandons this source only.
type BatchExtractor interface {
	Name() string
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.OccurrenceRecord, error)
	Close() error
}

// Transformer derives the date resolution and classification flags for one
// record.
type Transformer interface {
	Transform(rec domain.OccurrenceRecord) domain.Classified
}

// Pipeline orchestrates the extract-classify-aggregate loop across sources.
// Each worker owns a private aggregator; results merge after all sources
// finish, so no counter update needs a lock.
type Pipeline struct {
	transformer Transformer
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	workers     int
	ready       atomic.Bool
}

// New creates a Pipeline with the given classification stage and
// observability.
func New(t Transformer, logger *slog.Logger, metrics *observability.Metrics, batchSize, workers int) *Pipeline {
	if batchSize < 1 {
		batchSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		transformer: t,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		workers:     workers,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any batches yet")
	}
	return nil
}

// Run scans every source to completion and returns the finalized aggregates.
// A failing source is logged, counted, and surfaced in the joined error while
// the remaining sources continue; the returned Results are valid either way.
func (p *Pipeline) Run(ctx context.Context, sources []BatchExtractor) (*aggregate.Results, error) {
	p.logger.Info("scan started", "sources", len(sources), "batch_size", p.batchSize, "workers", p.workers)
	p.metrics.ScanRunning.Set(1)
	defer p.metrics.ScanRunning.Set(0)

	workers := p.workers
	if workers > len(sources) {
		workers = len(sources)
	}
	if workers < 1 {
		workers = 1
	}

	queue := make(chan BatchExtractor)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		partials []*aggregate.Aggregator
		fileErrs []error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg := aggregate.New()
			for src := range queue {
				if err := p.processSource(ctx, src, agg); err != nil {
					p.metrics.FileErrors.Inc()
					p.logger.Error("source failed", "source", src.Name(), "error", err)
					mu.Lock()
					fileErrs = append(fileErrs, fmt.Errorf("%s: %w", src.Name(), err))
					mu.Unlock()
					continue
				}
				p.metrics.FilesProcessed.Inc()
			}
			mu.Lock()
			partials = append(partials, agg)
			mu.Unlock()
		}()
	}

feed:
	for _, src := range sources {
		select {
		case queue <- src:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	merged := aggregate.New()
	for _, agg := range partials {
		merged.Merge(agg)
	}
	results := merged.Finalize()

	p.logger.Info("scan finished",
		"total_records", results.Overall.TotalRecords,
		"usa_records", results.Overall.USARecords,
		"species", len(results.Species),
		"failed_sources", len(fileErrs),
	)

	if err := ctx.Err(); err != nil {
		fileErrs = append(fileErrs, err)
	}
	return results, errors.Join(fileErrs...)
}

// processSource drains one source batch by batch into the worker's private
// aggregator.
func (p *Pipeline) processSource(ctx context.Context, src BatchExtractor, agg *aggregate.Aggregator) error {
	defer src.Close() //nolint:errcheck // read-side close

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		batch, err := src.ExtractBatch(ctx, p.batchSize)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			continue
		}

		for _, rec := range batch {
			agg.Add(p.transformer.Transform(rec))
		}

		p.metrics.RecordsScanned.Add(float64(len(batch)))
		p.metrics.BatchSize.Observe(float64(len(batch)))
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
}
