// Package scrape runs one complete scrape: load the results page, extract
// the record, post-process it and store it.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/escrutinio/internal/config"
	"github.com/IshaanNene/escrutinio/internal/fetcher"
	"github.com/IshaanNene/escrutinio/internal/monitor"
	"github.com/IshaanNene/escrutinio/internal/observability"
	"github.com/IshaanNene/escrutinio/internal/parser"
	"github.com/IshaanNene/escrutinio/internal/pipeline"
	"github.com/IshaanNene/escrutinio/internal/storage"
	"github.com/IshaanNene/escrutinio/internal/types"
)

// Option customizes a Runner.
type Option func(*Runner)

// WithFetcher replaces the fetcher built from the config.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(r *Runner) { r.fetcher = f }
}

// WithStorage replaces the storage built from the config.
func WithStorage(s storage.Storage) Option {
	return func(r *Runner) { r.storage = s }
}

// WithMetrics shares a metrics instance with the caller.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// Runner owns the components of a scrape and reuses them across runs.
type Runner struct {
	cfg       *config.Config
	base      *slog.Logger
	logger    *slog.Logger
	fetcher   fetcher.Fetcher
	extractor parser.Extractor
	pipeline  *pipeline.Pipeline
	detector  *monitor.ChangeDetector
	metrics   *observability.Metrics

	// storage is opened on the first record that reaches it, so a failed
	// run leaves no output behind.
	storageMu sync.Mutex
	storage   storage.Storage
}

// New creates a Runner from the configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	r := &Runner{
		cfg:       cfg,
		base:      logger,
		logger:    logger.With("component", "runner"),
		extractor: parser.NewResultExtractor(cfg.Extract, logger),
		pipeline:  pipeline.NewFromConfig(cfg.Pipeline, logger),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.fetcher == nil {
		f, err := fetcher.New(cfg, logger)
		if err != nil {
			return nil, err
		}
		r.fetcher = f
	}
	if r.metrics == nil {
		r.metrics = observability.NewMetrics(logger)
	}
	if cfg.Monitor.Enabled {
		cd, err := monitor.NewChangeDetector(cfg.Monitor.SnapshotDir, logger)
		if err != nil {
			return nil, err
		}
		r.detector = cd
	}

	return r, nil
}

// Metrics returns the runner's metrics.
func (r *Runner) Metrics() *observability.Metrics {
	return r.metrics
}

// Run performs one scrape. On failure nothing is stored and the error is
// logged once with its classification.
func (r *Runner) Run(ctx context.Context) (*types.Record, error) {
	start := time.Now()
	r.metrics.RunsTotal.Add(1)

	rec, err := r.run(ctx)
	if err != nil {
		kind := types.FailureKind(err)
		r.metrics.RecordFailure(kind)
		r.logger.Error("scrape failed",
			"district", r.cfg.Source.DistrictCode,
			"kind", kind,
			"error", err,
			"elapsed", time.Since(start),
		)
		return nil, err
	}

	r.metrics.LastSuccess.Store(time.Now().Unix())
	r.logger.Info("scrape complete",
		"district", rec.District,
		"fields", rec.Len(),
		"parties", len(rec.Parties()),
		"elapsed", time.Since(start),
	)
	return rec, nil
}

func (r *Runner) run(ctx context.Context) (*types.Record, error) {
	req, err := r.newRequest()
	if err != nil {
		return nil, err
	}

	page, err := r.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("page fetched",
		"url", page.URL(),
		"bytes", len(page.Body),
		"duration", page.FetchDuration,
	)

	res, err := r.extractor.Extract(page)
	if err != nil {
		return nil, err
	}
	r.metrics.UnmatchedLabels.Add(int64(len(res.Unmatched)))
	r.metrics.SkippedRows.Add(int64(res.SkippedRows))
	r.metrics.PartiesExtracted.Add(int64(res.Parties))
	if len(res.Unmatched) > 0 {
		r.logger.Warn("summary labels not recognized", "labels", res.Unmatched)
	}

	rec, err := r.pipeline.Process(res.Record)
	if err != nil {
		return nil, err
	}

	st, err := r.openStorage()
	if err != nil {
		return nil, err
	}
	if err := st.Store(ctx, []*types.Record{rec}); err != nil {
		var se *types.StorageError
		if !errors.As(err, &se) {
			err = &types.StorageError{Backend: st.Name(), Err: err}
		}
		return nil, err
	}
	r.metrics.RecordsStored.Add(1)

	if r.detector != nil {
		changes, err := r.detector.Detect(rec)
		if err != nil {
			r.logger.Warn("change detection failed", "error", err)
		}
		r.metrics.ChangesDetected.Add(int64(len(changes)))
	}

	return rec, nil
}

func (r *Runner) newRequest() (*types.Request, error) {
	src := r.cfg.Source
	req, err := types.NewRequest(src.URL, types.District{Code: src.DistrictCode, Name: src.DistrictName})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SelectFunc = src.SelectFunc
	req.WaitSelector = "#" + r.cfg.Extract.ContainerID
	req.Timeout = r.cfg.Browser.NavigationTimeout
	return req, nil
}

func (r *Runner) openStorage() (storage.Storage, error) {
	r.storageMu.Lock()
	defer r.storageMu.Unlock()

	if r.storage != nil {
		return r.storage, nil
	}
	st, err := storage.NewStorage(&r.cfg.Storage, r.base)
	if err != nil {
		return nil, err
	}
	r.storage = st
	return st, nil
}

// Close releases the fetcher and any opened storage.
func (r *Runner) Close() error {
	var firstErr error
	if err := r.fetcher.Close(); err != nil {
		firstErr = err
	}

	r.storageMu.Lock()
	defer r.storageMu.Unlock()
	if r.storage != nil {
		if err := r.storage.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.storage = nil
	}
	return firstErr
}
