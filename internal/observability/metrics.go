package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks scrape outcomes across runs.
type Metrics struct {
	RunsTotal         atomic.Int64
	RunsFailed        atomic.Int64
	FailuresTransient atomic.Int64
	FailuresPermanent atomic.Int64

	UnmatchedLabels  atomic.Int64
	SkippedRows      atomic.Int64
	PartiesExtracted atomic.Int64
	RecordsStored    atomic.Int64
	ChangesDetected  atomic.Int64

	// LastSuccess is the Unix time of the last successful run.
	LastSuccess atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// RecordFailure counts a failed run by kind ("transient" or "permanent").
func (m *Metrics) RecordFailure(kind string) {
	m.RunsFailed.Add(1)
	if kind == "transient" {
		m.FailuresTransient.Add(1)
	} else {
		m.FailuresPermanent.Add(1)
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	counters := []struct {
		name  string
		help  string
		value int64
	}{
		{"escrutinio_runs_total", "Total scrape runs", m.RunsTotal.Load()},
		{"escrutinio_runs_failed_total", "Total failed scrape runs", m.RunsFailed.Load()},
		{"escrutinio_failures_transient_total", "Failed runs classified as transient", m.FailuresTransient.Load()},
		{"escrutinio_failures_permanent_total", "Failed runs classified as permanent", m.FailuresPermanent.Load()},
		{"escrutinio_unmatched_labels_total", "Summary labels that matched no known field", m.UnmatchedLabels.Load()},
		{"escrutinio_skipped_rows_total", "Rows skipped for missing cells", m.SkippedRows.Load()},
		{"escrutinio_parties_extracted_total", "Party vote fields extracted", m.PartiesExtracted.Load()},
		{"escrutinio_records_stored_total", "Records written to storage", m.RecordsStored.Load()},
		{"escrutinio_changes_detected_total", "Field changes between snapshots", m.ChangesDetected.Load()},
	}

	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(w, "%s %d\n", c.name, c.value)
	}

	fmt.Fprintf(w, "# HELP escrutinio_last_success_timestamp_seconds Unix time of the last successful run\n")
	fmt.Fprintf(w, "# TYPE escrutinio_last_success_timestamp_seconds gauge\n")
	fmt.Fprintf(w, "escrutinio_last_success_timestamp_seconds %d\n", m.LastSuccess.Load())
}

// StartServer serves the metrics endpoint until ctx is cancelled.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"runs_total":         m.RunsTotal.Load(),
		"runs_failed":        m.RunsFailed.Load(),
		"failures_transient": m.FailuresTransient.Load(),
		"failures_permanent": m.FailuresPermanent.Load(),
		"unmatched_labels":   m.UnmatchedLabels.Load(),
		"skipped_rows":       m.SkippedRows.Load(),
		"parties_extracted":  m.PartiesExtracted.Load(),
		"records_stored":     m.RecordsStored.Load(),
		"changes_detected":   m.ChangesDetected.Load(),
		"last_success":       m.LastSuccess.Load(),
	}
}
