package audit

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRetentionInterval is how often RetentionWorker prunes events.
const DefaultRetentionInterval = 24 * time.Hour

// RetentionOption customizes a RetentionWorker.
type RetentionOption func(*RetentionWorker)

// WithRetentionInterval overrides the pause between pruning passes.
func WithRetentionInterval(d time.Duration) RetentionOption {
	return func(w *RetentionWorker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// RetentionWorker prunes search access events older than the retention window.
type RetentionWorker struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewRetentionWorker creates a worker keeping retentionDays of events.
// A non-positive retentionDays disables pruning.
func NewRetentionWorker(store *Store, retentionDays int, logger *slog.Logger, opts ...RetentionOption) *RetentionWorker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &RetentionWorker{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  DefaultRetentionInterval,
		logger:    logger.With("component", "audit-retention"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *RetentionWorker) enabled() bool {
	return w.store != nil && w.retention > 0
}

// Run prunes once right away and then every interval until ctx is done.
func (w *RetentionWorker) Run(ctx context.Context) {
	if !w.enabled() {
		w.logger.Info("retention disabled", "hasStore", w.store != nil, "retention", w.retention)
		return
	}

	w.logger.Info("retention started", "retention", w.retention, "interval", w.interval)
	w.prune(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("retention stopped")
			return
		case <-ticker.C:
			w.prune(ctx)
		}
	}
}

// Prune deletes events older than the retention window and reports how many
// were removed.
func (w *RetentionWorker) Prune(ctx context.Context) (int64, error) {
	if !w.enabled() {
		return 0, nil
	}
	return w.store.DeleteOlderThan(ctx, time.Now().Add(-w.retention))
}

func (w *RetentionWorker) prune(ctx context.Context) {
	deleted, err := w.Prune(ctx)
	switch {
	case err != nil:
		w.logger.Error("retention pass failed", "error", err)
	case deleted > 0:
		w.logger.Info("retention pass pruned events", "deleted", deleted)
	}
}
