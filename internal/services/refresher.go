package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"griefpulse/internal/infrastructure"
)

// Event types pushed to dashboards
const (
	EventDatasetUpdated = "dataset:updated"
	EventDatasetError   = "dataset:error"
)

// Broadcaster pushes events to connected dashboards
type Broadcaster interface {
	BroadcastWithTrace(ctx context.Context, messageType string, data interface{})
}

// Reloader reloads the default dataset
type Reloader interface {
	Reload(ctx context.Context) (*Dataset, bool, error)
}

// Refresher re-fetches the default source on a ticker and notifies
// dashboards when its content changed.
type Refresher struct {
	reloader    Reloader
	broadcaster Broadcaster
	interval    time.Duration
	logger      *slog.Logger
}

// NewRefresher creates a refresher firing every interval
func NewRefresher(reloader Reloader, broadcaster Broadcaster, interval time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		reloader:    reloader,
		broadcaster: broadcaster,
		interval:    interval,
		logger:      logger.With(slog.String("component", "refresher")),
	}
}

// Run blocks until ctx is done
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "auto refresh started", slog.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("auto refresh stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick performs one refresh and reports whether dashboards were notified
func (r *Refresher) Tick(ctx context.Context) bool {
	ctx = infrastructure.EnsureTraceID(ctx)

	ds, changed, err := r.reloader.Reload(ctx)
	if errors.Is(err, ErrNoSource) {
		return false
	}
	if err != nil {
		r.logger.WarnContext(ctx, "refresh failed", slog.String("error", err.Error()))
		r.broadcaster.BroadcastWithTrace(ctx, EventDatasetError, map[string]string{
			"dataset": DefaultDatasetID,
			"message": err.Error(),
		})
		return true
	}
	if !changed {
		r.logger.DebugContext(ctx, "source unchanged", slog.String("fingerprint", ds.Fingerprint))
		return false
	}

	r.logger.InfoContext(ctx, "source changed",
		slog.String("fingerprint", ds.Fingerprint),
		slog.Int("records", len(ds.Records)))
	r.broadcaster.BroadcastWithTrace(ctx, EventDatasetUpdated, map[string]interface{}{
		"dataset":     ds.ID,
		"fingerprint": ds.Fingerprint,
		"records":     len(ds.Records),
		"loaded_at":   ds.LoadedAt,
	})
	return true
}
