package services

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"
)

// DatasetProvider returns the current default dataset
type DatasetProvider interface {
	Dataset(ctx context.Context, id string) (*Dataset, error)
}

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

// HealthService provides health check functionality
type HealthService struct {
	build     BuildInfo
	datasets  DatasetProvider
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service; clients may be nil
func NewHealthService(build BuildInfo, datasets DatasetProvider, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		build:     build,
		datasets:  datasets,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
	}
}

// ReadinessCheck reports ready when the default dataset can be loaded.
// A deployment without a configured source is ready by definition.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Services:  map[string]ServiceHealth{"dataset": hs.checkDataset(ctx)},
	}
	if hs.clients != nil {
		status.Services["websocket"] = ServiceHealth{Status: "ready"}
	}
	for _, s := range status.Services {
		if s.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

func (hs *HealthService) checkDataset(ctx context.Context) ServiceHealth {
	ds, err := hs.datasets.Dataset(ctx, DefaultDatasetID)
	switch {
	case errors.Is(err, ErrNoSource):
		return ServiceHealth{Status: "ready", Message: "no default source configured"}
	case err != nil:
		hs.logger.WarnContext(ctx, "readiness: dataset unavailable", slog.String("error", err.Error()))
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready", Message: ds.Source}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	rt := map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	if hs.clients != nil {
		rt["websocket_clients"] = hs.clients.ClientCount()
	}
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Runtime:   rt,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":    hs.build.Version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.build.Commit != "" {
		result["commit"] = hs.build.Commit
	}
	if hs.build.BuildTime != "" {
		result["build_time"] = hs.build.BuildTime
	}
	return result
}
