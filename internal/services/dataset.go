package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"griefpulse/internal/charts"
	"griefpulse/internal/config"
	"griefpulse/internal/grievance"
	"griefpulse/internal/infrastructure"
	"griefpulse/internal/loader"
	"griefpulse/pkg/contracts/domain"
)

// TracerName names the spans opened by this package
const TracerName = "griefpulse.services"

// DefaultDatasetID addresses the configured source
const DefaultDatasetID = "default"

// Dataset is an immutable snapshot of one loaded workbook
type Dataset struct {
	ID          string                  `json:"id"`
	Source      string                  `json:"source"`
	Fingerprint string                  `json:"fingerprint"`
	LoadedAt    time.Time               `json:"loaded_at"`
	Headers     []string                `json:"headers"`
	Stats       grievance.Stats         `json:"stats"`
	Options     grievance.FilterOptions `json:"options"`

	Table   grievance.Table    `json:"-"`
	Records []domain.Grievance `json:"-"`
}

// SourceResolver turns a location into a loader source
type SourceResolver interface {
	Resolve(location string) (loader.Source, error)
}

// WorkbookLoader reads a source into a table
type WorkbookLoader interface {
	Load(ctx context.Context, src loader.Source) (grievance.Table, error)
}

// Options configures a DashboardService
type Options struct {
	Location        string
	RequiredColumns []domain.Field
	DropUndated     bool
	RefreshInterval time.Duration
	UploadTTL       time.Duration
	PreviewRows     int
	TopN            int
}

// OptionsFromConfig converts the source section of the configuration
func OptionsFromConfig(cfg config.SourceConfig) (Options, error) {
	required, err := grievance.ParseFields(cfg.RequiredColumns)
	if err != nil {
		return Options{}, fmt.Errorf("required columns: %w", err)
	}
	if len(required) == 0 {
		required = grievance.DefaultRequired
	}
	return Options{
		Location:        cfg.Location,
		RequiredColumns: required,
		DropUndated:     cfg.DropUndated,
		RefreshInterval: cfg.RefreshInterval,
		UploadTTL:       cfg.UploadTTL,
		PreviewRows:     cfg.PreviewRows,
		TopN:            cfg.TopN,
	}, nil
}

type upload struct {
	dataset *Dataset
	expires time.Time
}

// DashboardService loads datasets and builds dashboards from them
type DashboardService struct {
	opts     Options
	loader   WorkbookLoader
	resolver SourceResolver
	renderer *charts.Renderer
	metrics  *infrastructure.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	current *Dataset
	uploads map[string]upload
	group   singleflight.Group
}

// NewDashboardService creates the service; metrics may be nil
func NewDashboardService(opts Options, ld WorkbookLoader, resolver SourceResolver, renderer *charts.Renderer, metrics *infrastructure.Metrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if renderer == nil {
		renderer = charts.NewRenderer(0, 0)
	}
	if opts.RequiredColumns == nil {
		opts.RequiredColumns = grievance.DefaultRequired
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Minute
	}
	if opts.UploadTTL <= 0 {
		opts.UploadTTL = 2 * time.Hour
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	return &DashboardService{
		opts:     opts,
		loader:   ld,
		resolver: resolver,
		renderer: renderer,
		metrics:  metrics,
		tracer:   otel.Tracer(TracerName),
		logger:   logger.With(slog.String("component", "dashboard_service")),
		now:      time.Now,
		uploads:  make(map[string]upload),
	}
}

// Dataset returns the snapshot for id. The default dataset is reloaded once
// it is older than the refresh interval; concurrent reloads share one load.
func (s *DashboardService) Dataset(ctx context.Context, id string) (*Dataset, error) {
	if id == "" || id == DefaultDatasetID {
		return s.defaultDataset(ctx)
	}
	return s.uploaded(id)
}

func (s *DashboardService) defaultDataset(ctx context.Context) (*Dataset, error) {
	s.mu.RLock()
	ds := s.current
	s.mu.RUnlock()
	if ds != nil && s.now().Sub(ds.LoadedAt) < s.opts.RefreshInterval {
		return ds, nil
	}
	ds, _, err := s.Reload(ctx)
	return ds, err
}

// Reload loads the default source now. changed reports whether the
// fingerprint differs from the previous snapshot.
func (s *DashboardService) Reload(ctx context.Context) (ds *Dataset, changed bool, err error) {
	if s.opts.Location == "" {
		return nil, false, ErrNoSource
	}

	type result struct {
		ds      *Dataset
		changed bool
	}
	v, err, _ := s.group.Do(DefaultDatasetID, func() (interface{}, error) {
		src, err := s.resolver.Resolve(s.opts.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadFailed, &loader.LoadError{Source: s.opts.Location, Err: err})
		}
		// shared by every waiter, so it must outlive the first caller
		ds, err := s.load(context.WithoutCancel(ctx), src)
		if err != nil {
			return nil, err
		}
		ds.ID = DefaultDatasetID

		s.mu.Lock()
		prev := s.current
		s.current = ds
		s.mu.Unlock()
		return result{ds: ds, changed: prev == nil || prev.Fingerprint != ds.Fingerprint}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(result)
	return r.ds, r.changed, nil
}

// Upload loads data as a new dataset kept for the upload TTL and returns its id
func (s *DashboardService) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	ds, err := s.load(ctx, loader.UploadSource{Filename: filename, Data: data})
	s.metrics.RecordUpload(ctx, err)
	if err != nil {
		return "", err
	}

	ds.ID = uuid.New().String()
	now := s.now()

	s.mu.Lock()
	for id, u := range s.uploads {
		if now.After(u.expires) {
			delete(s.uploads, id)
		}
	}
	s.uploads[ds.ID] = upload{dataset: ds, expires: now.Add(s.opts.UploadTTL)}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "dataset uploaded",
		slog.String("dataset_id", ds.ID),
		slog.String("filename", filename),
		slog.Int("records", len(ds.Records)))
	return ds.ID, nil
}

func (s *DashboardService) uploaded(id string) (*Dataset, error) {
	s.mu.RLock()
	u, ok := s.uploads[id]
	s.mu.RUnlock()
	if !ok || s.now().After(u.expires) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return u.dataset, nil
}

func (s *DashboardService) load(ctx context.Context, src loader.Source) (*Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.load",
		trace.WithAttributes(attribute.String("dataset.source", src.Name())))
	defer span.End()

	start := time.Now()
	table, err := s.loader.Load(ctx, src)
	if err != nil {
		s.metrics.RecordLoad(ctx, src.Name(), time.Since(start), 0, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	records, stats := grievance.Load(table, s.opts.DropUndated)
	s.metrics.RecordLoad(ctx, src.Name(), time.Since(start), len(records), nil)
	span.SetAttributes(
		attribute.Int("dataset.rows", stats.RowsRead),
		attribute.Int("dataset.records", len(records)),
	)

	if stats.DroppedRows > 0 {
		s.logger.WarnContext(ctx, "undated rows dropped",
			slog.String("source", src.Name()),
			slog.Int("dropped", stats.DroppedRows))
	}

	return &Dataset{
		Source:      table.Source,
		Fingerprint: table.Fingerprint,
		LoadedAt:    s.now(),
		Headers:     table.Headers,
		Stats:       stats,
		Options:     grievance.Options(records),
		Table:       table,
		Records:     records,
	}, nil
}
