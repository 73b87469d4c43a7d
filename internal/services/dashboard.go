package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"griefpulse/internal/analytics"
	"griefpulse/internal/exporter"
	"griefpulse/internal/grievance"
	"griefpulse/pkg/contracts/domain"
)

// Notice levels
const (
	NoticeInfo    = "info"
	NoticeWarning = "warning"
)

// Notice is a message shown above the dashboard
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Dashboard is the view model of one render pass
type Dashboard struct {
	DatasetID   string              `json:"dataset_id"`
	Source      string              `json:"source"`
	Fingerprint string              `json:"fingerprint"`
	LoadedAt    time.Time           `json:"loaded_at"`
	Selection   grievance.Selection `json:"selection"`
	Stats       grievance.Stats     `json:"stats"`

	Total    int               `json:"total"`
	Filtered int               `json:"filtered"`
	KPIs     domain.StatusKPIs `json:"kpis"`

	ByDepositType    []domain.CategoryCount `json:"par_type_depot"`
	ByStatus         []domain.CategoryCount `json:"par_statut"`
	ByNature         []domain.CategoryCount `json:"par_nature"`
	TopCategories    []domain.CategoryCount `json:"top_categories"`
	ByCommunity      []domain.CategoryCount `json:"par_communaute,omitempty"`
	BySex            []domain.CategoryCount `json:"par_sexe,omitempty"`
	ByPopulationType []domain.CategoryCount `json:"par_type_population,omitempty"`
	NatureByStatus   domain.CrossTab        `json:"nature_par_statut"`
	Series           []domain.SeriesPoint   `json:"evolution"`
	Durations        []domain.DurationStat  `json:"duree_moyenne,omitempty"`

	Charts  []string           `json:"charts"`
	Preview []domain.Grievance `json:"preview"`
	Notices []Notice           `json:"notices,omitempty"`

	// Records is the filtered subset, used by exports
	Records []domain.Grievance `json:"-"`
}

// Build runs validation, filtering and aggregation for one dataset.
// It stops before any aggregation when columns are missing or nothing matches.
func (s *DashboardService) Build(ctx context.Context, id string, sel grievance.Selection) (*Dashboard, error) {
	ds, err := s.Dataset(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.BuildFrom(ctx, ds, sel)
}

// BuildFrom is Build on an already loaded dataset
func (s *DashboardService) BuildFrom(ctx context.Context, ds *Dataset, sel grievance.Selection) (*Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.build")
	defer span.End()

	if err := grievance.Validate(ds.Table, s.opts.RequiredColumns); err != nil {
		var missing *grievance.MissingColumnsError
		if errors.As(err, &missing) {
			s.logger.WarnContext(ctx, "required columns missing",
				slog.String("dataset_id", ds.ID),
				slog.Any("missing", missing.Missing))
		}
		return nil, err
	}

	filtered := grievance.Filter(ds.Records, sel)
	if len(filtered) == 0 {
		return nil, ErrEmptySelection
	}

	d := &Dashboard{
		DatasetID:   ds.ID,
		Source:      ds.Source,
		Fingerprint: ds.Fingerprint,
		LoadedAt:    ds.LoadedAt,
		Selection:   sel,
		Stats:       ds.Stats,
		Total:       len(ds.Records),
		Filtered:    len(filtered),
		KPIs:        analytics.StatusKPIs(filtered),

		ByDepositType:  analytics.CountBy(filtered, domain.FieldDepositType),
		ByStatus:       analytics.CountBy(filtered, domain.FieldStatus),
		ByNature:       analytics.CountBy(filtered, domain.FieldNature),
		TopCategories:  analytics.TopN(filtered, domain.FieldCategory, s.opts.TopN),
		NatureByStatus: analytics.CrossTab(filtered, domain.FieldNature, domain.FieldStatus),
		Series:         analytics.MonthlySeries(filtered, domain.FieldNature),

		Records: filtered,
	}

	has := ds.Table.HasField
	if has(domain.FieldCommunity) {
		d.ByCommunity = analytics.TopN(filtered, domain.FieldCommunity, s.opts.TopN)
	}
	if has(domain.FieldSex) {
		d.BySex = analytics.CountBy(filtered, domain.FieldSex)
	}
	if has(domain.FieldPopulationType) {
		d.ByPopulationType = analytics.CountBy(filtered, domain.FieldPopulationType)
	}
	if has(domain.FieldDurationDays) {
		d.Durations = analytics.MeanDuration(filtered, domain.FieldNature)
	}

	for _, spec := range Catalogue {
		if has(spec.Requires) {
			d.Charts = append(d.Charts, spec.Name)
			continue
		}
		d.Notices = append(d.Notices, Notice{
			Level:   NoticeInfo,
			Message: fmt.Sprintf("La colonne %q est absente : le graphique « %s » est désactivé.", spec.Requires, spec.Title),
		})
	}
	if ds.Stats.DroppedRows > 0 {
		d.Notices = append(d.Notices, Notice{
			Level:   NoticeWarning,
			Message: fmt.Sprintf("%d ligne(s) sans date de réception valide ont été ignorées.", ds.Stats.DroppedRows),
		})
	}

	n := s.opts.PreviewRows
	if n > len(filtered) {
		n = len(filtered)
	}
	d.Preview = filtered[:n]

	return d, nil
}

// Summary converts the dashboard into the content of a summary workbook
func (d *Dashboard) Summary() exporter.Summary {
	return exporter.Summary{
		Source:    d.Source,
		Filters:   DescribeSelection(d.Selection),
		KPIs:      d.KPIs,
		ByNature:  d.ByNature,
		ByStatus:  d.ByStatus,
		Series:    d.Series,
		Durations: d.Durations,
	}
}

// DescribeSelection renders sel as "annee=2024; statut=En cours,Achevé"
func DescribeSelection(sel grievance.Selection) string {
	var parts []string
	if sel.Year != 0 {
		parts = append(parts, "annee="+strconv.Itoa(sel.Year))
	}
	if sel.Quarter != "" {
		parts = append(parts, "trimestre="+sel.Quarter)
	}
	named := []struct {
		name   string
		values []string
	}{
		{"type_depot", sel.DepositTypes},
		{"statut", sel.Statuses},
		{"nature", sel.Natures},
		{"categorie", sel.Categories},
		{"communaute", sel.Communities},
		{"sexe", sel.Sexes},
		{"type_population", sel.PopulationTypes},
	}
	for _, n := range named {
		if n.values == nil {
			continue
		}
		parts = append(parts, n.name+"="+strings.Join(n.values, ","))
	}
	if len(parts) == 0 {
		return "aucun filtre"
	}
	return strings.Join(parts, "; ")
}
