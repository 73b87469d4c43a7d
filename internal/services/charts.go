package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"griefpulse/internal/charts"
	"griefpulse/internal/grievance"
	"griefpulse/pkg/contracts/domain"
)

// Chart kinds
const (
	KindBar       = "bar"
	KindPie       = "pie"
	KindHistogram = "histogram"
	KindLine      = "line"
	KindDuration  = "duration"
)

// ChartSpec describes one dashboard chart
type ChartSpec struct {
	Name     string       `json:"name"`
	Title    string       `json:"title"`
	Kind     string       `json:"kind"`
	Requires domain.Field `json:"requires"`
}

// Catalogue lists the dashboard charts in display order
var Catalogue = []ChartSpec{
	{Name: "statut", Title: "Avancement général des griefs", Kind: KindPie, Requires: domain.FieldStatus},
	{Name: "type_depot", Title: "Répartition par type de dépôt", Kind: KindBar, Requires: domain.FieldDepositType},
	{Name: "categorie", Title: "Catégories les plus fréquentes", Kind: KindBar, Requires: domain.FieldCategory},
	{Name: "nature_statut", Title: "Nature des plaintes par statut", Kind: KindHistogram, Requires: domain.FieldNature},
	{Name: "evolution", Title: "Évolution mensuelle par nature", Kind: KindLine, Requires: domain.FieldIntakeDate},
	{Name: "communaute", Title: "Répartition par communauté", Kind: KindBar, Requires: domain.FieldCommunity},
	{Name: "sexe", Title: "Répartition par sexe", Kind: KindPie, Requires: domain.FieldSex},
	{Name: "duree", Title: "Durée moyenne de traitement par nature (jours)", Kind: KindDuration, Requires: domain.FieldDurationDays},
}

// LookupChart returns the catalogue entry named name
func LookupChart(name string) (ChartSpec, bool) {
	for _, spec := range Catalogue {
		if spec.Name == name {
			return spec, true
		}
	}
	return ChartSpec{}, false
}

// Chart renders one chart of the dashboard for id and sel
func (s *DashboardService) Chart(ctx context.Context, id string, sel grievance.Selection, name string, f charts.Format) ([]byte, error) {
	spec, ok := LookupChart(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
	d, err := s.Build(ctx, id, sel)
	if err != nil {
		return nil, err
	}
	return s.RenderChart(ctx, d, spec, f)
}

// RenderChart draws spec from the aggregates of d
func (s *DashboardService) RenderChart(ctx context.Context, d *Dashboard, spec ChartSpec, f charts.Format) ([]byte, error) {
	if !d.hasChart(spec.Name) {
		return nil, fmt.Errorf("%w: %s", ErrChartUnavailable, spec.Name)
	}

	_, span := s.tracer.Start(ctx, "chart.render")
	defer span.End()

	var (
		out []byte
		err error
	)
	switch spec.Name {
	case "statut":
		out, err = s.renderer.Pie(f, spec.Title, d.ByStatus)
	case "type_depot":
		out, err = s.renderer.Bar(f, spec.Title, d.ByDepositType)
	case "categorie":
		out, err = s.renderer.Bar(f, spec.Title, d.TopCategories)
	case "nature_statut":
		out, err = s.renderer.Histogram(f, spec.Title, d.NatureByStatus)
	case "evolution":
		out, err = s.renderer.Line(f, spec.Title, d.Series)
	case "communaute":
		out, err = s.renderer.Bar(f, spec.Title, d.ByCommunity)
	case "sexe":
		out, err = s.renderer.Pie(f, spec.Title, d.BySex)
	case "duree":
		out, err = s.renderer.Durations(f, spec.Title, d.Durations)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, spec.Name)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.RecordChart(ctx, spec.Name)
	return out, nil
}

// Charts renders every available chart of d concurrently.
// Charts without data are left out of the result.
func (s *DashboardService) Charts(ctx context.Context, d *Dashboard, f charts.Format) (map[string][]byte, error) {
	var (
		mu  sync.Mutex
		out = make(map[string][]byte, len(d.Charts))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range d.Charts {
		spec, ok := LookupChart(name)
		if !ok {
			continue
		}
		g.Go(func() error {
			data, err := s.RenderChart(gctx, d, spec, f)
			if errors.Is(err, charts.ErrNoData) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("chart %s: %w", spec.Name, err)
			}
			mu.Lock()
			out[spec.Name] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Dashboard) hasChart(name string) bool {
	for _, c := range d.Charts {
		if c == name {
			return true
		}
	}
	return false
}
