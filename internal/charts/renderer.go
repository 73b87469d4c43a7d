// Package charts draws dashboard figures as SVG or PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"griefpulse/pkg/contracts/domain"
)

// ErrNoData is returned when there is nothing to draw
var ErrNoData = errors.New("aucune donnée à représenter")

// Format is an output image format
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts "svg" and "png"
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSVG, FormatPNG:
		return Format(s), nil
	}
	return "", fmt.Errorf("format d'image inconnu: %q", s)
}

// ContentType returns the MIME type of images in format f
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Renderer draws charts at a fixed size
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer creates a Renderer; zero dimensions fall back to 800x450
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 450
	}
	return &Renderer{Width: width, Height: height}
}

func provider(f Format) chart.RendererProvider {
	if f == FormatPNG {
		return chart.PNG
	}
	return chart.SVG
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}

// Bar draws one bar per count
func (r *Renderer) Bar(f Format, title string, counts []domain.CategoryCount) ([]byte, error) {
	if total(counts) == 0 {
		return nil, ErrNoData
	}
	bars := make([]chart.Value, len(counts))
	for i, c := range counts {
		col := ColorFor(c.Label, i)
		bars[i] = chart.Value{
			Label: c.Label,
			Value: float64(c.Count),
			Style: chart.Style{FillColor: col, StrokeColor: col},
		}
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   barWidth(r.Width, len(bars)),
		Background: background(),
		XAxis:      chart.Style{TextRotationDegrees: rotation(len(bars))},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: headroom(maxCount(counts))},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(provider(f), &buf); err != nil {
		return nil, fmt.Errorf("rendu du graphique %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

// Durations draws mean processing times as bars
func (r *Renderer) Durations(f Format, title string, stats []domain.DurationStat) ([]byte, error) {
	counts := make([]domain.CategoryCount, 0, len(stats))
	for _, s := range stats {
		counts = append(counts, domain.CategoryCount{Label: s.Label, Count: int(s.MeanDays)})
	}
	return r.Bar(f, title, counts)
}

// Pie draws the share of each count
func (r *Renderer) Pie(f Format, title string, counts []domain.CategoryCount) ([]byte, error) {
	if total(counts) == 0 {
		return nil, ErrNoData
	}
	values := make([]chart.Value, 0, len(counts))
	for i, c := range counts {
		if c.Count == 0 {
			continue
		}
		col := ColorFor(c.Label, i)
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", c.Label, c.Count),
			Value: float64(c.Count),
			Style: chart.Style{FillColor: col, StrokeColor: col},
		})
	}

	pc := chart.PieChart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		Background: background(),
		Values:     values,
	}

	var buf bytes.Buffer
	if err := pc.Render(provider(f), &buf); err != nil {
		return nil, fmt.Errorf("rendu du graphique %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

// Histogram draws one stacked bar per row of ct, split by column
func (r *Renderer) Histogram(f Format, title string, ct domain.CrossTab) ([]byte, error) {
	if ct.Total() == 0 {
		return nil, ErrNoData
	}
	bars := make([]chart.StackedBar, 0, len(ct.Rows))
	for i, row := range ct.Rows {
		bar := chart.StackedBar{Name: row}
		for j, col := range ct.Columns {
			n := ct.Counts[i][j]
			if n == 0 {
				continue
			}
			c := ColorFor(col, j)
			bar.Values = append(bar.Values, chart.Value{
				Label: col,
				Value: float64(n),
				Style: chart.Style{FillColor: c, StrokeColor: c},
			})
		}
		if len(bar.Values) > 0 {
			bars = append(bars, bar)
		}
	}

	sc := chart.StackedBarChart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		Background: background(),
		BarSpacing: 20,
		XAxis:      chart.Style{TextRotationDegrees: rotation(len(bars))},
		Bars:       bars,
	}

	var buf bytes.Buffer
	if err := sc.Render(provider(f), &buf); err != nil {
		return nil, fmt.Errorf("rendu du graphique %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

// Line draws one time series per label
func (r *Renderer) Line(f Format, title string, points []domain.SeriesPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	var months []time.Time
	seenMonth := make(map[int64]bool)
	var labels []string
	byLabel := make(map[string]map[int64]int)
	maxY := 0
	for _, p := range points {
		m := p.Month.Unix()
		if !seenMonth[m] {
			seenMonth[m] = true
			months = append(months, p.Month)
		}
		if byLabel[p.Label] == nil {
			byLabel[p.Label] = make(map[int64]int)
			labels = append(labels, p.Label)
		}
		byLabel[p.Label][m] += p.Count
		if v := byLabel[p.Label][m]; v > maxY {
			maxY = v
		}
	}
	// a single month gives a zero x range, which go-chart rejects
	if len(months) == 1 {
		months = append(months, months[0].AddDate(0, 1, 0))
	}

	series := make([]chart.Series, 0, len(labels))
	for i, label := range labels {
		ys := make([]float64, len(months))
		for k, m := range months {
			ys[k] = float64(byLabel[label][m.Unix()])
		}
		col := ColorFor(label, i)
		series = append(series, chart.TimeSeries{
			Name:    label,
			XValues: months,
			YValues: ys,
			Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 3},
		})
	}

	ch := chart.Chart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01")},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: headroom(maxY)}},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.LegendLeft(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(provider(f), &buf); err != nil {
		return nil, fmt.Errorf("rendu du graphique %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

func total(counts []domain.CategoryCount) int {
	n := 0
	for _, c := range counts {
		n += c.Count
	}
	return n
}

func maxCount(counts []domain.CategoryCount) int {
	m := 0
	for _, c := range counts {
		if c.Count > m {
			m = c.Count
		}
	}
	return m
}

func headroom(maxY int) float64 {
	return math.Max(1, math.Ceil(float64(maxY)*1.1))
}

func barWidth(width, n int) int {
	if n == 0 {
		return 40
	}
	w := width / (2 * n)
	if w > 60 {
		w = 60
	}
	if w < 8 {
		w = 8
	}
	return w
}

func rotation(n int) float64 {
	if n > 6 {
		return 45
	}
	return 0
}
