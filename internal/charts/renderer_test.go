package charts

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"griefpulse/pkg/contracts/domain"
)

var counts = []domain.CategoryCount{
	{Label: "Achevé", Count: 7},
	{Label: "En cours", Count: 4},
	{Label: "Non traité", Count: 2},
}

func TestBar(t *testing.T) {
	r := NewRenderer(0, 0)

	out, err := r.Bar(FormatSVG, "Répartition par statut", counts)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<svg")

	png, err := r.Bar(FormatPNG, "Répartition par statut", counts)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestPie(t *testing.T) {
	out, err := NewRenderer(600, 400).Pie(FormatSVG, "Avancement général", counts)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<svg")
}

func TestHistogram(t *testing.T) {
	ct := domain.CrossTab{
		RowField:    domain.FieldNature,
		ColumnField: domain.FieldStatus,
		Rows:        []string{"Foncier", "Bruit"},
		Columns:     []string{"Achevé", "En cours"},
		Counts:      [][]int{{3, 1}, {0, 2}},
	}
	out, err := NewRenderer(0, 0).Histogram(FormatSVG, "Nature par statut", ct)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<svg")
}

func TestLine(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("several months", func(t *testing.T) {
		out, err := NewRenderer(0, 0).Line(FormatSVG, "Évolution mensuelle", []domain.SeriesPoint{
			{Month: jan, Label: "Foncier", Count: 2},
			{Month: jan, Label: "Bruit", Count: 1},
			{Month: feb, Label: "Foncier", Count: 3},
		})
		require.NoError(t, err)
		assert.Contains(t, string(out), "<svg")
	})

	t.Run("single month", func(t *testing.T) {
		_, err := NewRenderer(0, 0).Line(FormatSVG, "Évolution mensuelle", []domain.SeriesPoint{
			{Month: jan, Label: "Foncier", Count: 2},
		})
		assert.NoError(t, err)
	})
}

func TestDurations(t *testing.T) {
	out, err := NewRenderer(0, 0).Durations(FormatSVG, "Durée moyenne", []domain.DurationStat{
		{Label: "Bruit", MeanDays: 3, Count: 2},
		{Label: "Foncier", MeanDays: 12, Count: 5},
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<svg")
}

func TestNoData(t *testing.T) {
	r := NewRenderer(0, 0)

	_, err := r.Bar(FormatSVG, "x", nil)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = r.Pie(FormatSVG, "x", []domain.CategoryCount{{Label: "a"}})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = r.Histogram(FormatSVG, "x", domain.CrossTab{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = r.Line(FormatSVG, "x", nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, StatusColors[domain.StatusCompleted], ColorFor("ACHEVE", 5))
	assert.Equal(t, StatusColors[domain.StatusUntreated], ColorFor("Non traité", 0))
	assert.Equal(t, palette[1], ColorFor("Foncier", 1))
	assert.Equal(t, palette[0], ColorFor("Foncier", len(palette)))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.ContentType())
	assert.Equal(t, "image/svg+xml", FormatSVG.ContentType())

	_, err = ParseFormat("gif")
	assert.Error(t, err)
}
