package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"griefpulse/internal/grievance"
	"griefpulse/pkg/contracts/domain"
)

func record(nature, status, category string, date string, days float64) domain.Grievance {
	g := domain.Grievance{Nature: nature, Status: status, Category: category}
	if date != "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			panic(err)
		}
		g.IntakeDate = &d
	}
	if days >= 0 {
		g.DurationDays = &days
	}
	out, _ := grievance.Derive([]domain.Grievance{g}, false)
	return out[0]
}

func sampleRecords() []domain.Grievance {
	return []domain.Grievance{
		record("Foncier", "En cours", "Sensible", "2024-01-10", 10),
		record("Bruit", "Achevé", "Non sensible", "2024-01-20", 4),
		record("Foncier", "achevé", "Sensible", "2024-02-05", 5),
		record("Emploi", "Non traité", "Sensible", "2024-02-18", -1),
		record("Bruit", "Grief non récevable", "Non sensible", "2024-03-01", 2),
		record("Foncier", "Suspendu", "", "", 1),
	}
}

func TestCountBy(t *testing.T) {
	counts := CountBy(sampleRecords(), domain.FieldNature)
	assert.Equal(t, []domain.CategoryCount{
		{Label: "Foncier", Count: 3},
		{Label: "Bruit", Count: 2},
		{Label: "Emploi", Count: 1},
	}, counts)

	t.Run("blank values are grouped", func(t *testing.T) {
		counts := CountBy(sampleRecords(), domain.FieldCategory)
		require.Len(t, counts, 3)
		assert.Equal(t, BlankLabel, counts[2].Label)
		assert.Equal(t, 1, counts[2].Count)
	})

	t.Run("sum equals record count", func(t *testing.T) {
		records := sampleRecords()
		total := 0
		for _, c := range CountBy(records, domain.FieldStatus) {
			total += c.Count
		}
		assert.Equal(t, len(records), total)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, CountBy(nil, domain.FieldNature))
	})
}

func TestTopN(t *testing.T) {
	records := sampleRecords()
	top := TopN(records, domain.FieldNature, 2)
	assert.Equal(t, []string{"Foncier", "Bruit"}, labels(top))

	assert.Len(t, TopN(records, domain.FieldNature, 10), 3)
	assert.Len(t, TopN(records, domain.FieldNature, 0), 3)
}

func TestTopNTiesKeepEncounterOrder(t *testing.T) {
	records := []domain.Grievance{
		{Nature: "B"}, {Nature: "A"}, {Nature: "C"}, {Nature: "A"}, {Nature: "B"}, {Nature: "C"},
	}
	assert.Equal(t, []string{"B", "A"}, labels(TopN(records, domain.FieldNature, 2)))
}

func TestStatusKPIs(t *testing.T) {
	kpis := StatusKPIs(sampleRecords())
	assert.Equal(t, domain.StatusKPIs{
		Total:      6,
		InProgress: 1,
		Completed:  3,
		Untreated:  1,
		Other:      1,
	}, kpis)
	assert.Equal(t, kpis.Total, kpis.InProgress+kpis.Completed+kpis.Untreated+kpis.Other)
}

func TestStatusBucket(t *testing.T) {
	assert.Equal(t, BucketCompleted, StatusBucket("ACHEVE"))
	assert.Equal(t, BucketCompleted, StatusBucket("grief non recevable"))
	assert.Equal(t, BucketInProgress, StatusBucket(" en  cours"))
	assert.Equal(t, BucketUntreated, StatusBucket("Non traité"))
	assert.Equal(t, BucketOther, StatusBucket(""))
}

func TestCrossTab(t *testing.T) {
	ct := CrossTab(sampleRecords(), domain.FieldNature, domain.FieldCategory)
	assert.Equal(t, []string{"Foncier", "Bruit", "Emploi"}, ct.Rows)
	assert.Equal(t, []string{"Sensible", "Non sensible", BlankLabel}, ct.Columns)
	assert.Equal(t, [][]int{
		{2, 0, 1},
		{0, 2, 0},
		{1, 0, 0},
	}, ct.Counts)
	assert.Equal(t, 6, ct.Total())
}

func TestMonthlySeries(t *testing.T) {
	points := MonthlySeries(sampleRecords(), domain.FieldNature)
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.Len(t, points, 5)
	assert.Equal(t, domain.SeriesPoint{Month: jan, Label: "Foncier", Count: 1}, points[0])
	assert.Equal(t, domain.SeriesPoint{Month: jan, Label: "Bruit", Count: 1}, points[1])
	assert.Equal(t, domain.SeriesPoint{Month: feb, Label: "Foncier", Count: 1}, points[2])
	assert.Equal(t, domain.SeriesPoint{Month: feb, Label: "Emploi", Count: 1}, points[3])
	assert.Equal(t, domain.SeriesPoint{Month: mar, Label: "Bruit", Count: 1}, points[4])

	total := 0
	for _, p := range points {
		total += p.Count
	}
	assert.Equal(t, 5, total, "undated record excluded")
}

func TestMeanDuration(t *testing.T) {
	stats := MeanDuration(sampleRecords(), domain.FieldNature)
	// Foncier: (10+5+1)/3 = 5.33 -> 5; Bruit: (4+2)/2 = 3; Emploi has no duration
	assert.Equal(t, []domain.DurationStat{
		{Label: "Bruit", MeanDays: 3, Count: 2},
		{Label: "Foncier", MeanDays: 5, Count: 3},
	}, stats)

	t.Run("half to even", func(t *testing.T) {
		a, b := 2.0, 3.0
		c, d := 4.0, 5.0
		stats := MeanDuration([]domain.Grievance{
			{Nature: "X", DurationDays: &a}, {Nature: "X", DurationDays: &b},
			{Nature: "Y", DurationDays: &c}, {Nature: "Y", DurationDays: &d},
		}, domain.FieldNature)
		require.Len(t, stats, 2)
		assert.Equal(t, 2.0, stats[0].MeanDays)
		assert.Equal(t, 4.0, stats[1].MeanDays)
	})
}

func TestYearsAndQuarters(t *testing.T) {
	records := append(sampleRecords(), record("Bruit", "Achevé", "Sensible", "2023-12-31", 1))
	assert.Equal(t, []int{2023, 2024}, Years(records))
	assert.Equal(t, []string{"2023Q4", "2024Q1"}, Quarters(records))
	assert.Empty(t, Years(nil))
}

func labels(counts []domain.CategoryCount) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Label
	}
	return out
}
