package analytics

import (
	"math"
	"sort"

	"griefpulse/pkg/contracts/domain"
)

// MonthlySeries counts dated records per (month, label of field).
// Points are sorted by month, then by the label order of CountBy.
// Undated records are skipped.
func MonthlySeries(records []domain.Grievance, field domain.Field) []domain.SeriesPoint {
	dated := make([]domain.Grievance, 0, len(records))
	for _, g := range records {
		if g.Dated() {
			dated = append(dated, g)
		}
	}

	labelRank := make(map[string]int)
	for i, c := range CountBy(dated, field) {
		labelRank[c.Label] = i
	}

	type key struct {
		month int64
		label string
	}
	index := make(map[key]int)
	var points []domain.SeriesPoint
	for _, g := range dated {
		k := key{month: g.Month.Unix(), label: labelOf(g, field)}
		i, ok := index[k]
		if !ok {
			i = len(points)
			index[k] = i
			points = append(points, domain.SeriesPoint{Month: g.Month, Label: k.label})
		}
		points[i].Count++
	}

	sort.SliceStable(points, func(i, j int) bool {
		if !points[i].Month.Equal(points[j].Month) {
			return points[i].Month.Before(points[j].Month)
		}
		return labelRank[points[i].Label] < labelRank[points[j].Label]
	})
	return points
}

// MeanDuration averages the processing duration per label of field,
// rounded half to even, sorted by ascending mean. Records without a
// duration are ignored; labels with no duration at all are omitted.
func MeanDuration(records []domain.Grievance, field domain.Field) []domain.DurationStat {
	index := make(map[string]int)
	var stats []domain.DurationStat
	var sums []float64
	for _, g := range records {
		if g.DurationDays == nil {
			continue
		}
		label := labelOf(g, field)
		i, ok := index[label]
		if !ok {
			i = len(stats)
			index[label] = i
			stats = append(stats, domain.DurationStat{Label: label})
			sums = append(sums, 0)
		}
		stats[i].Count++
		sums[i] += *g.DurationDays
	}
	for i := range stats {
		stats[i].MeanDays = math.RoundToEven(sums[i] / float64(stats[i].Count))
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].MeanDays < stats[j].MeanDays
	})
	return stats
}

// Years returns the distinct years of dated records in ascending order
func Years(records []domain.Grievance) []int {
	seen := make(map[int]struct{})
	var years []int
	for _, g := range records {
		if !g.Dated() {
			continue
		}
		if _, ok := seen[g.Year]; !ok {
			seen[g.Year] = struct{}{}
			years = append(years, g.Year)
		}
	}
	sort.Ints(years)
	return years
}

// Quarters returns the distinct quarters of dated records in ascending order
func Quarters(records []domain.Grievance) []string {
	seen := make(map[string]struct{})
	var quarters []string
	for _, g := range records {
		if !g.Dated() {
			continue
		}
		if _, ok := seen[g.Quarter]; !ok {
			seen[g.Quarter] = struct{}{}
			quarters = append(quarters, g.Quarter)
		}
	}
	sort.Strings(quarters)
	return quarters
}
