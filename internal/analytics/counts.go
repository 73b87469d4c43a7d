// Package analytics aggregates filtered grievance records into the counts,
// indicators and series displayed by the dashboard. Every function is pure:
// it reads the records it is given and never mutates them.
package analytics

import (
	"sort"

	"griefpulse/pkg/contracts/domain"
)

// BlankLabel groups records whose value is empty
const BlankLabel = "(vide)"

// CountBy counts records per value of field, by descending count.
// Ties keep the order in which values were first encountered.
func CountBy(records []domain.Grievance, field domain.Field) []domain.CategoryCount {
	index := make(map[string]int)
	var counts []domain.CategoryCount
	for _, g := range records {
		label := labelOf(g, field)
		i, ok := index[label]
		if !ok {
			i = len(counts)
			index[label] = i
			counts = append(counts, domain.CategoryCount{Label: label})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// TopN returns at most n entries of CountBy. n <= 0 returns every entry.
func TopN(records []domain.Grievance, field domain.Field, n int) []domain.CategoryCount {
	counts := CountBy(records, field)
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// CrossTab counts records by rowField x colField.
// Rows are ordered like CountBy(rowField), columns like CountBy(colField).
func CrossTab(records []domain.Grievance, rowField, colField domain.Field) domain.CrossTab {
	rows := CountBy(records, rowField)
	cols := CountBy(records, colField)

	ct := domain.CrossTab{
		RowField:    rowField,
		ColumnField: colField,
		Rows:        make([]string, len(rows)),
		Columns:     make([]string, len(cols)),
		Counts:      make([][]int, len(rows)),
	}
	rowIdx := make(map[string]int, len(rows))
	for i, r := range rows {
		ct.Rows[i] = r.Label
		rowIdx[r.Label] = i
		ct.Counts[i] = make([]int, len(cols))
	}
	colIdx := make(map[string]int, len(cols))
	for j, c := range cols {
		ct.Columns[j] = c.Label
		colIdx[c.Label] = j
	}
	for _, g := range records {
		ct.Counts[rowIdx[labelOf(g, rowField)]][colIdx[labelOf(g, colField)]]++
	}
	return ct
}

func labelOf(g domain.Grievance, field domain.Field) string {
	if v := g.Value(field); v != "" {
		return v
	}
	return BlankLabel
}
