package domain

import (
	"strconv"
	"time"
)

// CategoryCount is one bar of a categorical distribution
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StatusKPIs holds the headline indicators of the dashboard.
// InProgress+Completed+Untreated+Other always equals Total.
type StatusKPIs struct {
	Total      int `json:"total"`
	InProgress int `json:"en_cours"`
	Completed  int `json:"acheve"`
	Untreated  int `json:"non_traite"`
	Other      int `json:"autre"`
}

// SeriesPoint is the number of grievances of one label in one month
type SeriesPoint struct {
	Month time.Time `json:"mois"`
	Label string    `json:"label"`
	Count int       `json:"count"`
}

// DurationStat is the mean processing time of one label
type DurationStat struct {
	Label    string  `json:"label"`
	MeanDays float64 `json:"nb_jour"`
	Count    int     `json:"count"`
}

// CrossTab counts records by two categorical fields.
// Counts[i][j] is the count for Rows[i] and Columns[j].
type CrossTab struct {
	RowField    Field    `json:"row_field"`
	ColumnField Field    `json:"column_field"`
	Rows        []string `json:"rows"`
	Columns     []string `json:"columns"`
	Counts      [][]int  `json:"counts"`
}

// Total returns the sum of all cells
func (c CrossTab) Total() int {
	total := 0
	for _, row := range c.Counts {
		for _, n := range row {
			total += n
		}
	}
	return total
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
