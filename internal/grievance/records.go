package grievance

import (
	"fmt"
	"strings"
	"time"

	"griefpulse/pkg/contracts/domain"
)

// Stats summarizes how a table was turned into records
type Stats struct {
	RowsRead    int `json:"rows_read"`
	BlankRows   int `json:"blank_rows"`
	UndatedRows int `json:"undated_rows"`
	DroppedRows int `json:"dropped_rows"`
	RecordsKept int `json:"records_kept"`
}

// Records maps every non-blank table row to a grievance record.
// Columns missing from the table leave the matching fields empty.
func Records(t Table) ([]domain.Grievance, Stats) {
	cols := make(map[domain.Field]int)
	for _, f := range append(append([]domain.Field{}, DefaultRequired...), Optional...) {
		cols[f] = t.ColumnIndex(string(f))
	}

	var stats Stats
	records := make([]domain.Grievance, 0, len(t.Rows))
	for i := range t.Rows {
		stats.RowsRead++
		if blankRow(t.Rows[i]) {
			stats.BlankRows++
			continue
		}

		get := func(f domain.Field) string {
			return t.Cell(i, cols[f])
		}

		g := domain.Grievance{
			// header is sheet row 1
			Row:            i + 2,
			DepositType:    get(domain.FieldDepositType),
			Status:         get(domain.FieldStatus),
			Nature:         get(domain.FieldNature),
			Category:       get(domain.FieldCategory),
			Community:      get(domain.FieldCommunity),
			Sex:            get(domain.FieldSex),
			PopulationType: get(domain.FieldPopulationType),
			Classification: get(domain.FieldClassification),
		}
		if d, ok := ParseDate(get(domain.FieldIntakeDate)); ok {
			g.IntakeDate = &d
		} else {
			stats.UndatedRows++
		}
		if days, ok := ParseDays(get(domain.FieldDurationDays)); ok {
			g.DurationDays = &days
		}
		records = append(records, g)
	}
	stats.RecordsKept = len(records)
	return records, stats
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Derive fills Year, Quarter and Month from the intake date.
// When dropUndated is set, records without a parseable date are removed;
// the second return value counts them.
func Derive(records []domain.Grievance, dropUndated bool) ([]domain.Grievance, int) {
	out := make([]domain.Grievance, 0, len(records))
	dropped := 0
	for _, g := range records {
		if g.IntakeDate == nil {
			if dropUndated {
				dropped++
				continue
			}
			g.Year, g.Quarter, g.Month = 0, "", time.Time{}
			out = append(out, g)
			continue
		}
		d := *g.IntakeDate
		g.Year = d.Year()
		g.Quarter = QuarterOf(d)
		g.Month = MonthOf(d)
		out = append(out, g)
	}
	return out, dropped
}

// QuarterOf formats the calendar quarter of t as "2024Q1"
func QuarterOf(t time.Time) string {
	return fmt.Sprintf("%dQ%d", t.Year(), (int(t.Month())-1)/3+1)
}

// MonthOf returns the first day of the month of t in UTC
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Load is Records followed by Derive, with the drop count folded into stats
func Load(t Table, dropUndated bool) ([]domain.Grievance, Stats) {
	records, stats := Records(t)
	records, dropped := Derive(records, dropUndated)
	stats.DroppedRows = dropped
	stats.RecordsKept = len(records)
	return records, stats
}
