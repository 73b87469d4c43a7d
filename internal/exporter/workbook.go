package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"griefpulse/pkg/contracts/domain"
)

// Sheet names of the summary workbook
const (
	SheetIndicators = "Indicateurs"
	SheetByNature   = "Par nature"
	SheetByStatus   = "Par statut"
	SheetSeries     = "Evolution"
	SheetDurations  = "Durée"
)

// Summary is the aggregated content of a summary workbook
type Summary struct {
	Source    string
	Filters   string
	KPIs      domain.StatusKPIs
	ByNature  []domain.CategoryCount
	ByStatus  []domain.CategoryCount
	Series    []domain.SeriesPoint
	Durations []domain.DurationStat
}

type sheetWriter struct {
	f     *excelize.File
	bold  int
	sheet string
	row   int
}

func (s *sheetWriter) put(values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	s.row++
	return s.f.SetSheetRow(s.sheet, cell, &values)
}

func (s *sheetWriter) header(values ...interface{}) error {
	row := s.row
	if err := s.put(values...); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(values), row)
	return s.f.SetCellStyle(s.sheet, first, last, s.bold)
}

// WriteSummaryWorkbook writes the aggregates of a dashboard as an xlsx file
func WriteSummaryWorkbook(w io.Writer, sum Summary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetSheetName(f.GetSheetName(0), SheetIndicators); err != nil {
		return err
	}
	for _, name := range []string{SheetByNature, SheetByStatus, SheetSeries, SheetDurations} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
	}

	steps := []func(*sheetWriter) error{
		func(s *sheetWriter) error { return writeIndicators(s, sum) },
		func(s *sheetWriter) error { return writeCounts(s, "Nature_plainte", sum.ByNature) },
		func(s *sheetWriter) error { return writeCounts(s, "Statut_traitement", sum.ByStatus) },
		func(s *sheetWriter) error { return writeSeries(s, sum.Series) },
		func(s *sheetWriter) error { return writeDurations(s, sum.Durations) },
	}
	sheets := []string{SheetIndicators, SheetByNature, SheetByStatus, SheetSeries, SheetDurations}
	for i, step := range steps {
		s := &sheetWriter{f: f, bold: bold, sheet: sheets[i], row: 1}
		if err := step(s); err != nil {
			return fmt.Errorf("failed to write sheet %q: %w", sheets[i], err)
		}
		if err := f.SetColWidth(sheets[i], "A", "A", 32); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeIndicators(s *sheetWriter, sum Summary) error {
	if err := s.header("Indicateur", "Valeur"); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Source", sum.Source},
		{"Filtres", sum.Filters},
		{"Total", sum.KPIs.Total},
		{domain.StatusInProgress, sum.KPIs.InProgress},
		{"Achevés", sum.KPIs.Completed},
		{domain.StatusUntreated, sum.KPIs.Untreated},
		{"Autres", sum.KPIs.Other},
	}
	for _, r := range rows {
		if err := s.put(r...); err != nil {
			return err
		}
	}
	return nil
}

func writeCounts(s *sheetWriter, label string, counts []domain.CategoryCount) error {
	if err := s.header(label, "Nombre"); err != nil {
		return err
	}
	for _, c := range counts {
		if err := s.put(c.Label, c.Count); err != nil {
			return err
		}
	}
	return nil
}

func writeSeries(s *sheetWriter, points []domain.SeriesPoint) error {
	if err := s.header("Mois", "Nature_plainte", "Nombre"); err != nil {
		return err
	}
	for _, p := range points {
		if err := s.put(p.Month.Format("2006-01"), p.Label, p.Count); err != nil {
			return err
		}
	}
	return nil
}

func writeDurations(s *sheetWriter, stats []domain.DurationStat) error {
	if err := s.header("Nature_plainte", "Durée moyenne (jours)", "Griefs mesurés"); err != nil {
		return err
	}
	for _, d := range stats {
		if err := s.put(d.Label, d.MeanDays, d.Count); err != nil {
			return err
		}
	}
	return nil
}
