package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"griefpulse/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Derived column headers appended after the source fields
const (
	ColumnYear    = "Annee"
	ColumnQuarter = "Trimestre"
	ColumnMonth   = "Mois"
)

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	// Fields to write, in order; nil writes every known field
	Fields    []domain.Field
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	Separator rune
}

// DefaultFields is the column order of exported tables
var DefaultFields = []domain.Field{
	domain.FieldDepositType,
	domain.FieldStatus,
	domain.FieldNature,
	domain.FieldCategory,
	domain.FieldIntakeDate,
	domain.FieldDurationDays,
	domain.FieldCommunity,
	domain.FieldSex,
	domain.FieldPopulationType,
	domain.FieldClassification,
}

// Headers returns the header row written for fields
func Headers(fields []domain.Field) []string {
	headers := make([]string, 0, len(fields)+3)
	for _, f := range fields {
		headers = append(headers, string(f))
	}
	return append(headers, ColumnYear, ColumnQuarter, ColumnMonth)
}

// Row formats one record for fields, derived columns last
func Row(g domain.Grievance, fields []domain.Field) []string {
	row := make([]string, 0, len(fields)+3)
	for _, f := range fields {
		row = append(row, g.Value(f))
	}
	if !g.Dated() {
		return append(row, "", "", "")
	}
	return append(row, strconv.Itoa(g.Year), g.Quarter, g.Month.Format("2006-01"))
}

// WriteCSV writes the records as a CSV table
func WriteCSV(w io.Writer, records []domain.Grievance, opts WriteOptions) error {
	fields := opts.Fields
	if fields == nil {
		fields = DefaultFields
	}

	// Write BOM if requested (helps Excel recognize UTF-8)
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if opts.Separator != 0 {
		writer.Comma = opts.Separator
	}

	if err := writer.Write(Headers(fields)); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, g := range records {
		if err := writer.Write(Row(g, fields)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
