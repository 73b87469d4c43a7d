package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"griefpulse/internal/grievance"
)

// ErrEmptyWorkbook is returned when no header row can be found
var ErrEmptyWorkbook = errors.New("la feuille est vide")

// maxXLSRows bounds legacy workbooks; BIFF8 sheets cannot exceed it anyway
const maxXLSRows = 65536

// ParseWorkbook reads the worksheet named sheet (the first one when empty)
// and returns its content as a table. The format is chosen from the
// filename extension: .xls through extrame/xls, .csv through encoding/csv,
// anything else through excelize. The first non-empty row is the header.
func ParseWorkbook(r io.Reader, filename, sheet string) (grievance.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return grievance.Table{}, err
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		rows, err = readXLS(data, sheet)
	case ".csv":
		rows, err = readCSV(data)
	default:
		rows, err = readXLSX(data, sheet)
	}
	if err != nil {
		return grievance.Table{}, err
	}
	return tableFromRows(rows)
}

func readXLSX(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("classeur illisible: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("aucune feuille dans le classeur")
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("feuille %q introuvable", sheet)
	}

	// raw values keep dates as serial numbers instead of locale strings
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("lecture de la feuille %q: %w", sheet, err)
	}
	return rows, nil
}

func readXLS(data []byte, sheet string) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("classeur xls illisible: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("aucune feuille dans le classeur")
	}

	var ws *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		s := wb.GetSheet(i)
		if s == nil {
			continue
		}
		if sheet == "" || s.Name == sheet {
			ws = s
			break
		}
	}
	if ws == nil {
		return nil, fmt.Errorf("feuille %q introuvable", sheet)
	}

	var rows [][]string
	for i := 0; i <= int(ws.MaxRow) && i < maxXLSRows; i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv illisible: %w", err)
	}
	return rows, nil
}

func tableFromRows(rows [][]string) (grievance.Table, error) {
	start := -1
	for i, row := range rows {
		if !isBlank(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return grievance.Table{}, ErrEmptyWorkbook
	}

	headers := make([]string, len(rows[start]))
	for i, h := range rows[start] {
		headers[i] = strings.TrimSpace(h)
	}
	// drop trailing blank rows, keep interior ones so row numbers stay aligned
	end := len(rows)
	for end > start+1 && isBlank(rows[end-1]) {
		end--
	}
	body := append([][]string(nil), rows[start+1:end]...)
	return grievance.Table{Headers: headers, Rows: body}, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
