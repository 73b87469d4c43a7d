package grievance

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"griefpulse/pkg/contracts/domain"
)

// Table is the raw content of the first worksheet of a grievance workbook.
// Headers come from the first non-empty row, Rows from everything below it.
type Table struct {
	Headers     []string
	Rows        [][]string
	Source      string
	Fingerprint string
}

// Empty reports whether the table holds no data rows
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// ColumnIndex returns the position of the column matching name, or -1.
// Matching ignores case, accents, surrounding spaces and the
// space/underscore/dash distinction.
func (t Table) ColumnIndex(name string) int {
	want := NormalizeKey(name)
	for i, h := range t.Headers {
		if NormalizeKey(h) == want {
			return i
		}
	}
	return -1
}

// HasColumn reports whether a column matching name exists
func (t Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// HasField reports whether the column backing field exists
func (t Table) HasField(field domain.Field) bool {
	return t.HasColumn(string(field))
}

// Cell returns the trimmed value at row i, column col, or "" when out of range
func (t Table) Cell(i, col int) string {
	if i < 0 || i >= len(t.Rows) || col < 0 || col >= len(t.Rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[i][col])
}

// NormalizeKey folds s for comparisons: accents removed, case folded,
// separators unified to '_'.
func NormalizeKey(s string) string {
	folded := Fold(s)
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, folded)
}

// Fold removes accents and folds case so that "Achevé" and "ACHEVE" compare equal
func Fold(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}
