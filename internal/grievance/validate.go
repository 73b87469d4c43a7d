package grievance

import (
	"fmt"
	"strings"

	"griefpulse/pkg/contracts/domain"
)

// DefaultRequired is the column set every grievance workbook must provide
var DefaultRequired = []domain.Field{
	domain.FieldDepositType,
	domain.FieldStatus,
	domain.FieldNature,
	domain.FieldCategory,
	domain.FieldIntakeDate,
}

// Optional columns enable extra charts when present
var Optional = []domain.Field{
	domain.FieldDurationDays,
	domain.FieldCommunity,
	domain.FieldSex,
	domain.FieldPopulationType,
	domain.FieldClassification,
}

// MissingColumnsError lists required columns absent from a table
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	if len(e.Missing) == 1 {
		return fmt.Sprintf("la colonne %q est manquante dans la table", e.Missing[0])
	}
	quoted := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	return fmt.Sprintf("les colonnes %s sont manquantes dans la table", strings.Join(quoted, ", "))
}

// Validate checks that every required column is present.
// It returns a *MissingColumnsError naming the absent columns in required order.
func Validate(t Table, required []domain.Field) error {
	if required == nil {
		required = DefaultRequired
	}
	var missing []string
	for _, f := range required {
		if !t.HasField(f) {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}

// ParseFields converts column names into fields, rejecting unknown names
func ParseFields(names []string) ([]domain.Field, error) {
	known := make(map[string]domain.Field)
	for _, f := range append(append([]domain.Field{}, DefaultRequired...), Optional...) {
		known[NormalizeKey(string(f))] = f
	}
	fields := make([]domain.Field, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		f, ok := known[NormalizeKey(n)]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		fields = append(fields, f)
	}
	return fields, nil
}
