package domain

import (
	"time"
)

// Field identifies a grievance attribute by its spreadsheet column name
type Field string

const (
	FieldDepositType    Field = "Type_depot"
	FieldStatus         Field = "Statut_traitement"
	FieldNature         Field = "Nature_plainte"
	FieldCategory       Field = "Categorie"
	FieldIntakeDate     Field = "Date_reception"
	FieldDurationDays   Field = "Nb_jour"
	FieldCommunity      Field = "Communaute"
	FieldSex            Field = "Sexe"
	FieldPopulationType Field = "Type_population"
	FieldClassification Field = "Classification"
)

// CategoricalFields lists the fields that can be counted and filtered by membership
var CategoricalFields = []Field{
	FieldDepositType,
	FieldStatus,
	FieldNature,
	FieldCategory,
	FieldCommunity,
	FieldSex,
	FieldPopulationType,
	FieldClassification,
}

// Known processing statuses
const (
	StatusInProgress   = "En cours"
	StatusCompleted    = "Achevé"
	StatusInadmissible = "Grief non récevable"
	StatusUntreated    = "Non traité"
)

// Grievance represents one complaint record read from the source spreadsheet
type Grievance struct {
	Row            int        `json:"row"`
	DepositType    string     `json:"type_depot"`
	Status         string     `json:"statut_traitement"`
	Nature         string     `json:"nature_plainte"`
	Category       string     `json:"categorie"`
	IntakeDate     *time.Time `json:"date_reception,omitempty"`
	DurationDays   *float64   `json:"nb_jour,omitempty"`
	Community      string     `json:"communaute,omitempty"`
	Sex            string     `json:"sexe,omitempty"`
	PopulationType string     `json:"type_population,omitempty"`
	Classification string     `json:"classification,omitempty"`

	// Derived from IntakeDate, zero when the date is unknown
	Year    int       `json:"annee,omitempty"`
	Quarter string    `json:"trimestre,omitempty"`
	Month   time.Time `json:"mois,omitempty"`
}

// Dated reports whether the record can take part in time-based aggregates
func (g Grievance) Dated() bool {
	return g.IntakeDate != nil && g.Year != 0
}

// Value returns the categorical value held by the record for field
func (g Grievance) Value(field Field) string {
	switch field {
	case FieldDepositType:
		return g.DepositType
	case FieldStatus:
		return g.Status
	case FieldNature:
		return g.Nature
	case FieldCategory:
		return g.Category
	case FieldCommunity:
		return g.Community
	case FieldSex:
		return g.Sex
	case FieldPopulationType:
		return g.PopulationType
	case FieldClassification:
		return g.Classification
	case FieldIntakeDate:
		if g.IntakeDate == nil {
			return ""
		}
		return g.IntakeDate.Format("2006-01-02")
	case FieldDurationDays:
		if g.DurationDays == nil {
			return ""
		}
		return trimFloat(*g.DurationDays)
	}
	return ""
}
