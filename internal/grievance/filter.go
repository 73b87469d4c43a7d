package grievance

import (
	"sort"

	"griefpulse/pkg/contracts/domain"
)

// Selection holds the user's filter choices.
// A nil set leaves its field unconstrained; a non-nil empty set matches nothing.
// Year 0 and Quarter "" select every period.
type Selection struct {
	DepositTypes    []string `json:"type_depot,omitempty"`
	Statuses        []string `json:"statut,omitempty"`
	Natures         []string `json:"nature,omitempty"`
	Categories      []string `json:"categorie,omitempty"`
	Communities     []string `json:"communaute,omitempty"`
	Sexes           []string `json:"sexe,omitempty"`
	PopulationTypes []string `json:"type_population,omitempty"`
	Year            int      `json:"annee,omitempty"`
	Quarter         string   `json:"trimestre,omitempty"`
}

// Sets returns the membership constraints keyed by field
func (s Selection) Sets() map[domain.Field][]string {
	return map[domain.Field][]string{
		domain.FieldDepositType:    s.DepositTypes,
		domain.FieldStatus:         s.Statuses,
		domain.FieldNature:         s.Natures,
		domain.FieldCategory:       s.Categories,
		domain.FieldCommunity:      s.Communities,
		domain.FieldSex:            s.Sexes,
		domain.FieldPopulationType: s.PopulationTypes,
	}
}

// Periodic reports whether the selection constrains the intake period
func (s Selection) Periodic() bool {
	return s.Year != 0 || s.Quarter != ""
}

// Filter keeps the records matching every constraint of sel, in input order
func Filter(records []domain.Grievance, sel Selection) []domain.Grievance {
	type constraint struct {
		field   domain.Field
		allowed map[string]struct{}
	}
	var constraints []constraint
	for field, values := range sel.Sets() {
		if values == nil {
			continue
		}
		allowed := make(map[string]struct{}, len(values))
		for _, v := range values {
			allowed[v] = struct{}{}
		}
		constraints = append(constraints, constraint{field: field, allowed: allowed})
	}

	out := make([]domain.Grievance, 0, len(records))
	for _, g := range records {
		if sel.Periodic() && !g.Dated() {
			continue
		}
		if sel.Year != 0 && g.Year != sel.Year {
			continue
		}
		if sel.Quarter != "" && g.Quarter != sel.Quarter {
			continue
		}
		keep := true
		for _, c := range constraints {
			if _, ok := c.allowed[g.Value(c.field)]; !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, g)
		}
	}
	return out
}

// FilterOptions lists the choices offered for each filter
type FilterOptions struct {
	Values   map[domain.Field][]string `json:"values"`
	Years    []int                     `json:"annees"`
	Quarters []string                  `json:"trimestres"`
}

// Options collects the distinct non-blank values of every categorical field
// in first-encounter order, plus the sorted years and quarters.
func Options(records []domain.Grievance) FilterOptions {
	opts := FilterOptions{Values: make(map[domain.Field][]string)}
	seen := make(map[domain.Field]map[string]struct{})
	years := make(map[int]struct{})
	quarters := make(map[string]struct{})

	for _, g := range records {
		for _, f := range domain.CategoricalFields {
			v := g.Value(f)
			if v == "" {
				continue
			}
			if seen[f] == nil {
				seen[f] = make(map[string]struct{})
			}
			if _, ok := seen[f][v]; ok {
				continue
			}
			seen[f][v] = struct{}{}
			opts.Values[f] = append(opts.Values[f], v)
		}
		if g.Dated() {
			years[g.Year] = struct{}{}
			quarters[g.Quarter] = struct{}{}
		}
	}

	for y := range years {
		opts.Years = append(opts.Years, y)
	}
	sort.Ints(opts.Years)
	for q := range quarters {
		opts.Quarters = append(opts.Quarters, q)
	}
	sort.Strings(opts.Quarters)
	return opts
}
