package http

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "griefpulse/internal/errors"
	"griefpulse/internal/grievance"
	"griefpulse/pkg/contracts/domain"
)

// FilterParam binds a repeatable query parameter to a grievance field
type FilterParam struct {
	Param string
	Field domain.Field
	Label string
}

// FilterParams lists the membership filters in form order
var FilterParams = []FilterParam{
	{Param: "type_depot", Field: domain.FieldDepositType, Label: "Type de dépôt"},
	{Param: "statut", Field: domain.FieldStatus, Label: "Statut de traitement"},
	{Param: "nature", Field: domain.FieldNature, Label: "Nature de la plainte"},
	{Param: "categorie", Field: domain.FieldCategory, Label: "Catégorie"},
	{Param: "communaute", Field: domain.FieldCommunity, Label: "Communauté"},
	{Param: "sexe", Field: domain.FieldSex, Label: "Sexe"},
	{Param: "type_population", Field: domain.FieldPopulationType, Label: "Type de population"},
}

var quarterPattern = regexp.MustCompile(`^\d{4}Q[1-4]$`)

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("quarter", func(fl validator.FieldLevel) bool {
		return quarterPattern.MatchString(fl.Field().String())
	})
	return v
}()

type periodQuery struct {
	Year    int    `validate:"omitempty,min=1900,max=2100"`
	Quarter string `validate:"omitempty,quarter"`
}

// SelectionValues returns a pointer to the set of sel bound to field
func SelectionValues(sel *grievance.Selection, field domain.Field) *[]string {
	switch field {
	case domain.FieldDepositType:
		return &sel.DepositTypes
	case domain.FieldStatus:
		return &sel.Statuses
	case domain.FieldNature:
		return &sel.Natures
	case domain.FieldCategory:
		return &sel.Categories
	case domain.FieldCommunity:
		return &sel.Communities
	case domain.FieldSex:
		return &sel.Sexes
	case domain.FieldPopulationType:
		return &sel.PopulationTypes
	}
	return nil
}

// ParseSelection reads filters from the query string. An absent parameter
// leaves its field unconstrained; a parameter present only with blank
// values selects nothing.
func ParseSelection(r *http.Request) (grievance.Selection, error) {
	return SelectionFromValues(r.URL.Query())
}

// SelectionFromValues is ParseSelection on already parsed values
func SelectionFromValues(q url.Values) (grievance.Selection, error) {
	var sel grievance.Selection
	for _, p := range FilterParams {
		raw, present := q[p.Param]
		if !present {
			continue
		}
		values := make([]string, 0, len(raw))
		for _, v := range raw {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		*SelectionValues(&sel, p.Field) = values
	}

	var period periodQuery
	var errs []apierrors.ValidationError
	if raw := strings.TrimSpace(q.Get("annee")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, apierrors.ValidationError{Field: "annee", Message: "doit être une année"})
		}
		period.Year = year
	}
	period.Quarter = strings.ToUpper(strings.TrimSpace(q.Get("trimestre")))

	if err := validate.Struct(period); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs = append(errs, fieldError(fe))
			}
		}
	}
	if len(errs) > 0 {
		return grievance.Selection{}, apierrors.NewValidationErrors(errs)
	}

	sel.Year = period.Year
	sel.Quarter = period.Quarter
	return sel, nil
}

// EncodeSelection is the inverse of SelectionFromValues
func EncodeSelection(sel grievance.Selection) url.Values {
	q := url.Values{}
	for _, p := range FilterParams {
		values := *SelectionValues(&sel, p.Field)
		if values == nil {
			continue
		}
		if len(values) == 0 {
			q[p.Param] = []string{""}
			continue
		}
		q[p.Param] = append([]string(nil), values...)
	}
	if sel.Year != 0 {
		q.Set("annee", strconv.Itoa(sel.Year))
	}
	if sel.Quarter != "" {
		q.Set("trimestre", sel.Quarter)
	}
	return q
}

func fieldError(fe validator.FieldError) apierrors.ValidationError {
	switch fe.StructField() {
	case "Year":
		return apierrors.ValidationError{Field: "annee", Message: "doit être comprise entre 1900 et 2100"}
	case "Quarter":
		return apierrors.ValidationError{Field: "trimestre", Message: "doit être de la forme 2024Q1"}
	}
	return apierrors.ValidationError{Field: fe.Field(), Message: fe.Error()}
}
