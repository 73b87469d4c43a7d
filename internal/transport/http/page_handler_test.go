package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"griefpulse/internal/charts"
	"griefpulse/internal/grievance"
	"griefpulse/internal/services"
)

func TestPageHandler_Dashboard(t *testing.T) {
	r := setupRouter(newRealService(t))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/?annee=2024", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Tableau de bord des griefs")
	assert.Contains(t, body, `<option value="2024" selected>2024</option>`)
	assert.Contains(t, body, `<option value="2023">2023</option>`)
	assert.Contains(t, body, "data:image/svg+xml;base64,")
	assert.Contains(t, body, `id="chart-statut"`)
	assert.Contains(t, body, "/api/datasets/default/export.csv?annee=2024")
	assert.Contains(t, body, "<th>Statut_traitement</th>")
	// unconstrained filters keep every choice selected
	assert.Contains(t, body, `<option value="Foncier" selected>Foncier</option>`)
}

func TestPageHandler_EmptySelectionShowsMessage(t *testing.T) {
	r := setupRouter(newRealService(t))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/?statut=", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Aucun grief ne correspond aux filtres sélectionnés.")
	assert.NotContains(t, body, "data:image/svg+xml")
	// the emptied filter is shown with nothing selected
	assert.Contains(t, body, `<option value="En cours">En cours</option>`)
}

func TestPageHandler_MissingColumns(t *testing.T) {
	service := &MockDashboardService{}
	service.On("Dataset", mock.Anything, "default").Return(&services.Dataset{ID: "default", Source: "griefs.xlsx"}, nil)
	service.On("Build", mock.Anything, "default", grievance.Selection{}).
		Return(nil, &grievance.MissingColumnsError{Missing: []string{"Categorie", "Nature_plainte"}})

	rec := serve(setupRouter(service), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Colonnes attendues manquantes")
	assert.Contains(t, body, "Categorie")
	service.AssertNotCalled(t, "Charts", mock.Anything, mock.Anything, mock.Anything)
}

func TestPageHandler_LoadFailure(t *testing.T) {
	service := &MockDashboardService{}
	service.On("Dataset", mock.Anything, "default").Return(nil, errors.Join(services.ErrLoadFailed, errors.New("fichier illisible")))

	rec := serve(setupRouter(service), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "fichier illisible")
}

func TestPageHandler_ChartFailureKeepsPage(t *testing.T) {
	d := &services.Dashboard{DatasetID: "abc", Total: 1, Filtered: 1, Charts: []string{"statut"}}
	service := &MockDashboardService{}
	service.On("Dataset", mock.Anything, "abc").Return(&services.Dataset{ID: "abc"}, nil)
	service.On("Build", mock.Anything, "abc", grievance.Selection{}).Return(d, nil)
	service.On("Charts", mock.Anything, d, charts.FormatSVG).Return(map[string][]byte{}, errors.New("boom"))

	rec := serve(setupRouter(service), httptest.NewRequest(http.MethodGet, "/datasets/abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Les graphiques n&#39;ont pas pu être générés.")
}

func TestPageHandler_InvalidQuery(t *testing.T) {
	rec := serve(setupRouter(&MockDashboardService{}), httptest.NewRequest(http.MethodGet, "/?annee=12", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `role="alert"`))
}
