package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"griefpulse/internal/charts"
	apierrors "griefpulse/internal/errors"
	"griefpulse/internal/grievance"
	"griefpulse/internal/loader"
	"griefpulse/internal/services"
)

const griefsCSV = `Type_depot,Statut_traitement,Nature_plainte,Categorie,Date_reception,Nb_jour,Communaute,Sexe
Physique,En cours,Foncier,Terres,15/01/2024,10,Kara,F
Téléphone,Achevé,Bruit,Nuisances,20/02/2024,4,Lomé,M
Physique,Non traité,Foncier,Terres,03/04/2024,,Kara,F
Email,Achevé,Emploi,Recrutement,10/05/2023,2,Lomé,M
`

// MockDashboardService is a mock implementation of DashboardService
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Dataset(ctx context.Context, id string) (*services.Dataset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Dataset), args.Error(1)
}

func (m *MockDashboardService) Build(ctx context.Context, id string, sel grievance.Selection) (*services.Dashboard, error) {
	args := m.Called(ctx, id, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Dashboard), args.Error(1)
}

func (m *MockDashboardService) RenderChart(ctx context.Context, d *services.Dashboard, spec services.ChartSpec, f charts.Format) ([]byte, error) {
	args := m.Called(ctx, d, spec, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDashboardService) Charts(ctx context.Context, d *services.Dashboard, f charts.Format) (map[string][]byte, error) {
	args := m.Called(ctx, d, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]byte), args.Error(1)
}

func (m *MockDashboardService) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	args := m.Called(ctx, filename, data)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRealService serves griefsCSV from a temporary file
func newRealService(t *testing.T) *services.DashboardService {
	t.Helper()
	path := filepath.Join(t.TempDir(), "griefs.csv")
	require.NoError(t, os.WriteFile(path, []byte(griefsCSV), 0o600))
	return services.NewDashboardService(services.Options{
		Location:    path,
		DropUndated: true,
		PreviewRows: 3,
		TopN:        5,
	}, loader.New(loader.Options{}, testLogger()), loader.Resolver{}, nil, nil, testLogger())
}

func setupRouter(service DashboardService) chi.Router {
	logger := testLogger()
	errorHandler := apierrors.NewErrorHandler(logger, false)
	api := NewDashboardHandler(service, 1<<10, logger, errorHandler)
	page := NewPageHandler(service, 1<<10, logger)

	r := chi.NewRouter()
	r.Mount("/api/datasets", api.Routes())
	r.Post("/datasets", api.Upload)
	r.Get("/", page.Dashboard)
	r.Get("/datasets/{id}", page.Dashboard)
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestDashboardHandler_Summary(t *testing.T) {
	r := setupRouter(newRealService(t))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/datasets/default/summary?annee=2024&statut=Achev%C3%A9", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.NotEmpty(t, rec.Header().Get("X-Dataset-Fingerprint"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(4), body["total"])
	assert.Equal(t, float64(1), body["filtered"])
	kpis := body["kpis"].(map[string]interface{})
	assert.Equal(t, float64(1), kpis["acheve"])
}

func TestDashboardHandler_SummaryErrors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "empty selection",
			url:        "/api/datasets/default/summary?statut=",
			err:        services.ErrEmptySelection,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apierrors.CodeDatasetEmptySelect,
		},
		{
			name:       "missing columns",
			url:        "/api/datasets/default/summary",
			err:        &grievance.MissingColumnsError{Missing: []string{"Categorie"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apierrors.CodeDatasetMissingColumn,
		},
		{
			name:       "load failure",
			url:        "/api/datasets/default/summary",
			err:        errors.Join(services.ErrLoadFailed, &loader.LoadError{Source: "griefs.xlsx", Err: io.ErrUnexpectedEOF}),
			wantStatus: http.StatusBadGateway,
			wantCode:   apierrors.CodeDatasetLoadFailed,
		},
		{
			name:       "expired upload",
			url:        "/api/datasets/abc/summary",
			err:        services.ErrDatasetNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   apierrors.CodeDatasetNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockDashboardService{}
			service.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := serve(setupRouter(service), httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.wantCode, problem["error_code"])
			assert.Equal(t, float64(tt.wantStatus), problem["status"])
		})
	}
}

func TestDashboardHandler_InvalidQuery(t *testing.T) {
	service := &MockDashboardService{}
	rec := serve(setupRouter(service), httptest.NewRequest(http.MethodGet, "/api/datasets/default/summary?trimestre=2024Q7&annee=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, apierrors.CodeValidationFailed, problem["error_code"])
	assert.Len(t, problem["details"], 2)
	service.AssertNotCalled(t, "Build", mock.Anything, mock.Anything, mock.Anything)
}

func TestDashboardHandler_Options(t *testing.T) {
	r := setupRouter(newRealService(t))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/datasets/default/options", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var body struct {
		Options grievance.FilterOptions `json:"options"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []int{2023, 2024}, body.Options.Years)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/default/options", nil)
	req.Header.Set("If-None-Match", etag)
	rec = serve(r, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestDashboardHandler_Chart(t *testing.T) {
	r := setupRouter(newRealService(t))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/datasets/default/charts/statut.svg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/datasets/default/charts/evolution.png?annee=2024", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/datasets/default/charts/inconnu.svg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/datasets/default/charts/statut.gif", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandler_Exports(t *testing.T) {
	r := setupRouter(newRealService(t))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/datasets/default/export.csv?nature=Foncier", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	body := strings.TrimPrefix(rec.Body.String(), "\ufeff")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	assert.Len(t, lines, 3)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/datasets/default/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func multipartUpload(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestDashboardHandler_Upload(t *testing.T) {
	t.Run("json client", func(t *testing.T) {
		service := &MockDashboardService{}
		service.On("Upload", mock.Anything, "griefs.csv", []byte(griefsCSV[:100])).Return("id-1", nil)

		body, contentType := multipartUpload(t, "griefs.csv", []byte(griefsCSV[:100]))
		req := httptest.NewRequest(http.MethodPost, "/datasets", body)
		req.Header.Set("Content-Type", contentType)
		rec := serve(setupRouter(service), req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/datasets/id-1", rec.Header().Get("Location"))
		assert.JSONEq(t, `{"id":"id-1","url":"/datasets/id-1"}`, rec.Body.String())
		service.AssertExpectations(t)
	})

	t.Run("browser redirect", func(t *testing.T) {
		service := &MockDashboardService{}
		service.On("Upload", mock.Anything, "griefs.xlsx", mock.Anything).Return("id-2", nil)

		body, contentType := multipartUpload(t, "griefs.xlsx", []byte("PK"))
		req := httptest.NewRequest(http.MethodPost, "/datasets", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		rec := serve(setupRouter(service), req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/datasets/id-2", rec.Header().Get("Location"))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		service := &MockDashboardService{}
		body, contentType := multipartUpload(t, "griefs.pdf", []byte("%PDF"))
		req := httptest.NewRequest(http.MethodPost, "/datasets", body)
		req.Header.Set("Content-Type", contentType)
		rec := serve(setupRouter(service), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		service.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("file too large", func(t *testing.T) {
		service := &MockDashboardService{}
		body, contentType := multipartUpload(t, "griefs.csv", bytes.Repeat([]byte("a"), 2<<10))
		req := httptest.NewRequest(http.MethodPost, "/datasets", body)
		req.Header.Set("Content-Type", contentType)
		rec := serve(setupRouter(service), req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, apierrors.CodePayloadTooLarge, decodeProblem(t, rec)["error_code"])
	})

	t.Run("missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("other", "x"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/datasets", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := serve(setupRouter(&MockDashboardService{}), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
