package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"griefpulse/internal/infrastructure"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	missing := fmt.Errorf("la colonne %q est manquante dans la table", "Categorie")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"context deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"context canceled", context.Canceled, http.StatusGatewayTimeout, TypeTimeout},
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, TypeValidation},
		{"validation", ErrValidation("annee", "must be between 1900 and 2100"), http.StatusBadRequest, TypeValidation},
		{"load failed", DatasetLoadFailed(stderrors.New("Impossible de charger le fichier Excel : boom")), http.StatusBadGateway, TypeDatasetLoadFailed},
		{"missing columns", DatasetMissingColumns(missing, []string{"Categorie"}), http.StatusUnprocessableEntity, TypeDatasetMissingCols},
		{"empty selection", DatasetEmptySelection(stderrors.New("aucun grief")), http.StatusUnprocessableEntity, TypeDatasetEmptySelect},
		{"dataset not found", DatasetNotFound("abc"), http.StatusNotFound, TypeDatasetNotFound},
		{"too large", PayloadTooLarge(10), http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"wrapped api error", fmt.Errorf("handler: %w", ErrNotFound), http.StatusNotFound, TypeNotFound},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewErrorHandler(testLogger(), false)
			req := httptest.NewRequest(http.MethodGet, "/api/datasets/default/summary", nil)
			req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-1"))
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/datasets/default/summary", body["instance"])
			assert.Equal(t, "trace-1", body["trace_id"])
			assert.NotContains(t, body, "stack")
		})
	}
}

func TestHandleErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	NewErrorHandler(testLogger(), false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Zero(t, rec.Body.Len())
}

func TestMissingColumnsDetails(t *testing.T) {
	h := NewErrorHandler(testLogger(), false)
	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		DatasetMissingColumns(stderrors.New("les colonnes manquent"), []string{"Categorie", "Date_reception"}))

	body := decode(t, rec)
	assert.Equal(t, CodeDatasetMissingColumn, body["error_code"])
	assert.Equal(t, []interface{}{"Categorie", "Date_reception"}, body["details"])
	assert.Equal(t, "les colonnes manquent", body["detail"])
}

func TestAPIErrorUnwrap(t *testing.T) {
	cause := stderrors.New("root")
	err := DatasetLoadFailed(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "root", err.Error())

	raw, err2 := json.Marshal(err)
	require.NoError(t, err2)
	assert.NotContains(t, string(raw), "cause")
}

func TestStackInDevelopment(t *testing.T) {
	h := NewErrorHandler(testLogger(), true)
	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), stderrors.New("boom"))
	assert.Contains(t, decode(t, rec), "stack")
}

func TestHandlePanic(t *testing.T) {
	h := NewErrorHandler(testLogger(), false)
	rec := httptest.NewRecorder()
	h.HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/boom", nil), "kaboom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, TypeInternal, body["type"])
	assert.NotContains(t, body, "panic")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := NewErrorHandler(testLogger(), false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, TypeMethodNotAllowed, decode(t, rec)["type"])
}
