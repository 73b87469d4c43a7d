package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"griefpulse/internal/charts"
	apierrors "griefpulse/internal/errors"
	"griefpulse/internal/exporter"
	"griefpulse/internal/grievance"
	"griefpulse/internal/services"
)

// DashboardService is what the handlers need from services.DashboardService
type DashboardService interface {
	Dataset(ctx context.Context, id string) (*services.Dataset, error)
	Build(ctx context.Context, id string, sel grievance.Selection) (*services.Dashboard, error)
	RenderChart(ctx context.Context, d *services.Dashboard, spec services.ChartSpec, f charts.Format) ([]byte, error)
	Charts(ctx context.Context, d *services.Dashboard, f charts.Format) (map[string][]byte, error)
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// uploadExtensions are the workbook formats accepted by POST /datasets
var uploadExtensions = map[string]bool{".xlsx": true, ".xlsm": true, ".xls": true, ".csv": true}

// DashboardHandler serves the JSON API, chart images and exports
type DashboardHandler struct {
	service        DashboardService
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewDashboardHandler creates the handler
func NewDashboardHandler(service DashboardService, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("handler", "dashboard")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the /api/datasets/{id} routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{id}", func(r chi.Router) {
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/summary", h.Summary)
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/options", h.Options)
		r.Get("/charts/{chart}.{format}", h.Chart)
		r.Get("/export.csv", h.ExportCSV)
		r.Get("/export.xlsx", h.ExportWorkbook)
	})
	return r
}

// build parses the selection and builds the dashboard, answering the
// request itself on failure.
func (h *DashboardHandler) build(w http.ResponseWriter, r *http.Request) (*services.Dashboard, bool) {
	id := chi.URLParam(r, "id")
	sel, err := ParseSelection(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	d, err := h.service.Build(r.Context(), id, sel)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err, id))
		return nil, false
	}
	return d, true
}

// Summary handles GET /api/datasets/{id}/summary
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	d, ok := h.build(w, r)
	if !ok {
		return
	}
	w.Header().Set("X-Dataset-Fingerprint", d.Fingerprint)
	render.JSON(w, r, d)
}

// Options handles GET /api/datasets/{id}/options
func (h *DashboardHandler) Options(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ds, err := h.service.Dataset(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err, id))
		return
	}

	etag := `"` + ds.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	render.JSON(w, r, ds)
}

// Chart handles GET /api/datasets/{id}/charts/{chart}.{svg|png}
func (h *DashboardHandler) Chart(w http.ResponseWriter, r *http.Request) {
	format, err := charts.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "svg ou png"))
		return
	}
	spec, found := services.LookupChart(chi.URLParam(r, "chart"))
	if !found {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("chart"))
		return
	}

	d, ok := h.build(w, r)
	if !ok {
		return
	}
	data, err := h.service.RenderChart(r.Context(), d, spec, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err, d.DatasetID))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// ExportCSV handles GET /api/datasets/{id}/export.csv
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	d, ok := h.build(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := exporter.WriteCSV(&buf, d.Records, exporter.WriteOptions{BOMPrefix: true}); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("export csv: %w", err))
		return
	}
	h.attach(w, "text/csv; charset=utf-8", exportName("csv"), buf.Bytes())
}

// ExportWorkbook handles GET /api/datasets/{id}/export.xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	d, ok := h.build(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := exporter.WriteSummaryWorkbook(&buf, d.Summary()); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("export xlsx: %w", err))
		return
	}
	h.attach(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", exportName("xlsx"), buf.Bytes())
}

func (h *DashboardHandler) attach(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

func exportName(ext string) string {
	return fmt.Sprintf("griefs-%s.%s", time.Now().Format("20060102-150405"), ext)
}

// Upload handles POST /datasets. Browsers are redirected to the new
// dataset page; API clients get {"id": ...}.
func (h *DashboardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.PayloadTooLarge(h.maxUploadBytes))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "un fichier .xlsx, .xls ou .csv est requis"))
		return
	}
	defer file.Close()

	if !uploadExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "format accepté : .xlsx, .xls ou .csv"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		h.errorHandler.HandleError(w, r, apierrors.PayloadTooLarge(h.maxUploadBytes))
		return
	}

	id, err := h.service.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err, ""))
		return
	}

	location := "/datasets/" + id
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	}
	w.Header().Set("Location", location)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"id": id, "url": location})
}
