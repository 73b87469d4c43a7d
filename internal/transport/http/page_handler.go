package http

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"griefpulse/internal/charts"
	apierrors "griefpulse/internal/errors"
	"griefpulse/internal/exporter"
	"griefpulse/internal/grievance"
	"griefpulse/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"percent": func(part, total int) string {
		if total == 0 {
			return "0 %"
		}
		return strconv.FormatFloat(float64(part)*100/float64(total), 'f', 1, 64) + " %"
	},
}).ParseFS(templateFS, "templates/dashboard.html"))

type optionView struct {
	Value    string
	Selected bool
}

type filterView struct {
	Param   string
	Label   string
	Options []optionView
}

type chartView struct {
	Name  string
	Title string
	Src   template.URL
	PNG   string
}

type pageView struct {
	DatasetID      string
	Dataset        *services.Dataset
	Dashboard      *services.Dashboard
	Filters        []filterView
	Years          []int
	Year           int
	Quarters       []string
	Quarter        string
	Charts         []chartView
	PreviewHeaders []string
	PreviewRows    [][]string
	Error          string
	Notices        []services.Notice
	Query          template.URL
	MaxUploadBytes int64
}

// PageHandler renders the HTML dashboard
type PageHandler struct {
	service        DashboardService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewPageHandler creates the handler
func NewPageHandler(service DashboardService, maxUploadBytes int64, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("handler", "page")),
	}
}

// Dashboard handles GET / and GET /datasets/{id}.
// Any failure is shown on the page in place of the charts.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if id == "" {
		id = services.DefaultDatasetID
	}
	view := pageView{DatasetID: id, MaxUploadBytes: h.maxUploadBytes}

	sel, err := ParseSelection(r)
	if err != nil {
		h.render(w, r, http.StatusBadRequest, view.fail(err))
		return
	}
	view.Query = template.URL(EncodeSelection(sel).Encode())
	view.Year, view.Quarter = sel.Year, sel.Quarter

	ds, err := h.service.Dataset(ctx, id)
	if err != nil {
		apiErr := toAPIError(err, id)
		h.render(w, r, statusOf(apiErr), view.fail(apiErr))
		return
	}
	view.Dataset = ds
	view.setFilters(ds.Options, sel)

	d, err := h.service.Build(ctx, id, sel)
	if err != nil {
		apiErr := toAPIError(err, id)
		h.render(w, r, statusOf(apiErr), view.fail(apiErr))
		return
	}
	view.Dashboard = d
	view.Notices = d.Notices

	rendered, err := h.service.Charts(ctx, d, charts.FormatSVG)
	if err != nil {
		h.logger.ErrorContext(ctx, "chart rendering failed", slog.String("error", err.Error()))
		view.Notices = append(view.Notices, services.Notice{Level: services.NoticeWarning, Message: "Les graphiques n'ont pas pu être générés."})
	}
	for _, name := range d.Charts {
		svg, ok := rendered[name]
		if !ok {
			continue
		}
		spec, _ := services.LookupChart(name)
		view.Charts = append(view.Charts, chartView{
			Name:  name,
			Title: spec.Title,
			Src:   template.URL("data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg)),
			PNG:   "/api/datasets/" + id + "/charts/" + name + ".png?" + string(view.Query),
		})
	}

	view.PreviewHeaders = exporter.Headers(exporter.DefaultFields)
	for _, g := range d.Preview {
		view.PreviewRows = append(view.PreviewRows, exporter.Row(g, exporter.DefaultFields))
	}

	h.render(w, r, http.StatusOK, view)
}

func (v pageView) fail(err error) pageView {
	v.Error = userMessage(err)
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == apierrors.CodeDatasetMissingColumn {
		if missing, ok := apiErr.Details.([]string); ok {
			v.Notices = append(v.Notices, services.Notice{
				Level:   services.NoticeInfo,
				Message: "Colonnes attendues manquantes : " + joinQuoted(missing),
			})
		}
	}
	return v
}

func (v *pageView) setFilters(opts grievance.FilterOptions, sel grievance.Selection) {
	for _, p := range FilterParams {
		values := opts.Values[p.Field]
		if len(values) == 0 {
			continue
		}
		chosen := *SelectionValues(&sel, p.Field)
		picked := make(map[string]bool, len(chosen))
		for _, c := range chosen {
			picked[c] = true
		}
		fv := filterView{Param: p.Param, Label: p.Label}
		for _, val := range values {
			// an unconstrained filter shows everything selected
			fv.Options = append(fv.Options, optionView{Value: val, Selected: chosen == nil || picked[val]})
		}
		v.Filters = append(v.Filters, fv)
	}
	v.Years = opts.Years
	v.Quarters = opts.Quarters
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, view pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		h.logger.ErrorContext(r.Context(), "template execution failed", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func joinQuoted(values []string) string {
	var b bytes.Buffer
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(v))
	}
	return b.String()
}
