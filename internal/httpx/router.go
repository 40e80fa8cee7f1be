package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/envidicy/insights/internal/config"
	"github.com/envidicy/insights/internal/ingest"
	"github.com/envidicy/insights/internal/metrics"
	"github.com/envidicy/insights/internal/report"
	"github.com/envidicy/insights/internal/store"
	"github.com/envidicy/insights/internal/telemetry"
	"github.com/envidicy/insights/internal/utils"
)

type handlers struct {
	log  *slog.Logger
	cfg  config.Config
	ing  *ingest.Ingestor
	mSvc *metrics.Service
}

func NewRouter(log *slog.Logger, cfg config.Config, ing *ingest.Ingestor, mSvc *metrics.Service, tm *telemetry.Metrics) http.Handler {
	h := &handlers{log: log, cfg: cfg, ing: ing, mSvc: mSvc}

	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", utils.HeaderSession, utils.HeaderRequestID},
		ExposedHeaders: []string{utils.HeaderRequestID},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Handle("/metrics", tm.Handler())

	mux.Route("/api", func(r chi.Router) {
		r.Use(utils.Session)

		r.Get("/fields", h.fields)
		r.Post("/datasets", h.upload)
		r.Post("/datasets/import", h.importURL)
		r.Get("/datasets/current", h.current)
		r.Delete("/datasets/current", h.clear)

		r.Get("/summary", h.summary)
		r.Get("/breakdown", h.breakdown)
		r.Get("/series", h.series)
		r.Get("/rows", h.rows)
		r.Get("/dashboard", h.dashboard)
	})

	return mux
}

func (h *handlers) fields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"required": []ingest.Field{ingest.FieldDate},
		"fields":   ingest.Synonyms,
	})
}

// upload accepts a multipart "file" part or a raw text body (name from ?name=).
func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+1<<20)

	var (
		body io.Reader = r.Body
		name           = r.URL.Query().Get("name")
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "multipart field \"file\" required")
			return
		}
		defer f.Close()
		body = f
		if name == "" {
			name = hdr.Filename
		}
	}
	if name == "" {
		name = "upload.csv"
	}

	out, err := h.ing.Ingest(r.Context(), utils.SessionFrom(r.Context()), name, body)
	h.respondIngest(w, out, err)
}

func (h *handlers) importURL(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	out, err := h.ing.ImportURL(r.Context(), utils.SessionFrom(r.Context()), u)
	switch {
	case errors.Is(err, ingest.ErrImport):
		writeError(w, http.StatusBadRequest, ingest.ErrImport.Error())
		return
	case errors.Is(err, ingest.ErrFetch):
		// upstream bodies stay in the log
		writeError(w, http.StatusBadGateway, ingest.ErrFetch.Error())
		return
	}
	h.respondIngest(w, out, err)
}

func (h *handlers) respondIngest(w http.ResponseWriter, out *ingest.Outcome, err error) {
	var ie *ingest.Error
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"status": out.Status, "dataset": out.Dataset.Info()})
	case errors.As(err, &ie):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"status": ie.Message, "error": ie.Err.Error()})
	case errors.Is(err, store.ErrStale):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ingest.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		h.log.Error("ingest failed", slog.String("err", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": ingest.StatusMessage(err), "error": err.Error()})
	}
}

func (h *handlers) current(w http.ResponseWriter, r *http.Request) {
	ds, err := h.mSvc.Dataset(r.Context(), utils.SessionFrom(r.Context()))
	if h.queryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, ds.Info())
}

func (h *handlers) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.ing.Clear(r.Context(), utils.SessionFrom(r.Context())); err != nil {
		h.queryErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.mSvc.Summary(r.Context(), utils.SessionFrom(r.Context()))
	if h.queryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) breakdown(w http.ResponseWriter, r *http.Request) {
	b, err := h.mSvc.Breakdown(r.Context(), utils.SessionFrom(r.Context()), r.URL.Query())
	if h.queryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handlers) series(w http.ResponseWriter, r *http.Request) {
	pts, err := h.mSvc.Series(r.Context(), utils.SessionFrom(r.Context()))
	if h.queryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, pts)
}

func (h *handlers) rows(w http.ResponseWriter, r *http.Request) {
	rows, err := h.mSvc.Rows(r.Context(), utils.SessionFrom(r.Context()), r.URL.Query())
	if h.queryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// dashboard never 404s: an empty session renders the empty state.
func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		currency = h.cfg.Currency
	}
	ds, err := h.mSvc.Dataset(r.Context(), utils.SessionFrom(r.Context()))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.queryErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Build(ds, currency))
}

func (h *handlers) queryErr(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("query failed", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeJSON encodes before writing the header so an unencodable value (a
// total that overflowed to +Inf) becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", " ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encode response", slog.String("err", err.Error()))
		buf.Reset()
		buf.WriteString(`{"error": "internal error"}` + "\n")
		code = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
