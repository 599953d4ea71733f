package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	core "timetrack.service/internal/core"
	"timetrack.service/internal/core/model"
	"timetrack.service/pkg/telemetry"
)

// ReportHandler serves history, statistics and CSV exports.
type ReportHandler struct {
	Service *core.ReportService
	// Now defaults to time.Now and resolves a missing date parameter.
	Now func() time.Time
}

func (h *ReportHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *ReportHandler) Entries(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.Service.Entries(r.Context(), telemetry.GetUserIDFromContext(r.Context()), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *ReportHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.Service.DeleteEntry(r.Context(), telemetry.GetUserIDFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReportHandler) Daily(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query().Get("date"), h.Service.Location(), h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.Service.Daily(r.Context(), telemetry.GetUserIDFromContext(r.Context()), day)
	respond(w, r, stats, err)
}

func (h *ReportHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query().Get("date"), h.Service.Location(), h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.Service.Weekly(r.Context(), telemetry.GetUserIDFromContext(r.Context()), day)
	respond(w, r, stats, err)
}

func (h *ReportHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query().Get("date"), h.Service.Location(), h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.Service.Monthly(r.Context(), telemetry.GetUserIDFromContext(r.Context()), day)
	respond(w, r, stats, err)
}

func (h *ReportHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dist, err := h.Service.Distribution(r.Context(), telemetry.GetUserIDFromContext(r.Context()), rng)
	respond(w, r, dist, err)
}

// ExportCSV renders into a buffer first so a failed query still yields a JSON error.
func (h *ReportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.Service.ExportCSV(r.Context(), &buf, telemetry.GetUserIDFromContext(r.Context()), rng); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportName(rng)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func exportName(rng model.DateRange) string {
	name := "time-entries"
	if rng.From != "" {
		name += "_" + rng.From
	}
	if rng.To != "" {
		name += "_" + rng.To
	}
	return name + ".csv"
}
