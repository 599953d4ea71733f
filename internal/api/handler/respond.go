package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"timetrack.service/internal/core/model"
	"timetrack.service/internal/core/tracking"
	"timetrack.service/internal/ports/repository"
)

// ErrInvalidDate is returned for date query parameters not in model.DateLayout.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		log.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tracking.ErrNoUserSignedIn):
		return http.StatusUnauthorized
	case tracking.IsStateError(err), errors.Is(err, tracking.ErrStoreClosed):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidPauseType), errors.Is(err, ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracking.ErrPersistenceFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseDay parses raw in loc, defaulting to now when raw is empty.
func parseDay(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.In(loc), nil
	}
	t, err := time.ParseInLocation(model.DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t.Add(12 * time.Hour), nil
}

func parseRange(r *http.Request) (model.DateRange, error) {
	rng := model.DateRange{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	for _, raw := range []string{rng.From, rng.To} {
		if raw == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, raw); err != nil {
			return model.DateRange{}, ErrInvalidDate
		}
	}
	return rng, nil
}
