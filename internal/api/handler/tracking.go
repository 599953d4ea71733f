package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"timetrack.service/internal/core/model"
	"timetrack.service/internal/core/tracking"
	"timetrack.service/pkg/telemetry"
)

const streamBuffer = 4

// TrackingHandler exposes the signed-in user's tracking store.
type TrackingHandler struct {
	Registry *tracking.Registry
}

type startPauseRequest struct {
	Type string `json:"type"`
}

func (h *TrackingHandler) store(r *http.Request) (*tracking.Store, error) {
	return h.Registry.Acquire(r.Context(), telemetry.GetUserIDFromContext(r.Context()))
}

func (h *TrackingHandler) State(w http.ResponseWriter, r *http.Request) {
	s, err := h.store(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (h *TrackingHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *tracking.Store) (model.TrackingState, error) {
		return s.ClockIn(r.Context())
	})
}

func (h *TrackingHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *tracking.Store) (model.TrackingState, error) {
		return s.ClockOut(r.Context())
	})
}

func (h *TrackingHandler) StartPause(w http.ResponseWriter, r *http.Request) {
	var req startPauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	pauseType, err := model.ParsePauseType(req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.transition(w, r, func(s *tracking.Store) (model.TrackingState, error) {
		return s.StartPause(r.Context(), pauseType)
	})
}

func (h *TrackingHandler) EndPause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *tracking.Store) (model.TrackingState, error) {
		return s.EndPause(r.Context())
	})
}

func (h *TrackingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *tracking.Store) (model.TrackingState, error) {
		return s.RefreshState(r.Context())
	})
}

// ReleaseSession drops the user's hosted store. Persisted entries are untouched.
func (h *TrackingHandler) ReleaseSession(w http.ResponseWriter, r *http.Request) {
	h.Registry.Release(telemetry.GetUserIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// Stream writes the state as server-sent events: once on connect, then on every
// transition and tick until the client goes away or the store is released.
func (h *TrackingHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s, err := h.store(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates, cancel := s.Subscribe(streamBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, s.State()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, state); err != nil {
				log.Ctx(r.Context()).Debug().Err(err).Msg("Stream client gone")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *TrackingHandler) transition(w http.ResponseWriter, r *http.Request, op func(*tracking.Store) (model.TrackingState, error)) {
	s, err := h.store(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	state, err := op(s)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func writeEvent(w io.Writer, state model.TrackingState) error {
	b, err := json.Marshal(struct {
		model.TrackingState
		SentAt time.Time `json:"sentAt"`
	}{state, time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", b)
	return err
}
