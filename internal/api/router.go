package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"timetrack.service/internal/api/handler"
	core "timetrack.service/internal/core"
	"timetrack.service/internal/core/tracking"
	"timetrack.service/pkg/logger"
	"timetrack.service/pkg/telemetry"
)

// UserHeader carries the signed-in user's ID.
const UserHeader = "X-User-ID"

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(registry *tracking.Registry, reports *core.ReportService) http.Handler {
	trackingHandler := &handler.TrackingHandler{Registry: registry}
	reportHandler := &handler.ReportHandler{Service: reports}

	r := mux.NewRouter()
	r.Use(requestLogger)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	user := api.NewRoute().Subrouter()
	user.Use(requireUser)

	user.HandleFunc("/tracking/state", trackingHandler.State).Methods(http.MethodGet)
	user.HandleFunc("/tracking/stream", trackingHandler.Stream).Methods(http.MethodGet)
	user.HandleFunc("/tracking/clock-in", trackingHandler.ClockIn).Methods(http.MethodPost)
	user.HandleFunc("/tracking/clock-out", trackingHandler.ClockOut).Methods(http.MethodPost)
	user.HandleFunc("/tracking/pauses", trackingHandler.StartPause).Methods(http.MethodPost)
	user.HandleFunc("/tracking/pauses/end", trackingHandler.EndPause).Methods(http.MethodPost)
	user.HandleFunc("/tracking/refresh", trackingHandler.Refresh).Methods(http.MethodPost)
	user.HandleFunc("/tracking/session", trackingHandler.ReleaseSession).Methods(http.MethodDelete)

	user.HandleFunc("/entries", reportHandler.Entries).Methods(http.MethodGet)
	user.HandleFunc("/entries/{id}", reportHandler.DeleteEntry).Methods(http.MethodDelete)
	user.HandleFunc("/stats/daily", reportHandler.Daily).Methods(http.MethodGet)
	user.HandleFunc("/stats/weekly", reportHandler.Weekly).Methods(http.MethodGet)
	user.HandleFunc("/stats/monthly", reportHandler.Monthly).Methods(http.MethodGet)
	user.HandleFunc("/stats/distribution", reportHandler.Distribution).Methods(http.MethodGet)
	user.HandleFunc("/export.csv", reportHandler.ExportCSV).Methods(http.MethodGet)

	return otelhttp.NewHandler(r, "timetrack-api")
}

// requireUser rejects requests without a user header and tags the request
// context, span and logger with the user ID.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserHeader)
		if userID == "" {
			http.Error(w, tracking.ErrNoUserSignedIn.Error(), http.StatusUnauthorized)
			return
		}
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("app.user_id", userID))
		ctx := telemetry.WithUserID(r.Context(), userID)
		ctx = logger.WithUser(ctx, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.EnrichContextWithLogger(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
		log.Ctx(ctx).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}
