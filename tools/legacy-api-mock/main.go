package main

import (
	"encoding/json"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"timetrack.service/internal/ports/messaging"
)

func shiftHandler(failureRate float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event messaging.ShiftCompletedEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		if rand.Float64() < failureRate {
			log.Warn().Str("time_entry_id", event.TimeEntryID).Msg("Simulating legacy outage")
			http.Error(w, "Unavailable", http.StatusServiceUnavailable)
			return
		}

		log.Info().
			Str("time_entry_id", event.TimeEntryID).
			Str("user_id", event.UserID).
			Str("date", event.Date).
			Float64("total_hours", event.TotalHours).
			Int64("pause_minutes", event.PauseMinutes).
			Msg("Received shift")
		w.WriteHeader(http.StatusOK)
	}
}

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	failureRate := flag.Float64("failure-rate", 0, "fraction of requests answered with 503")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	http.HandleFunc("/", shiftHandler(*failureRate))
	log.Info().Str("addr", *addr).Float64("failure_rate", *failureRate).Msg("Legacy API mock server starting")
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
