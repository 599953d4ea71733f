// Entry point for REST API
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"timetrack.service/internal/api"
	"timetrack.service/internal/config"
	core "timetrack.service/internal/core"
	"timetrack.service/internal/core/calc"
	"timetrack.service/internal/core/tracking"
	"timetrack.service/internal/ports/messaging"
	"timetrack.service/internal/ports/repository"
	"timetrack.service/pkg/aws"
	"timetrack.service/pkg/logger"
	"timetrack.service/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	logger.Setup(cfg.IsLocalDev)

	shutdownTracer, err := telemetry.InitTracer("timetrack-api", cfg.TraceExporter, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	repo, closeRepo, err := repository.Open(context.Background(), cfg, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening repository")
	}
	defer func() {
		_ = closeRepo()
	}()

	loc := cfg.Location()
	opts := []tracking.Option{
		tracking.WithLocation(loc),
		tracking.WithTickInterval(cfg.TickInterval),
	}
	if cfg.PublishEvents {
		awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("unable to load SDK config")
		}
		producer := messaging.NewSQSProducer(sqs.NewFromConfig(awsCfg), cfg.LaborSQSQueueURL, cfg.EmailSQSQueueURL)
		opts = append(opts, tracking.WithPublisher(producer))
	}

	registry := tracking.NewRegistry(repo, opts...)
	defer registry.Close()
	reports := core.NewReportService(repo, registry, loc, cfg.Locale)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           api.NewRouter(registry, reports),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.ServerPort).
			Str("backend", cfg.StorageBackend).
			Str("timezone", loc.String()).
			Str("locale", calc.SupportedLocale(cfg.Locale).String()).
			Msg("API Service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Open SSE streams end when the registry closes their stores.
	registry.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
