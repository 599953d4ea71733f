package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"timetrack.service/internal/config"
	"timetrack.service/internal/ports/repository"
	"timetrack.service/internal/worker"
	"timetrack.service/internal/worker/labor"
	"timetrack.service/internal/worker/legacyapi"
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

	if cfg.StorageBackend == config.BackendMemory {
		log.Fatal().Msg("The labor worker needs a shared SQL backend")
	}

	shutdownTracer, err := telemetry.InitTracer("labor-worker", cfg.TraceExporter, cfg.OTLPEndpoint)
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

	awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	processor := labor.NewProcessor(repo, legacyapi.NewHTTPClient(cfg.LegacyAPIURL))
	app := worker.NewWorker(sqs.NewFromConfig(awsCfg), cfg.LaborSQSQueueURL, processor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Worker stopped with error")
	}
	log.Info().Msg("Worker exited gracefully")
}
