// main package for the vision-speech-service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/vision-speech-service/internal/config"
	"github.com/book-expert/vision-speech-service/internal/core"
	"github.com/book-expert/vision-speech-service/internal/handler"
	"github.com/book-expert/vision-speech-service/internal/metrics"
	"github.com/book-expert/vision-speech-service/internal/objectstore"
	"github.com/book-expert/vision-speech-service/internal/pipeline"
	"github.com/book-expert/vision-speech-service/internal/speech"
	"github.com/book-expert/vision-speech-service/internal/worker"
	"github.com/nats-io/nats.go"
)

const (
	healthCheckTimeout = 10 * time.Second
	shutdownTimeout    = 15 * time.Second
	storeSetupTimeout  = 30 * time.Second
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), "vision-speech-service-bootstrap.log")
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, "vision-speech-service.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, finalLog)
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	var natsConnection *nats.Conn

	if cfg.UsesNATS() {
		conn, err := nats.Connect(cfg.NATS.URL, nats.Name("vision-speech-service"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		defer conn.Drain()

		natsConnection = conn
	}

	store, err := newObjectStore(ctx, cfg, natsConnection)
	if err != nil {
		return err
	}

	synthesizer := speech.NewAzureSynthesizer(cfg.Speech)
	checkSpeechService(ctx, synthesizer, log)

	serviceMetrics := metrics.New()
	service := pipeline.New(synthesizer, store, serviceMetrics, log, pipeline.Options{
		ScratchDir:      cfg.Paths.ScratchDir,
		BlobName:        cfg.Storage.BlobName,
		UniqueBlobNames: cfg.Storage.UniqueBlobNames,
	})

	errChan := make(chan error, 2)

	if cfg.NATS.WorkerEnabled {
		natsWorker := worker.NewNatsWorker(
			natsConnection, cfg.NATS.VisionAnalysisSubject, service, serviceMetrics, log)

		go func() {
			errChan <- natsWorker.Run(ctx)
		}()
	}

	server := handler.NewServer(handler.New(service, serviceMetrics, log), serviceMetrics, log, cfg.Server)

	go func() {
		startErr := server.Start(cfg.Server.Address)
		if startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server failed: %w", startErr)
		}
	}()

	log.System("Vision-Speech-Service initialized. Listening on %s, storing to %s/%s (%s backend).",
		cfg.Server.Address, cfg.Storage.Container, cfg.Storage.BlobName, cfg.Storage.Backend)

	var runErr error

	select {
	case <-ctx.Done():
		log.System("Shutdown signal received.")
	case runErr = <-errChan:
		log.Error("Service component stopped: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		log.Error("Failed to shut down http server: %v", shutdownErr)
	}

	return runErr
}

func newObjectStore(ctx context.Context, cfg *config.Config, natsConnection *nats.Conn) (core.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendAzure:
		setupCtx, cancel := context.WithTimeout(ctx, storeSetupTimeout)
		defer cancel()

		store, err := objectstore.NewAzureBlobStore(setupCtx, cfg.Storage.ConnectionString, cfg.Storage.Container)
		if err != nil {
			return nil, fmt.Errorf("failed to set up azure blob store: %w", err)
		}

		return store, nil
	default:
		jetstreamContext, err := natsConnection.JetStream()
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		store, err := objectstore.NewNatsObjectStore(jetstreamContext, cfg.Storage.Container)
		if err != nil {
			return nil, fmt.Errorf("failed to set up nats object store: %w", err)
		}

		return store, nil
	}
}

// checkSpeechService logs whether the speech credentials work. A failure does not stop startup.
func checkSpeechService(ctx context.Context, synthesizer *speech.AzureSynthesizer, log *logger.Logger) {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	err := synthesizer.HealthCheck(checkCtx)
	if err != nil {
		log.Warn("Speech service health check failed: %v", err)

		return
	}

	log.Info("Speech service is healthy.")
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
