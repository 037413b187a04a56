package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formos/internal/config"
	"formos/internal/engine"
	"formos/internal/extract"
	"formos/internal/handler"
	"formos/internal/mention"
	"formos/internal/repository/postgres"
	"formos/internal/router"
	"formos/internal/service"
	s3storage "formos/internal/storage/s3"
	"formos/internal/transform"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	schemaRepo := postgres.NewSchemaRepo(db)
	jobRepo := postgres.NewJobRepo(db)
	fileRepo := postgres.NewFileMetaRepo(db)

	// Initialize storage and endpoint clients
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	extractor := extract.NewClient(&cfg.Extractor)
	transformer := transform.NewClient(&cfg.Transformer)

	// Initialize services
	resolver := mention.NewResolver()
	executor := engine.NewExecutor(transformer, cfg.Engine.EmptySentinels)
	schemaSvc := service.NewSchemaService(schemaRepo, resolver)
	fileSvc := service.NewFileService(fileRepo, s3Client, &cfg.S3)
	jobSvc := service.NewJobService(jobRepo, schemaRepo, fileRepo, s3Client,
		extractor, resolver, executor, cfg.Engine.ConfidenceThreshold)

	// Initialize handlers
	schemaH := handler.NewSchemaHandler(schemaSvc)
	jobH := handler.NewJobHandler(jobSvc)
	fileH := handler.NewFileHandler(fileSvc)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg.CORS.AllowedOrigins, schemaH, jobH, fileH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the job queue worker
	worker := service.NewJobQueueWorker(jobRepo, jobSvc, service.JobQueueConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		Concurrency:  cfg.Queue.Concurrency,
	})
	workerDone := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(workerDone)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		stop()
		<-workerDone
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-workerDone

	return nil
}
