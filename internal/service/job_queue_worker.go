package service

import (
	"context"
	"log"
	"sync"
	"time"

	"formos/internal/port"
)

// JobQueueConfig holds settings for the job queue worker.
type JobQueueConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	Concurrency  int
}

// JobQueueWorker polls for pending extraction jobs and dispatches them for
// processing. It is the only dispatcher: claiming uses row locks, so running
// several workers never processes the same job twice.
type JobQueueWorker struct {
	jobRepo    port.JobRepository
	jobService JobService
	cfg        JobQueueConfig
	wg         sync.WaitGroup
}

// NewJobQueueWorker creates a new JobQueueWorker.
func NewJobQueueWorker(jobRepo port.JobRepository, jobService JobService, cfg JobQueueConfig) *JobQueueWorker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxJobAttempts
	}
	return &JobQueueWorker{
		jobRepo:    jobRepo,
		jobService: jobService,
		cfg:        cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight jobs have finished.
func (w *JobQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("jobQueueWorker: started (poll=%s, concurrency=%d, maxAttempts=%d)",
		w.cfg.PollInterval, w.cfg.Concurrency, w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			log.Printf("jobQueueWorker: shutting down, waiting for in-flight jobs...")
			w.wg.Wait()
			log.Printf("jobQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}

			jobs, err := w.jobRepo.ClaimPending(ctx, available)
			if err != nil {
				if ctx.Err() != nil {
					// Context canceled during poll, exit gracefully
					continue
				}
				log.Printf("jobQueueWorker: ClaimPending error: %v", err)
				continue
			}

			for i := range jobs {
				job := jobs[i] // copy for goroutine

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					// Use a fresh context independent of the poll context
					// so in-flight jobs complete even during shutdown.
					jobCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
					defer cancel()

					log.Printf("jobQueueWorker: dispatching job %s (attempt %d)", job.ID, job.Attempts)
					w.jobService.ProcessJob(jobCtx, &job, w.cfg.MaxAttempts)
				}()
			}
		}
	}
}
