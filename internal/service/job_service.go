package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"formos/internal/depgraph"
	"formos/internal/domain"
	"formos/internal/engine"
	"formos/internal/extract"
	"formos/internal/port"
	"formos/internal/reconcile"
	"formos/internal/schema"
)

const defaultMaxJobAttempts = 5

// CreateJobInput is the DTO for creating an extraction job.
type CreateJobInput struct {
	SchemaID uuid.UUID
	FileID   uuid.UUID
}

// VerifyFieldInput is the DTO for manually verifying one field of a job's
// results. When UpdateValue is set, Value replaces the stored value before
// verification is stamped.
type VerifyFieldInput struct {
	JobID       uuid.UUID
	FieldID     string
	Value       interface{}
	UpdateValue bool
	VerifiedBy  string
}

// JobResults is a completed job's results split into its parts: the id-keyed
// field values, the summary aggregate, summary warnings, and review metadata.
type JobResults struct {
	Values   map[string]interface{} `json:"values"`
	Summary  map[string]interface{} `json:"summary,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
	Meta     *domain.ResultsMeta    `json:"meta,omitempty"`
}

// JobService defines the extraction job contract.
type JobService interface {
	Create(ctx context.Context, input *CreateJobInput) (*domain.ExtractionJob, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error)
	GetResults(ctx context.Context, id uuid.UUID) (*JobResults, error)
	ListBySchema(ctx context.Context, schemaID uuid.UUID, offset, limit int) ([]domain.ExtractionJob, int, error)
	Retry(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error)
	VerifyField(ctx context.Context, input *VerifyFieldInput) (*JobResults, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ProcessJob(ctx context.Context, job *domain.ExtractionJob, maxAttempts int)
}

type jobService struct {
	jobRepo    port.JobRepository
	schemaRepo port.SchemaRepository
	fileRepo   port.FileMetaRepository
	storage    port.ObjectStorage
	extractor  port.Extractor
	resolver   depgraph.ReferenceResolver
	executor   *engine.Executor
	threshold  float64
}

// NewJobService creates a new JobService implementation.
func NewJobService(
	jobRepo port.JobRepository,
	schemaRepo port.SchemaRepository,
	fileRepo port.FileMetaRepository,
	storage port.ObjectStorage,
	extractor port.Extractor,
	resolver depgraph.ReferenceResolver,
	executor *engine.Executor,
	confidenceThreshold float64,
) JobService {
	return &jobService{
		jobRepo:    jobRepo,
		schemaRepo: schemaRepo,
		fileRepo:   fileRepo,
		storage:    storage,
		extractor:  extractor,
		resolver:   resolver,
		executor:   executor,
		threshold:  confidenceThreshold,
	}
}

func (s *jobService) Create(ctx context.Context, input *CreateJobInput) (*domain.ExtractionJob, error) {
	if _, err := s.schemaRepo.GetByID(ctx, input.SchemaID); err != nil {
		return nil, err
	}
	file, err := s.fileRepo.GetByID(ctx, input.FileID)
	if err != nil {
		return nil, fmt.Errorf("looking up file: %w", err)
	}

	job := &domain.ExtractionJob{
		ID:       uuid.New(),
		SchemaID: input.SchemaID,
		FileID:   input.FileID,
		FileName: file.OriginalName,
		Status:   domain.JobStatusPending,
		Results:  json.RawMessage("{}"),
	}

	log.Printf("jobService.Create: creating job %s for schema %s / file %s",
		job.ID, input.SchemaID, input.FileID)

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	return job, nil
}

func (s *jobService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error) {
	return s.jobRepo.GetByID(ctx, id)
}

func (s *jobService) GetResults(ctx context.Context, id uuid.UUID) (*JobResults, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, domain.ErrJobNotCompleted
	}
	return decodeJobResults(job.Results)
}

func (s *jobService) ListBySchema(ctx context.Context, schemaID uuid.UUID, offset, limit int) ([]domain.ExtractionJob, int, error) {
	return s.jobRepo.ListBySchema(ctx, schemaID, offset, limit)
}

// Retry resets a job so the queue worker picks it up again from scratch.
func (s *jobService) Retry(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Verify the file still exists before queueing
	if _, err := s.fileRepo.GetByID(ctx, job.FileID); err != nil {
		return nil, fmt.Errorf("looking up file for retry: %w", err)
	}

	job.Status = domain.JobStatusPending
	job.Results = json.RawMessage("{}")
	job.Error = ""
	job.CompletedAt = nil
	if err := s.jobRepo.UpdateResults(ctx, job); err != nil {
		return nil, fmt.Errorf("resetting job for retry: %w", err)
	}

	log.Printf("jobService.Retry: job %s queued for re-extraction", id)
	return job, nil
}

func (s *jobService) VerifyField(ctx context.Context, input *VerifyFieldInput) (*JobResults, error) {
	job, err := s.jobRepo.GetByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, domain.ErrJobNotCompleted
	}

	def, err := s.schemaRepo.GetByID(ctx, job.SchemaID)
	if err != nil {
		return nil, err
	}
	fields, err := schema.ParseFields(def.Fields)
	if err != nil {
		return nil, fmt.Errorf("schema %s holds unparseable fields: %w", job.SchemaID, err)
	}
	if _, ok := schema.FieldByID(fields, input.FieldID); !ok {
		return nil, domain.ErrFieldNotFound
	}

	values, meta, err := reconcile.DecodeResults(job.Results)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = &domain.ResultsMeta{}
	}

	if input.UpdateValue {
		values[input.FieldID] = input.Value
	}
	reconcile.VerifyField(meta, input.FieldID, input.VerifiedBy, time.Now())

	blob, err := reconcile.EncodeResults(values, meta)
	if err != nil {
		return nil, err
	}
	job.Results = blob
	if err := s.jobRepo.UpdateResults(ctx, job); err != nil {
		return nil, fmt.Errorf("saving verified results: %w", err)
	}

	return decodeJobResults(job.Results)
}

func (s *jobService) Delete(ctx context.Context, id uuid.UUID) error {
	log.Printf("jobService.Delete: deleting job %s", id)
	return s.jobRepo.Delete(ctx, id)
}

// ProcessJob runs one job end to end: download the document, extract, run the
// derived-field waves, reconcile, and persist. The job must already be in
// processing status with its attempt counted. It is called by the queue
// worker; errors are persisted on the job, never returned.
func (s *jobService) ProcessJob(ctx context.Context, job *domain.ExtractionJob, maxAttempts int) {
	def, err := s.schemaRepo.GetByID(ctx, job.SchemaID)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("loading schema: %v", err))
		return
	}
	fields, err := schema.ParseFields(def.Fields)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("parsing schema fields: %v", err))
		return
	}

	file, err := s.fileRepo.GetByID(ctx, job.FileID)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("looking up file: %v", err))
		return
	}
	fileBytes, err := s.storage.Download(ctx, file.S3Bucket, file.S3Key)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("downloading file: %v", err))
		return
	}

	// One-shot extraction over the pruned tree: derived and input fields are
	// not the extraction endpoint's business.
	extractionFields, err := schema.MarshalFields(schema.ExtractionTree(fields))
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("encoding extraction tree: %v", err))
		return
	}

	out, err := s.extractor.Extract(ctx, port.ExtractInput{
		Fields:      extractionFields,
		FileName:    file.OriginalName,
		FileBytes:   fileBytes,
		ContentType: file.ContentType,
	})
	if err != nil {
		s.handleExtractError(ctx, job, err, maxAttempts)
		return
	}

	sanitized := reconcile.Sanitize(fields, out.Results)
	valuesByID := reconcile.FlattenResultsByID(fields, sanitized)

	flat := schema.Flatten(fields)
	g := depgraph.Build(flat, s.resolver, depgraph.BuildOptions{})
	if report := g.Validate(); len(report.Unresolvable) > 0 {
		log.Printf("jobService.ProcessJob: job %s has unresolvable dependencies: %v",
			job.ID, report.Unresolvable)
	}

	execRes := s.executor.Run(ctx, engine.RunInput{
		Fields:         flat,
		Graph:          g,
		Waves:          g.Waves(),
		Values:         valuesByID,
		InputDocuments: buildInputDocuments(flat, file, fileBytes, out.OCRMarkdown),
	})

	meta := reconcile.BuildReviewMeta(flat, execRes.Values, out.Confidence, execRes,
		out.HandledWithFallback, s.threshold, time.Now())

	summary, warnings := reconcile.BuildSummary(flat, execRes.Values, g)
	values := execRes.Values
	if len(summary) > 0 {
		values[domain.ReservedSummaryValuesKey] = summary
	}
	if len(warnings) > 0 {
		values[domain.ReservedSummaryWarningsKey] = warnings
	}

	blob, err := reconcile.EncodeResults(values, meta)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("encoding results: %v", err))
		return
	}

	now := time.Now().UTC()
	job.Status = domain.JobStatusCompleted
	job.Results = blob
	job.Error = ""
	job.CompletedAt = &now
	if err := s.jobRepo.UpdateResults(ctx, job); err != nil {
		log.Printf("jobService.ProcessJob: failed to save results for %s: %v", job.ID, err)
		return
	}

	log.Printf("jobService.ProcessJob: job %s completed (attempt %d)", job.ID, job.Attempts)
}

// handleExtractError requeues the job when the extraction endpoint rate
// limited us and attempts remain; every other failure is terminal.
func (s *jobService) handleExtractError(ctx context.Context, job *domain.ExtractionJob, extractErr error, maxAttempts int) {
	var rlErr *extract.RateLimitError
	if errors.As(extractErr, &rlErr) && job.Attempts < maxAttempts {
		job.Status = domain.JobStatusPending
		job.Error = "rate limited by extraction endpoint, queued for retry"
		if err := s.jobRepo.UpdateStatus(ctx, job); err != nil {
			log.Printf("jobService.handleExtractError: failed to requeue job %s: %v", job.ID, err)
			return
		}
		log.Printf("jobService.handleExtractError: job %s requeued (attempt %d, retry after %s)",
			job.ID, job.Attempts, rlErr.RetryAfter)
		return
	}
	s.failJob(ctx, job, fmt.Sprintf("extracting document: %v", extractErr))
}

func (s *jobService) failJob(ctx context.Context, job *domain.ExtractionJob, errMsg string) {
	log.Printf("jobService.failJob: job %s failed: %s", job.ID, errMsg)
	job.Status = domain.JobStatusError
	job.Error = errMsg
	if err := s.jobRepo.UpdateStatus(ctx, job); err != nil {
		log.Printf("jobService.failJob: failed to update status for %s: %v", job.ID, err)
	}
}

// buildInputDocuments maps every input-slot field to the uploaded document so
// transformations depending on it receive the payload alongside the OCR text.
func buildInputDocuments(flat []schema.FlatField, file *domain.FileMeta, fileBytes []byte, ocrMarkdown string) map[string]port.InputDocument {
	docs := make(map[string]port.InputDocument)
	for _, f := range flat {
		if f.Kind != schema.KindInput {
			continue
		}
		docs[f.ID] = port.InputDocument{
			FieldID:   f.ID,
			Name:      f.Name,
			Type:      file.ContentType,
			Data:      base64.StdEncoding.EncodeToString(fileBytes),
			Text:      ocrMarkdown,
			InputType: f.InputType,
		}
	}
	return docs
}

// decodeJobResults splits a persisted results blob into values, summary,
// warnings, and meta.
func decodeJobResults(raw json.RawMessage) (*JobResults, error) {
	values, meta, err := reconcile.DecodeResults(raw)
	if err != nil {
		return nil, err
	}

	res := &JobResults{Values: values, Meta: meta}

	if rawSummary, ok := values[domain.ReservedSummaryValuesKey]; ok {
		delete(values, domain.ReservedSummaryValuesKey)
		if m, isMap := rawSummary.(map[string]interface{}); isMap {
			res.Summary = m
		}
	}
	if rawWarnings, ok := values[domain.ReservedSummaryWarningsKey]; ok {
		delete(values, domain.ReservedSummaryWarningsKey)
		switch w := rawWarnings.(type) {
		case []string:
			res.Warnings = w
		case []interface{}:
			// JSON round-trip turns the slice generic
			for _, item := range w {
				if str, isString := item.(string); isString {
					res.Warnings = append(res.Warnings, str)
				}
			}
		}
	}

	return res, nil
}
