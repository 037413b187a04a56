package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"formos/internal/service"
)

// JobHandler handles extraction job endpoints.
type JobHandler struct {
	jobService service.JobService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService service.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

type createJobRequest struct {
	SchemaID uuid.UUID `json:"schemaId" binding:"required"`
	FileID   uuid.UUID `json:"fileId" binding:"required"`
}

// Create handles POST /api/v1/jobs
func (h *JobHandler) Create(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "schemaId and fileId are required")
		return
	}

	job, err := h.jobService.Create(c.Request.Context(), &service.CreateJobInput{
		SchemaID: req.SchemaID,
		FileID:   req.FileID,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, job)
}

// GetByID handles GET /api/v1/jobs/:id
func (h *JobHandler) GetByID(c *gin.Context) {
	jobID, ok := parseID(c, "id")
	if !ok {
		return
	}
	job, err := h.jobService.GetByID(c.Request.Context(), jobID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job)
}

// GetResults handles GET /api/v1/jobs/:id/results
func (h *JobHandler) GetResults(c *gin.Context) {
	jobID, ok := parseID(c, "id")
	if !ok {
		return
	}
	results, err := h.jobService.GetResults(c.Request.Context(), jobID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, results)
}

// ListBySchema handles GET /api/v1/schemas/:id/jobs
func (h *JobHandler) ListBySchema(c *gin.Context) {
	schemaID, ok := parseID(c, "id")
	if !ok {
		return
	}
	offset, limit := pagination(c)
	jobs, total, err := h.jobService.ListBySchema(c.Request.Context(), schemaID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, jobs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Retry handles POST /api/v1/jobs/:id/retry
func (h *JobHandler) Retry(c *gin.Context) {
	jobID, ok := parseID(c, "id")
	if !ok {
		return
	}
	job, err := h.jobService.Retry(c.Request.Context(), jobID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job)
}

type verifyFieldRequest struct {
	Value       interface{} `json:"value"`
	UpdateValue bool        `json:"updateValue"`
	VerifiedBy  string      `json:"verifiedBy"`
}

// VerifyField handles POST /api/v1/jobs/:id/fields/:fieldId/verify
func (h *JobHandler) VerifyField(c *gin.Context) {
	jobID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req verifyFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid")
		return
	}

	results, err := h.jobService.VerifyField(c.Request.Context(), &service.VerifyFieldInput{
		JobID:       jobID,
		FieldID:     c.Param("fieldId"),
		Value:       req.Value,
		UpdateValue: req.UpdateValue,
		VerifiedBy:  req.VerifiedBy,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, results)
}

// Delete handles DELETE /api/v1/jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
	jobID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.jobService.Delete(c.Request.Context(), jobID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "job deleted"})
}
