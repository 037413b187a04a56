package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"formos/internal/schema"
	"formos/internal/service"
)

// SchemaHandler handles extraction schema endpoints.
type SchemaHandler struct {
	schemaService service.SchemaService
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(schemaService service.SchemaService) *SchemaHandler {
	return &SchemaHandler{schemaService: schemaService}
}

type createSchemaRequest struct {
	Name      string          `json:"name" binding:"required"`
	Fields    json.RawMessage `json:"fields" binding:"required"`
	CreatedBy string          `json:"createdBy"`
}

// Create handles POST /api/v1/schemas
func (h *SchemaHandler) Create(c *gin.Context) {
	var req createSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "name and fields are required")
		return
	}

	def, err := h.schemaService.Create(c.Request.Context(), &service.CreateSchemaInput{
		Name:      req.Name,
		Fields:    req.Fields,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, def)
}

// List handles GET /api/v1/schemas
func (h *SchemaHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	schemas, total, err := h.schemaService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, schemas, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/schemas/:id
func (h *SchemaHandler) GetByID(c *gin.Context) {
	schemaID, ok := parseID(c, "id")
	if !ok {
		return
	}
	def, err := h.schemaService.GetByID(c.Request.Context(), schemaID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, def)
}

// UpdateField handles PUT /api/v1/schemas/:id/fields/:fieldId
func (h *SchemaHandler) UpdateField(c *gin.Context) {
	schemaID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var replacement schema.Field
	if err := c.ShouldBindJSON(&replacement); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body is not a valid field")
		return
	}

	def, err := h.schemaService.UpdateField(c.Request.Context(), schemaID, c.Param("fieldId"), replacement)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, def)
}

// RemoveField handles DELETE /api/v1/schemas/:id/fields/:fieldId
func (h *SchemaHandler) RemoveField(c *gin.Context) {
	schemaID, ok := parseID(c, "id")
	if !ok {
		return
	}
	def, err := h.schemaService.RemoveField(c.Request.Context(), schemaID, c.Param("fieldId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, def)
}

// Plan handles GET /api/v1/schemas/:id/plan
func (h *SchemaHandler) Plan(c *gin.Context) {
	schemaID, ok := parseID(c, "id")
	if !ok {
		return
	}
	plan, err := h.schemaService.Plan(c.Request.Context(), schemaID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, plan)
}

// Delete handles DELETE /api/v1/schemas/:id
func (h *SchemaHandler) Delete(c *gin.Context) {
	schemaID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.schemaService.Delete(c.Request.Context(), schemaID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "schema deleted"})
}

// parseID parses a UUID path parameter, writing the error response itself.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
