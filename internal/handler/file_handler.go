package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"formos/internal/service"
)

// FileHandler handles document upload endpoints.
type FileHandler struct {
	fileService service.FileService
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(fileService service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// Upload handles POST /api/v1/files/upload
func (h *FileHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	meta, err := h.fileService.Upload(c.Request.Context(), service.FileUploadInput{
		File:   file,
		Header: header,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, meta)
}

// GetByID handles GET /api/v1/files/:id
func (h *FileHandler) GetByID(c *gin.Context) {
	fileID, ok := parseID(c, "id")
	if !ok {
		return
	}

	meta, err := h.fileService.GetByID(c.Request.Context(), fileID)
	if err != nil {
		HandleError(c, err)
		return
	}

	downloadURL, err := h.fileService.GetDownloadURL(c.Request.Context(), fileID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"file":         meta,
		"download_url": downloadURL,
	})
}

// Delete handles DELETE /api/v1/files/:id
func (h *FileHandler) Delete(c *gin.Context) {
	fileID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.fileService.Delete(c.Request.Context(), fileID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "file deleted"})
}
