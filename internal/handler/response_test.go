package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"formos/internal/domain"
	"formos/internal/handler"
)

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrSchemaNotFound, http.StatusNotFound, "SCHEMA_NOT_FOUND"},
		{domain.ErrJobNotFound, http.StatusNotFound, "JOB_NOT_FOUND"},
		{domain.ErrFieldNotFound, http.StatusNotFound, "FIELD_NOT_FOUND"},
		{domain.ErrDuplicateFieldID, http.StatusConflict, "DUPLICATE_FIELD_ID"},
		{domain.ErrReservedFieldID, http.StatusBadRequest, "RESERVED_FIELD_ID"},
		{domain.ErrInvalidSchema, http.StatusBadRequest, "INVALID_SCHEMA"},
		{domain.ErrJobNotCompleted, http.StatusBadRequest, "JOB_NOT_COMPLETED"},
		{domain.ErrUnsupportedFileType, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE"},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{domain.ErrUploadFailed, http.StatusInternalServerError, "UPLOAD_FAILED"},
		{errors.New("anything else"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		status, code, _ := handler.MapDomainError(tc.err)
		assert.Equal(t, tc.status, status, "error %v", tc.err)
		assert.Equal(t, tc.code, code, "error %v", tc.err)
	}
}

func TestMapDomainError_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("looking up file: %w", domain.ErrNotFound)
	status, code, _ := handler.MapDomainError(wrapped)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", code)
}
