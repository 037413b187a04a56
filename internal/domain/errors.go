package domain

import "errors"

var (
	ErrNotFound              = errors.New("resource not found")
	ErrSchemaNotFound        = errors.New("schema not found")
	ErrJobNotFound           = errors.New("extraction job not found")
	ErrFieldNotFound         = errors.New("field not found in schema")
	ErrDuplicateFieldID      = errors.New("field id already exists in schema")
	ErrInvalidSchema         = errors.New("schema definition is not valid")
	ErrJobNotCompleted       = errors.New("job has not completed extraction")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed          = errors.New("file upload to storage failed")
	ErrExtractionFailed      = errors.New("document extraction failed")
	ErrReservedFieldID       = errors.New("field id collides with a reserved result key")
)
