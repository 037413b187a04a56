package domain

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
}

// AllowedExtensions maps file extensions (without the dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}

// JobStatus represents the lifecycle of an extraction job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// FieldState is the execution state of a transformation field within one run.
// Pending is the only non-terminal state; every field must end in one of the
// other three.
type FieldState string

const (
	FieldStatePending FieldState = "pending"
	FieldStateSuccess FieldState = "success"
	FieldStateError   FieldState = "error"
	FieldStateBlocked FieldState = "blocked"
)

// ReviewState is the verification state of a single field in a job's results.
type ReviewState string

const (
	ReviewVerified    ReviewState = "verified"
	ReviewNeedsReview ReviewState = "needs_review"
)

// TransformationSource indicates where a transformation field reads its input from.
type TransformationSource string

const (
	SourceDocument TransformationSource = "document"
	SourceColumn   TransformationSource = "column"
)
