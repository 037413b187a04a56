package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"formos/internal/config"
	"formos/internal/domain"
	"formos/internal/port"
)

// FileUploadInput is the DTO for file upload requests.
type FileUploadInput struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// FileService defines the uploaded-document management contract.
type FileService interface {
	Upload(ctx context.Context, input FileUploadInput) (*domain.FileMeta, error)
	GetByID(ctx context.Context, fileID uuid.UUID) (*domain.FileMeta, error)
	GetDownloadURL(ctx context.Context, fileID uuid.UUID) (string, error)
	Delete(ctx context.Context, fileID uuid.UUID) error
}

type fileService struct {
	fileRepo port.FileMetaRepository
	storage  port.ObjectStorage
	cfg      *config.S3Config
}

// NewFileService creates a new FileService implementation.
func NewFileService(fileRepo port.FileMetaRepository, storage port.ObjectStorage, cfg *config.S3Config) FileService {
	return &fileService{
		fileRepo: fileRepo,
		storage:  storage,
		cfg:      cfg,
	}
}

func (s *fileService) Upload(ctx context.Context, input FileUploadInput) (*domain.FileMeta, error) {
	// Validate file extension
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	// Validate file size
	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	if input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Read first 512 bytes for magic-byte content type detection
	buf := make([]byte, 512)
	n, err := input.File.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	detectedType := http.DetectContentType(buf[:n])
	if _, validContent := domain.AllowedContentTypes[detectedType]; !validContent {
		return nil, domain.ErrUnsupportedFileType
	}

	// Seek back to beginning for upload
	if _, err := input.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking file: %w", err)
	}

	fileID := uuid.New()
	s3Key := fmt.Sprintf("files/%s/%s", fileID, input.Header.Filename)
	contentType := domain.AllowedFileTypes[fileType]

	meta := &domain.FileMeta{
		ID:           fileID,
		FileName:     fileID.String() + "." + ext,
		OriginalName: input.Header.Filename,
		FileType:     fileType,
		FileSize:     input.Header.Size,
		S3Bucket:     s.cfg.Bucket,
		S3Key:        s3Key,
		ContentType:  contentType,
	}

	log.Printf("fileService.Upload: uploading file %s (%s, %d bytes)",
		input.Header.Filename, contentType, input.Header.Size)

	if err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         s3Key,
		Body:        input.File,
		ContentType: contentType,
	}); err != nil {
		log.Printf("fileService.Upload: S3 upload failed for file %s: %v", fileID, err)
		return nil, domain.ErrUploadFailed
	}

	if err := s.fileRepo.Create(ctx, meta); err != nil {
		// Best-effort cleanup so the bucket doesn't accumulate orphans.
		if delErr := s.storage.Delete(ctx, s.cfg.Bucket, s3Key); delErr != nil {
			log.Printf("fileService.Upload: failed to clean up orphaned object %s: %v", s3Key, delErr)
		}
		return nil, fmt.Errorf("creating file metadata: %w", err)
	}

	return meta, nil
}

func (s *fileService) GetByID(ctx context.Context, fileID uuid.UUID) (*domain.FileMeta, error) {
	return s.fileRepo.GetByID(ctx, fileID)
}

func (s *fileService) GetDownloadURL(ctx context.Context, fileID uuid.UUID) (string, error) {
	meta, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, meta.S3Bucket, meta.S3Key)
}

func (s *fileService) Delete(ctx context.Context, fileID uuid.UUID) error {
	log.Printf("fileService.Delete: deleting file %s", fileID)

	meta, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, meta.S3Bucket, meta.S3Key); err != nil {
		log.Printf("fileService.Delete: failed to delete from S3: %v", err)
		return fmt.Errorf("deleting from storage: %w", err)
	}
	return s.fileRepo.Delete(ctx, fileID)
}
