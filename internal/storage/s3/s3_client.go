// Package s3 stores uploaded document payloads in an S3-compatible bucket.
package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"formos/internal/config"
	"formos/internal/port"
)

const defaultPresignExpiry = 15 * time.Minute

type documentStore struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	uploader      *manager.Uploader
	presignExpiry time.Duration
}

// NewS3Client builds the document store over the configured bucket endpoint.
// Presigned download links expire after cfg.PresignExpirySecs (15 minutes
// when unset).
func NewS3Client(cfg *config.S3Config) (port.ObjectStorage, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		// MinIO and other S3-compatible stores need path-style addressing.
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	expiry := defaultPresignExpiry
	if cfg.PresignExpirySecs > 0 {
		expiry = time.Duration(cfg.PresignExpirySecs) * time.Second
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &documentStore{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		uploader:      manager.NewUploader(client),
		presignExpiry: expiry,
	}, nil
}

// Upload writes one document payload. The manager uploader handles multipart
// splitting for payloads above its part-size threshold.
func (d *documentStore) Upload(ctx context.Context, input port.UploadInput) error {
	_, err := d.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(input.Bucket),
		Key:         aws.String(input.Key),
		Body:        input.Body,
		ContentType: aws.String(input.ContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	return nil
}

// Download reads a full document payload into memory. Payloads are bounded by
// the upload size limit, so buffering the whole object is fine.
func (d *documentStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 download: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 download read: %w", err)
	}
	return data, nil
}

func (d *documentStore) Delete(ctx context.Context, bucket, key string) error {
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete: %w", err)
	}
	return nil
}

// GetPresignedURL returns a time-limited download link for a stored document.
func (d *documentStore) GetPresignedURL(ctx context.Context, bucket, key string) (string, error) {
	result, err := d.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(d.presignExpiry))
	if err != nil {
		return "", fmt.Errorf("s3 presign: %w", err)
	}
	return result.URL, nil
}
