package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
)

// uploadAPI is the slice of manager.Uploader used by S3Storage
type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// deleteAPI is the slice of s3.Client used by S3Storage
type deleteAPI interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage stores objects in one bucket of an S3-compatible service
type S3Storage struct {
	uploader uploadAPI
	client   deleteAPI
	bucket   string
	endpoint string // public URL base
	logger   *zap.Logger
}

// Config holds S3 storage configuration
type Config struct {
	Endpoint     string // For R2/MinIO; empty means AWS
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PartSize     int64 // multipart part size, bytes
	Logger       *zap.Logger
}

// NewS3Storage creates a new S3 storage client. It does not contact the
// service; bad credentials or a missing bucket show up on the first call.
func NewS3Storage(ctx context.Context, cfg Config) (*S3Storage, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize >= manager.MinUploadPartSize {
			u.PartSize = cfg.PartSize
		}
	})

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}

	return &S3Storage{
		uploader: uploader,
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: endpoint,
		logger:   cfg.Logger,
	}, nil
}

// Store streams body into the bucket and returns the object's public URL.
// The URL is composed locally, not read back from the service.
func (s *S3Storage) Store(ctx context.Context, body io.Reader, name string) (*Object, error) {
	if name == "" {
		return nil, apperrors.ErrInvalidName
	}
	if body == nil {
		return nil, apperrors.ErrInvalidRequest
	}

	key := NewKey(name)
	counter := &countingReader{r: body}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   counter,
	}
	if ct := contentType(name); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		s.logger.Error("Upload failed",
			zap.String("key", key),
			zap.String("bucket", s.bucket),
			zap.Error(err),
		)
		return nil, apperrors.ErrUploadFailed.Wrap(err).WithDetails(serviceDetails(err))
	}

	obj := &Object{
		Key:  key,
		Name: name,
		URL:  PublicURL(s.endpoint, s.bucket, key),
		Size: counter.n,
	}

	s.logger.Info("Upload completed",
		zap.String("key", key),
		zap.Int64("size", obj.Size),
	)

	return obj, nil
}

// Delete deletes an object from the bucket
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return apperrors.ErrInvalidKey
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("Delete failed",
			zap.String("key", key),
			zap.String("bucket", s.bucket),
			zap.Error(err),
		)
		return apperrors.ErrDeleteFailed.Wrap(err).WithDetails(serviceDetails(err))
	}

	s.logger.Info("Object deleted",
		zap.String("key", key),
	)

	return nil
}

// KeyFromURL recovers the key from a URL returned by Store
func (s *S3Storage) KeyFromURL(rawURL string) (string, error) {
	return keyFromURL(PublicURL(s.endpoint, s.bucket, ""), rawURL)
}

// Bucket returns the configured bucket name
func (s *S3Storage) Bucket() string {
	return s.bucket
}

// serviceDetails pulls the service error code and HTTP status out of an SDK
// error, or returns nil for transport-level failures.
func serviceDetails(err error) interface{} {
	details := map[string]interface{}{}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		details["code"] = apiErr.ErrorCode()
		details["message"] = apiErr.ErrorMessage()
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		details["status"] = respErr.HTTPStatusCode()
		details["request_id"] = respErr.ServiceRequestID()
	}

	if len(details) == 0 {
		return nil
	}
	return details
}
