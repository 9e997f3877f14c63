package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/phrazzld/taskr-api/internal/config"
)

// s3API is the subset of the S3 client used by S3Storage.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage keeps task files in an S3 bucket under <prefix>/<token>/.
// Locations are recorded as s3://<bucket>/<prefix>/<token>.
type S3Storage struct {
	client s3API
	bucket string
	prefix string
}

var _ Storage = (*S3Storage)(nil)

// NewS3Storage creates an S3 backend. Static credentials are used when both
// keys are configured, otherwise the default AWS credential chain applies.
// A custom endpoint selects an S3-compatible service such as MinIO.
func NewS3Storage(ctx context.Context, cfg config.S3StorageConfig) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return newS3Storage(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Storage(client s3API, bucket, prefix string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Storage) locationPrefix() string {
	return "s3://" + s.bucket + "/"
}

// CreateLocation returns a fresh location reference. S3 has no directories,
// so nothing is written until the first upload.
func (s *S3Storage) CreateLocation(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := newToken()
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return s.locationPrefix() + key, nil
}

// RemoveLocation checks the reference belongs to this bucket. Nothing is
// stored for a location until its first upload, so there is nothing to delete.
func (s *S3Storage) RemoveLocation(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if keyPrefix, ok := strings.CutPrefix(location, s.locationPrefix()); !ok || keyPrefix == "" {
		return fmt.Errorf("%w: %s", ErrInvalidLocation, location)
	}
	return nil
}

// Save uploads r as name inside location. The upload is conditional on the
// key not existing, so an existing object is never overwritten.
func (s *S3Storage) Save(ctx context.Context, location, name string, r io.Reader) (string, error) {
	keyPrefix, ok := strings.CutPrefix(location, s.locationPrefix())
	if !ok || keyPrefix == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidLocation, location)
	}

	if name == "" || strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	key := strings.TrimSuffix(keyPrefix, "/") + "/" + name

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return "", fmt.Errorf("%w: %s", ErrFileExists, name)
		}
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return s.locationPrefix() + key, nil
}
