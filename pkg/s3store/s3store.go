// Package s3store keeps deposited files in an S3-compatible bucket.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/pkg/storage"
)

// Config describes the bucket used for deposited files.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// Store implements storage.Store on top of S3.
type Store struct {
	client s3iface.S3API
	bucket string
	prefix string
	url    string
	logger zerolog.Logger
}

// New creates an S3 client from the default credential chain.
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket must be provided")
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return NewWithClient(s3.New(sess), cfg, logger), nil
}

// NewWithClient wraps an existing S3 API implementation.
func NewWithClient(client s3iface.S3API, cfg Config, logger zerolog.Logger) *Store {
	base := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	if cfg.Endpoint != "" {
		base = fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		url:    base,
		logger: logger.With().Str("component", "s3store").Logger(),
	}
}

// Put uploads the object. The body is buffered because the SDK needs a seekable reader.
func (s *Store) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to buffer object: %w", err)
	}

	objectKey := s.objectKey(key)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(payload),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObjectWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("failed to put object: %w", err)
	}

	s.logger.Info().Str("key", objectKey).Int("size", len(payload)).Msg("object uploaded to s3")

	return fmt.Sprintf("%s/%s", s.url, objectKey), nil
}

// Get streams the object body.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	output, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return output.Body, nil
}

// Delete removes the object.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func isNotFound(err error) bool {
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		switch awsErr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
