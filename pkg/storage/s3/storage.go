package s3

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
	"github.com/mosajjal/devops-events/pkg/storage"
)

// PutObjectAPI is the subset of the S3 client used for uploads
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Storage writes failed records to S3 as gzipped JSON lines
type Storage struct {
	client    PutObjectAPI
	bucket    string
	keyPrefix string
	logger    *zap.Logger
	now       func() time.Time
}

// NewStorage creates an S3 backend from an s3 client config
func NewStorage(cfg storage.Config, awsCfg aws.Config, logger *zap.Logger) (*Storage, error) {
	return NewStorageWithClient(cfg, s3.NewFromConfig(awsCfg), logger)
}

// NewStorageWithClient creates an S3 backend around an existing client
func NewStorageWithClient(cfg storage.Config, client PutObjectAPI, logger *zap.Logger) (*Storage, error) {
	bucket, keyPrefix, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		client:    client,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// ParseURL splits a virtual-hosted or path style S3 URL into bucket and key
// prefix. s3://bucket/prefix is accepted too.
func ParseURL(raw string) (bucket, keyPrefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URL: %w", err)
	}

	switch {
	case u.Scheme == "s3":
		bucket = u.Host
		keyPrefix = strings.Trim(u.Path, "/")
	case strings.Contains(u.Host, ".s3.") || strings.Contains(u.Host, ".s3-"):
		// bucket.s3.region.amazonaws.com/prefix
		bucket, _, _ = strings.Cut(u.Host, ".")
		keyPrefix = strings.Trim(u.Path, "/")
	default:
		// s3.region.amazonaws.com/bucket/prefix
		bucket, keyPrefix, _ = strings.Cut(strings.Trim(u.Path, "/"), "/")
	}

	if bucket == "" {
		return "", "", fmt.Errorf("could not parse bucket name from URL: %s", raw)
	}
	return bucket, keyPrefix, nil
}

// Store uploads the records as one object
func (s *Storage) Store(ctx context.Context, records []*models.FailedRecord) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	gz, _ := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	enc := json.NewEncoder(gz)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			s.logger.Warn("failed to encode failed record", zap.String("recordId", r.RecordID), zap.Error(err))
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip failed records: %w", err)
	}

	key := s.objectKey(s.now().UTC())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.logger.Info("stored failed records", zap.Int("count", len(records)), zap.String("bucket", s.bucket), zap.String("key", key))
	return nil
}

// objectKey is prefix/year/month/day/hour/timestamp-uuid.json.gz
func (s *Storage) objectKey(now time.Time) string {
	name := fmt.Sprintf("%d/%02d/%02d/%02d/%s-%s.json.gz",
		now.Year(),
		now.Month(),
		now.Day(),
		now.Hour(),
		now.Format("2006-01-02T15:04:05.000Z"),
		uuid.New().String(),
	)
	if s.keyPrefix == "" {
		return name
	}
	return s.keyPrefix + "/" + name
}

// Close cleans up resources
func (s *Storage) Close() error {
	return nil
}
