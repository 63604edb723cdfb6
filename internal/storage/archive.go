// Package storage archives published STIX bundles to S3-compatible
// object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cyberstreams/intelcore/internal/stix"
)

// ArchiveConfig holds connection settings for the bundle archive. Endpoint
// is optional and supports S3-compatible services (MinIO, RustFS).
type ArchiveConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// S3API is the slice of the S3 client the archive uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// BundleArchive writes each published bundle as one JSON object, keyed by
// ingestion date and bundle id.
type BundleArchive struct {
	client S3API
	bucket string
}

// NewBundleArchive builds the archive from explicit credentials.
func NewBundleArchive(ctx context.Context, cfg ArchiveConfig) (*BundleArchive, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &BundleArchive{client: client, bucket: cfg.Bucket}, nil
}

// NewBundleArchiveWithClient is used by tests to substitute the S3 client.
func NewBundleArchiveWithClient(client S3API, bucket string) *BundleArchive {
	return &BundleArchive{client: client, bucket: bucket}
}

// EnsureBucket creates the bucket if it doesn't exist.
func (a *BundleArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ArchiveBundle stores a bundle and returns its object key.
func (a *BundleArchive) ArchiveBundle(ctx context.Context, bundle stix.Bundle, at time.Time) (string, error) {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("failed to encode bundle: %w", err)
	}

	key := ObjectKey(bundle.ID, at)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive bundle: %w", err)
	}
	return key, nil
}

// ObjectKey lays bundles out under one prefix per day.
func ObjectKey(bundleID string, at time.Time) string {
	return fmt.Sprintf("bundles/%s/%s.json", at.UTC().Format("2006-01-02"), bundleID)
}
