package proofstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/PrimePass/internal/pkg/env"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Store keeps proofs in an S3 or S3-compatible bucket.
type S3Store struct {
	client S3API
	bucket string
	now    func() time.Time
	newID  func() string
}

// NewS3Store connects to the configured bucket, creating it outside prod.
func NewS3Store(cfg *Config) (*S3Store, error) {
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	store := NewS3StoreWithClient(client, cfg.BucketName)
	if err := store.ensureBucket(context.Background(), cfg); err != nil {
		return nil, err
	}
	log.Infof("[ProofStore] Using S3 bucket %s", cfg.BucketName)
	return store, nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client S3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket, now: time.Now, newID: uuid.NewString}
}

func (s *S3Store) ensureBucket(ctx context.Context, cfg *Config) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if env.GetEnv("APP_ENV", "dev") == "prod" {
		return fmt.Errorf("bucket %s not accessible: %w", s.bucket, err)
	}

	log.Warnf("[ProofStore] Bucket %s not found, attempting to create it", s.bucket)
	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	if cfg.EndpointURL == "" && cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(cfg.Region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, userID, contentType string, body io.Reader, size int64) (string, error) {
	if size > MaxProofSize {
		return "", ErrTooLarge
	}
	key := ObjectKey(userID, s.newID(), contentType, s.now().UTC())
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        io.LimitReader(body, MaxProofSize),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"user-id":       userID,
			"upload-source": "primepass-review",
		},
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload proof to S3: %w", err)
	}
	log.Infof("[ProofStore] Stored proof s3://%s/%s", s.bucket, key)
	return refS3 + s.bucket + "/" + key, nil
}

func (s *S3Store) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	rest, ok := strings.CutPrefix(ref, refS3)
	bucket, key, found := strings.Cut(rest, "/")
	if !ok || !found || bucket != s.bucket {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to get proof from S3: %w", err)
	}
	return out.Body, nil
}
