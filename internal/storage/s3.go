package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config carries the bucket connection settings. BaseEndpoint is
// optional and points at MinIO or another S3-compatible endpoint.
type S3Config struct {
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	URLExpiry    time.Duration
}

// S3Store stores payloads in an S3 bucket and hands out presigned GET
// URLs as the retrievable side of the handle.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	expiry := cfg.URLExpiry
	if expiry == 0 {
		expiry = 24 * time.Hour
	}

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		expiry:  expiry,
	}, nil
}

// storageKey generates a date-partitioned unique key, keeping the
// original file name as a suffix hint.
func storageKey(name string) string {
	d := time.Now()
	return fmt.Sprintf("uploads/%d/%02d/%02d/%s-%s", d.Year(), d.Month(), d.Day(), uuid.New(), path.Base(name))
}

func (s *S3Store) Save(ctx context.Context, name string, payload io.Reader, size int64) (Handle, error) {
	key := storageKey(name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          payload,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return Handle{}, fmt.Errorf("failed to store payload: %w", err)
	}

	url, err := s.ResolveURL(ctx, key)
	if err != nil {
		return Handle{}, err
	}
	return Handle{Key: key, URL: url}, nil
}

func (s *S3Store) ResolveURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign payload URL: %w", err)
	}
	return req.URL, nil
}
