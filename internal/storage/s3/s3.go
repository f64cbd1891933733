// Package s3 keeps car images in an S3-compatible bucket and hands out
// presigned GET URLs.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"

	"github.com/utafrali/CarCatalog/internal/storage"
)

// MaxURLTTL is the longest validity SigV4 accepts for a presigned URL.
const MaxURLTTL = 7 * 24 * time.Hour

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	URLTTL    time.Duration
}

// Storage implements storage.Storage on S3.
type Storage struct {
	client *awss3.S3
	bucket string
	ttl    time.Duration
}

func New(cfg Config) (*Storage, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.Endpoint != ""),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create s3 session: %w", err)
	}

	ttl := cfg.URLTTL
	if ttl <= 0 || ttl > MaxURLTTL {
		ttl = MaxURLTTL
	}
	return &Storage{client: awss3.New(sess), bucket: cfg.Bucket, ttl: ttl}, nil
}

func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	_, err = s.client.PutObjectWithContext(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(input.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(input.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s to s3: %w", input.Key, err)
	}

	url, err := s.GetURL(ctx, input.Key)
	if err != nil {
		return nil, err
	}
	return &storage.UploadResult{Key: input.Key, URL: url}, nil
}

// Delete removes key. S3 does not report missing keys, so neither does this.
func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s from s3: %w", key, err)
	}
	return nil
}

// GetURL presigns a GET for key. No request is sent.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	req, _ := s.client.GetObjectRequest(&awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(s.ttl)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return url, nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (s *Storage) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &awss3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}
