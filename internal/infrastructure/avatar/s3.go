package avatar

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/baechuer/contacts-service/internal/application/auth"
)

type S3Config struct {
	Endpoint        string // empty for AWS; set for MinIO/R2
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
	PublicBaseURL   string // CDN or bucket URL the objects are reachable at
	KeyPrefix       string // default "avatars"
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage uploads processed avatars to an S3-compatible bucket.
type S3Storage struct {
	client  putObjectAPI
	bucket  string
	prefix  string
	baseURL string
}

func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("empty S3 bucket")
	}

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
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newS3Storage(client, cfg), nil
}

func newS3Storage(client putObjectAPI, cfg S3Config) *S3Storage {
	prefix := strings.Trim(cfg.KeyPrefix, "/")
	if prefix == "" {
		prefix = "avatars"
	}
	return &S3Storage{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  prefix,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

func (s *S3Storage) Save(ctx context.Context, filename string, img auth.ProcessedImage) (string, error) {
	key := s.prefix + "/" + filename
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(img.Data),
		ContentType:  aws.String(img.ContentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("put avatar object: %w", err)
	}
	return s.baseURL + "/" + key, nil
}
