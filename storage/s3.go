package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains S3 storage configuration
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`          // Optional: Custom endpoint for MinIO or DigitalOcean Spaces
	Region          string `yaml:"region"`            // AWS region or DO region (e.g., "us-east-1" or "sfo3")
	Bucket          string `yaml:"bucket"`            // S3 bucket name
	AccessKeyID     string `yaml:"access_key_id"`     // AWS access key ID
	SecretAccessKey string `yaml:"secret_access_key"` // AWS secret access key
	UsePathStyle    bool   `yaml:"use_path_style"`    // Use path-style addressing (required for MinIO)
	Prefix          string `yaml:"prefix"`            // Key prefix, defaults to "images"
}

// Enabled reports whether enough settings are present to build a mirror
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// S3Mirror copies acquired images to S3-compatible object storage
type S3Mirror struct {
	client *s3.Client
	bucket string
	config S3Config
}

// NewS3Mirror creates a new S3Mirror instance
func NewS3Mirror(ctx context.Context, cfg S3Config) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3 region is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("S3 credentials are required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "images"
	}

	// Build AWS config
	var opts []func(*config.LoadOptions) error

	opts = append(opts, config.WithRegion(cfg.Region))
	opts = append(opts, config.WithCredentialsProvider(
		credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	))

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with custom options
	s3Opts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}

	client := s3.NewFromConfig(awsConfig, s3Opts)

	return &S3Mirror{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// Key returns the object key for a file acquired from the given source group
func (s *S3Mirror) Key(group, filename string) string {
	// S3 keys always use forward slashes
	return strings.TrimPrefix(path.Join(s.config.Prefix, group, filename), "/")
}

// Mirror uploads an image and returns its S3 key
func (s *S3Mirror) Mirror(ctx context.Context, group, filename string, imageData []byte, contentType string) (string, error) {
	key := s.Key(group, filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(imageData),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to S3: %w", err)
	}

	return key, nil
}
