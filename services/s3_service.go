package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/urulico/urulico-api/config"
)

// S3Interface defines the interface for S3 operations
type S3Interface interface {
	// PutObject stores body under key
	PutObject(ctx context.Context, key string, body []byte, contentType string) error

	// PublicURL returns the URL browsers use to fetch key
	PublicURL(key string) string
}

// S3Service handles all S3-related operations
type S3Service struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// InitS3Service initializes the S3 service from the application config.
// Static credentials are used when configured, otherwise the default AWS
// credential chain.
func InitS3Service(ctx context.Context, cfg *appConfig.Config) (S3Interface, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	publicURL := cfg.AWSS3PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.AWSS3Bucket, cfg.AWSRegion)
	}

	return &S3Service{
		client:    s3.NewFromConfig(awsConfig),
		bucket:    cfg.AWSS3Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// PutObject uploads body to the bucket
func (s *S3Service) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// PublicURL joins the bucket's public base URL and key
func (s *S3Service) PublicURL(key string) string {
	return s.publicURL + "/" + (&url.URL{Path: key}).EscapedPath()
}
