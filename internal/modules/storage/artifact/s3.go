package artifact

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/trendjack/core/internal/config"
	"go.uber.org/zap"
)

// S3 stores artifacts in an S3-compatible bucket.
type S3 struct {
	client       *s3.Client
	bucket       string
	region       string
	endpoint     string
	prefix       string
	customDomain string
	logger       *zap.Logger
}

func NewS3(opts config.S3Config, logger *zap.Logger) (*S3, error) {
	if opts.Bucket == "" || opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket/access_key_id/secret_access_key are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	region := opts.Region
	if region == "" {
		region = "auto"
	}
	endpoint := strings.TrimSuffix(opts.Endpoint, "/")
	if endpoint != "" {
		if parsed, err := url.Parse(endpoint); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("invalid s3 endpoint: %s", endpoint)
		}
	}
	// custom endpoints (MinIO, R2) generally need path-style addressing
	pathStyle := opts.PathStyle || endpoint != ""

	client := s3.New(s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		UsePathStyle: pathStyle,
	}, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &S3{
		client:       client,
		bucket:       opts.Bucket,
		region:       region,
		endpoint:     endpoint,
		prefix:       strings.Trim(opts.Prefix, "/"),
		customDomain: strings.TrimRight(opts.CustomDomain, "/"),
		logger:       logger.Named("Artifacts"),
	}, nil
}

func (s *S3) objectKey(key string) string {
	key = normalizeKey(key)
	if key == "" {
		return ""
	}
	if s.prefix != "" {
		return s.prefix + "/" + key
	}
	return key
}

func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectKey := s.objectKey(key)
	if objectKey == "" {
		return "", fmt.Errorf("invalid s3 object key")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	s.logger.Debug("artifact uploaded", zap.String("key", objectKey), zap.Int("bytes", len(data)))
	return s.publicURL(objectKey), nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	objectKey := s.objectKey(key)
	if objectKey == "" {
		return fmt.Errorf("invalid s3 object key")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

func (s *S3) publicURL(objectKey string) string {
	escaped := encodeObjectKey(objectKey)
	if s.customDomain != "" {
		return s.customDomain + "/" + escaped
	}
	if s.endpoint == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
	}
	return s.endpoint + "/" + s.bucket + "/" + escaped
}

func encodeObjectKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
