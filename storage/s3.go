package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	appcfg "sata_school_go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client is a thin wrapper around the S3 API bound to the configured
// archive bucket. The log archiver is its only producer today.
type Client struct {
	s3     *s3.Client
	bucket string
}

// NewClient builds a client from the default AWS credential chain. Returns
// an error when no region is configured, so callers can run without S3.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(appcfg.AppConfig.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS region not configured")
	}
	return &Client{
		s3:     s3.NewFromConfig(cfg),
		bucket: appcfg.AppConfig.S3BucketName,
	}, nil
}

// Upload puts an object into the archive bucket
func (c *Client) Upload(ctx context.Context, key string, data *bytes.Buffer, contentType string) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data.Bytes()),
		ContentType: aws.String(contentType),
	})
	return err
}

// Download streams an object back from the archive bucket
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	return result.Body, nil
}
