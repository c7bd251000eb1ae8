package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Cache stores current/backup snapshots as two objects in one bucket.
// Write copies the existing current object to the backup key server-side
// before overwriting current, matching FileCache's rotate-then-replace
// discipline without ever reading the old bytes back through the client.
type S3Cache struct {
	client     *s3.Client
	bucket     string
	currentKey string
	backupKey  string
}

// S3Config names the bucket and key prefix an S3Cache uses.
type S3Config struct {
	Region   string
	Bucket   string
	Prefix   string // object key prefix, e.g. "firm/workspace-a"
	Endpoint string // non-empty for MinIO / S3-compatible endpoints
}

// NewS3Cache builds an S3 client from cfg and the default AWS credential
// chain (env vars, shared config, IAM role).
func NewS3Cache(ctx context.Context, cfg S3Config) (*S3Cache, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Cache{
		client:     client,
		bucket:     cfg.Bucket,
		currentKey: cfg.Prefix + "/current.firm.graph",
		backupKey:  cfg.Prefix + "/backup.firm.graph",
	}, nil
}

func (c *S3Cache) Write(ctx context.Context, data []byte) error {
	exists, err := c.objectExists(ctx, c.currentKey)
	if err != nil {
		return err
	}
	if exists {
		_, err := c.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(c.bucket),
			CopySource: aws.String(c.bucket + "/" + c.currentKey),
			Key:        aws.String(c.backupKey),
		})
		if err != nil {
			return fmt.Errorf("rotate current to backup: %w", err)
		}
	}

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.currentKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload current snapshot: %w", err)
	}
	return nil
}

func (c *S3Cache) ReadCurrent(ctx context.Context) ([]byte, error) {
	return c.get(ctx, c.currentKey)
}

func (c *S3Cache) ReadBackup(ctx context.Context) ([]byte, error) {
	return c.get(ctx, c.backupKey)
}

func (c *S3Cache) get(ctx context.Context, key string) ([]byte, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &CacheFormatError{Path: key, Reason: "object does not exist"}
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body %s: %w", key, err)
	}
	return data, nil
}

func (c *S3Cache) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	return true, nil
}

// isNotFound is a simplified check against the AWS SDK's error text — a
// full implementation would type-assert on the specific smithy error
// types the v2 SDK returns, one per S3 operation.
func isNotFound(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey"))
}

var _ CacheStore = (*S3Cache)(nil)
