// Package export uploads diff and changelog reports to S3-compatible object
// storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	sc "github.com/termstore/termstore/internal/server/config"
)

// ObjectPutter is the slice of the S3 client the reporter uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Reporter marshals report documents and stores them under a dated key.
type S3Reporter struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Reporter builds a reporter from the server configuration.
func NewS3Reporter(ctx context.Context, config *sc.Config) (*S3Reporter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.S3RootUser,
			config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Reporter{client: client, bucket: config.S3Bucket, prefix: config.ReportPrefix}, nil
}

// NewS3ReporterWithClient is the injection point for tests.
func NewS3ReporterWithClient(client ObjectPutter, bucket, prefix string) *S3Reporter {
	return &S3Reporter{client: client, bucket: bucket, prefix: prefix}
}

// Upload marshals the document and stores it as
// <prefix>/<yyyy>/<mm>/<dd>/<name>-<uuid>.json, returning the object key.
func (r *S3Reporter) Upload(ctx context.Context, name string, doc any) (string, error) {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	d := time.Now().UTC()
	key := fmt.Sprintf("%s/%d/%02d/%02d/%s-%v.json", r.prefix, d.Year(), d.Month(), d.Day(), name, uuid.New())

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put report: %w", err)
	}

	return key, nil
}
