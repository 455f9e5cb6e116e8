package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/authcore/internal/logging"
)

// S3Config locates the bucket events are archived to. BaseEndpoint is set
// for S3-compatible stores such as MinIO.
type S3Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// PutObjectAPI is the part of *s3.Client the sink uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Client builds an S3 client with static credentials.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Sink stores one JSON object per event.
type S3Sink struct {
	client PutObjectAPI
	bucket string
	logger logging.Logger
}

func NewS3Sink(client PutObjectAPI, bucket string, logger logging.Logger) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		logger: logger.With("module", "audit_s3"),
	}
}

// ObjectKey returns audit/YYYY/MM/DD/<id>.json for e.
func ObjectKey(e Event) string {
	at := e.At.UTC()
	return fmt.Sprintf("audit/%04d/%02d/%02d/%s.json", at.Year(), at.Month(), at.Day(), e.ID)
}

func (s *S3Sink) Emit(ctx context.Context, e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		s.logger.Error(ctx, "marshal audit event", "event_id", e.ID, "error", err)
		return
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(ObjectKey(e)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.logger.Error(ctx, "store audit event", "event_id", e.ID, "error", err)
	}
}
