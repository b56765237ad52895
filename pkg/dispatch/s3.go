package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/event"
	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// S3Client is the subset of the S3 API the archiver uses.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores every batch as a JSON object under
// <prefix>/<yyyy>/<mm>/<dd>/<revision>-<uuid>.json.
type S3Archiver struct {
	client S3Client
	bucket string
	prefix string
	now    func() time.Time
	newID  func() string
	log    *slog.Logger
}

// S3Option configures an S3Archiver.
type S3Option func(*s3Options)

type s3Options struct {
	client        S3Client
	configOptions []func(*config.LoadOptions) error
	now           func() time.Time
	newID         func() string
	log           *slog.Logger
}

// WithS3Client uses a pre-configured client instead of loading the AWS
// configuration.
func WithS3Client(c S3Client) S3Option {
	return func(o *s3Options) { o.client = c }
}

// WithS3ConfigOption adds an AWS config load option.
func WithS3ConfigOption(opt func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) { o.configOptions = append(o.configOptions, opt) }
}

// WithS3Clock sets the clock used for object key prefixes.
func WithS3Clock(now func() time.Time) S3Option {
	return func(o *s3Options) { o.now = now }
}

// WithS3KeyGenerator sets the generator of the unique part of object keys.
func WithS3KeyGenerator(fn func() string) S3Option {
	return func(o *s3Options) { o.newID = fn }
}

// WithS3Logger sets the logger for archived batches.
func WithS3Logger(l *slog.Logger) S3Option {
	return func(o *s3Options) { o.log = l }
}

// NewS3Archiver loads the AWS config and creates the archiver. Bucket is required.
func NewS3Archiver(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}

	o := &s3Options{now: time.Now, newID: uuid.NewString, log: logger.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		awsOptions := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		awsOptions = append(awsOptions, o.configOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: load aws config: %w", ErrInvalidConfig, err)
		}
		client = s3.NewFromConfig(awsConfig, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
		})
	}

	return &S3Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		now:    o.now,
		newID:  o.newID,
		log:    o.log,
	}, nil
}

func (a *S3Archiver) DispatchEvent(ctx context.Context, e event.LogEvent) error {
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	key := a.objectKey(e.Payload.Revision)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"account-id": e.Payload.AccountID,
			"project-id": e.Payload.ProjectID,
			"revision":   e.Payload.Revision,
		},
	})
	if err != nil {
		return classifyS3Error(key, err)
	}
	a.log.DebugContext(ctx, "event batch archived", slog.String("key", key), logger.Count(len(e.Payload.Visitors)))
	return nil
}

func (a *S3Archiver) objectKey(revision string) string {
	day := a.now().UTC().Format("2006/01/02")
	if revision == "" {
		revision = "unknown"
	}
	return path.Join(a.prefix, day, revision+"-"+a.newID()+".json")
}

func classifyS3Error(key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: put %s: %s: %w", ErrArchiveFailed, key, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("%w: put %s: %w", ErrArchiveFailed, key, err)
}
