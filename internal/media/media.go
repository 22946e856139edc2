// Package media issues presigned S3 upload URLs for answer attachments:
// photos picked by the storyteller and saved audio or video recordings.
package media

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/beforeigo/beforeigo/internal/errors"
)

// Presigner is the part of the S3 presign client the store uses.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store hands out short-lived upload URLs under one bucket.
type Store struct {
	presigner Presigner
	bucket    string
	ttl       time.Duration
	logger    *slog.Logger
}

const defaultUploadTTL = 15 * time.Minute

// NewStore builds a store from the ambient AWS configuration.
func NewStore(ctx context.Context, bucket string, logger *slog.Logger) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(cfg)
	return NewStoreWithPresigner(s3.NewPresignClient(client), bucket, logger), nil
}

// NewStoreWithPresigner wires an explicit presigner, used by tests.
func NewStoreWithPresigner(presigner Presigner, bucket string, logger *slog.Logger) *Store {
	return &Store{
		presigner: presigner,
		bucket:    bucket,
		ttl:       defaultUploadTTL,
		logger:    logger.With("source", "MediaStore"),
	}
}

// Upload is a presigned PUT the client performs directly against S3.
type Upload struct {
	URL       string
	Key       string
	ExpiresIn time.Duration
}

// PresignUpload creates an upload slot for one attachment.
func (s *Store) PresignUpload(ctx context.Context, key, contentType string) (*Upload, error) {
	input := s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	req, err := s.presigner.PresignPutObject(ctx, &input, func(o *s3.PresignOptions) {
		o.Expires = s.ttl
	})
	if err != nil {
		return nil, errors.Wrap(err, "presign upload", slog.String("key", key))
	}
	return &Upload{URL: req.URL, Key: key, ExpiresIn: s.ttl}, nil
}
