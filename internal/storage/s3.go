package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client S3Store reads through.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Presigner is the subset of the S3 presign client S3Store issues upload URLs with.
type S3Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Config configures an S3Store.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	UploadTTL time.Duration
}

// S3Store stores media in an S3-compatible bucket under a private prefix.
// Access to the bytes is governed by bucket policy and URL signing.
type S3Store struct {
	client    S3API
	presigner S3Presigner
	bucket    string
	prefix    string
	ttl       time.Duration
}

// NewS3Store builds an S3Store from the default AWS credential chain.
// A non-empty Endpoint selects path-style addressing for S3-compatible servers.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, s3.NewPresignClient(client), cfg), nil
}

// NewS3StoreWithClient builds an S3Store around existing clients.
func NewS3StoreWithClient(client S3API, presigner S3Presigner, cfg S3Config) *S3Store {
	return &S3Store{
		client:    client,
		presigner: presigner,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		ttl:       cfg.UploadTTL,
	}
}

func (s *S3Store) key(entityPath string) string {
	if s.prefix == "" {
		return entityPath
	}
	return s.prefix + "/" + entityPath
}

func (s *S3Store) CreateUpload(ctx context.Context) (*UploadTarget, error) {
	entity := "uploads/" + uuid.NewString()

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(entity)),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &UploadTarget{UploadURL: req.URL, ObjectPath: ObjectPathPrefix + entity}, nil
}

// NormalizePath accepts virtual-hosted ("https://bucket.host/key") and
// path-style ("https://host/bucket/key") object URLs.
func (s *S3Store) NormalizePath(raw string) string {
	if strings.HasPrefix(raw, ObjectPathPrefix) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	key := strings.TrimPrefix(u.Path, "/")
	switch {
	case strings.HasPrefix(u.Hostname(), s.bucket+"."):
	case strings.HasPrefix(key, s.bucket+"/"):
		key = strings.TrimPrefix(key, s.bucket+"/")
	default:
		return raw
	}

	entity := key
	if s.prefix != "" {
		if !strings.HasPrefix(key, s.prefix+"/") {
			return raw
		}
		entity = strings.TrimPrefix(key, s.prefix+"/")
	}
	if _, ok := EntityPath(ObjectPathPrefix + entity); !ok {
		return raw
	}
	return ObjectPathPrefix + entity
}

func (s *S3Store) Open(ctx context.Context, entityPath string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(entityPath)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Object{
		Body:        out.Body,
		ContentType: contentType,
		Size:        aws.ToInt64(out.ContentLength),
	}, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
