package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultLinkExpiry is how long a shared link stays valid.
const DefaultLinkExpiry = 24 * time.Hour

// S3Config holds share settings.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
	Prefix    string
	Expiry    time.Duration
}

// S3ConfigFromEnv reads share settings from PASFINI_SHARE_S3_* variables.
// The second return value is false when no bucket is configured.
func S3ConfigFromEnv() (S3Config, bool) {
	cfg := S3Config{
		Bucket:    os.Getenv("PASFINI_SHARE_S3_BUCKET"),
		Region:    os.Getenv("PASFINI_SHARE_S3_REGION"),
		Endpoint:  os.Getenv("PASFINI_SHARE_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("PASFINI_SHARE_S3_PATH_STYLE"), "true"),
		Prefix:    os.Getenv("PASFINI_SHARE_S3_PREFIX"),
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return cfg, cfg.Bucket != ""
}

type putAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Sink uploads archives to a bucket and returns a presigned GET link.
type S3Sink struct {
	client  putAPI
	presign presignAPI
	bucket  string
	prefix  string
	expiry  time.Duration
}

// NewS3Sink builds a sink from cfg using the default AWS credential chain.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Sink(client, s3.NewPresignClient(client), cfg), nil
}

func newS3Sink(client putAPI, presign presignAPI, cfg S3Config) *S3Sink {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultLinkExpiry
	}
	return &S3Sink{
		client:  client,
		presign: presign,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		expiry:  expiry,
	}
}

// Deliver uploads data under prefix/name and returns a presigned link.
func (s *S3Sink) Deliver(ctx context.Context, name string, data []byte) (string, error) {
	key := name
	if s.prefix != "" {
		key = path.Join(s.prefix, name)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/zip"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) { po.Expires = s.expiry })
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return req.URL, nil
}
