package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/cppla/yapper/config"
)

// S3API is the subset of the S3 client used for avatars.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps avatars in an S3 (or compatible) bucket.
type S3Store struct {
	client    S3API
	bucket    string
	prefix    string
	urlPrefix string
}

func NewS3Store(client S3API, bucket, prefix, urlPrefix string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}
}

// NewS3Client builds a client from the default AWS credential chain.
// A custom endpoint switches to path-style addressing for MinIO and friends.
func NewS3Client(ctx context.Context, c config.AppConfig) (*s3.Client, error) {
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(c.AvatarS3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.AvatarS3Endpoint != "" {
			o.BaseEndpoint = aws.String(c.AvatarS3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	if errors.As(err, &nf) || apiErrorCode(err) == "NotFound" {
		return false, nil
	}
	return false, err
}

// Put uploads with If-None-Match so a concurrent writer cannot be overwritten.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) (bool, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.key(name)),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("image/png"),
		CacheControl: aws.String("public, max-age=86400"),
		IfNoneMatch:  aws.String("*"),
	})
	if err == nil {
		return true, nil
	}
	if apiErrorCode(err) == "PreconditionFailed" {
		return false, nil
	}
	return false, err
}

func (s *S3Store) URL(name string) string {
	return s.urlPrefix + "/" + s.key(name)
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
