package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// deleteBatchSize is the DeleteObjects per-request key limit.
const deleteBatchSize = 1000

type s3API interface {
	s3.ListObjectsV2APIClient
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type s3Uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 stores objects in S3 buckets; a container is a bucket name.
type S3 struct {
	api      s3API
	uploader s3Uploader
}

// S3Options tune the client built by NewS3.
type S3Options struct {
	Endpoint  string
	PathStyle bool
}

// NewS3 builds an S3 store from an aws.Config.
func NewS3(cfg aws.Config, opts S3Options) *S3 {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return &S3{api: client, uploader: manager.NewUploader(client)}
}

func (s *S3) CheckContainer(ctx context.Context, container string) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(container)})
	if err == nil {
		return nil
	}
	switch apiErrorCode(err) {
	case "NotFound", "NoSuchBucket", "Forbidden", "AccessDenied":
		return fmt.Errorf("%w: %s: %v", ErrContainerNotFound, container, err)
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s: %v", ErrContainerNotFound, container, err)
	}
	return fmt.Errorf("head bucket %s: %w", container, err)
}

func (s *S3) Upload(ctx context.Context, container, key string, body io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", container, key, err)
	}
	return nil
}

func (s *S3) Download(ctx context.Context, container, key string) (io.ReadCloser, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) || apiErrorCode(err) == "NoSuchKey" {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, container, key)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", container, key, err)
	}
	return out.Body, nil
}

func (s *S3) List(ctx context.Context, container, prefix string) ([]Object, error) {
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(container),
		Prefix: aws.String(prefix),
	})
	var objects []Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", container, prefix, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, Object{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)})
		}
	}
	return objects, nil
}

func (s *S3) Delete(ctx context.Context, container string, keys []string) error {
	var errs []error
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		ids := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			ids = append(ids, s3types.ObjectIdentifier{Key: aws.String(key)})
		}
		out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(container),
			Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("delete %d objects from %s: %w", len(ids), container, err))
			continue
		}
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("delete %s: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message)))
		}
	}
	return errors.Join(errs...)
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
