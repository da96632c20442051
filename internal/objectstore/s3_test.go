package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type stubS3 struct {
	headErr    error
	getErr     error
	pages      [][]string
	deleted    [][]s3types.ObjectIdentifier
	deleteErrs []s3types.Error
}

func (s *stubS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, s.headErr
}

func (s *stubS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(aws.ToString(in.Key)))}, nil
}

func (s *stubS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	idx := 0
	if in.ContinuationToken != nil {
		fmt.Sscanf(aws.ToString(in.ContinuationToken), "%d", &idx)
	}
	out := &s3.ListObjectsV2Output{}
	for _, key := range s.pages[idx] {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(key), Size: aws.Int64(1)})
	}
	if idx+1 < len(s.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(fmt.Sprint(idx + 1))
	}
	return out, nil
}

func (s *stubS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	s.deleted = append(s.deleted, in.Delete.Objects)
	return &s3.DeleteObjectsOutput{Errors: s.deleteErrs}, nil
}

type stubUploader struct {
	bucket, key, body string
}

func (u *stubUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	u.bucket, u.key, u.body = aws.ToString(in.Bucket), aws.ToString(in.Key), string(data)
	return &manager.UploadOutput{}, nil
}

func TestS3CheckContainerMapsMissingBucket(t *testing.T) {
	api := &stubS3{headErr: &smithy.GenericAPIError{Code: "NotFound", Message: "no bucket"}}
	store := &S3{api: api}

	if err := store.CheckContainer(context.Background(), "media"); !errors.Is(err, ErrContainerNotFound) {
		t.Fatalf("expected ErrContainerNotFound, got %v", err)
	}

	api.headErr = errors.New("dial tcp: timeout")
	err := store.CheckContainer(context.Background(), "media")
	if err == nil || errors.Is(err, ErrContainerNotFound) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestS3UploadStreamsBody(t *testing.T) {
	up := &stubUploader{}
	store := &S3{api: &stubS3{}, uploader: up}

	if err := store.Upload(context.Background(), "media", "a/b.ts", strings.NewReader("bytes")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if up.bucket != "media" || up.key != "a/b.ts" || up.body != "bytes" {
		t.Fatalf("unexpected upload %+v", up)
	}
}

func TestS3DownloadMapsMissingKey(t *testing.T) {
	store := &S3{api: &stubS3{getErr: &s3types.NoSuchKey{}}}
	if _, err := store.Download(context.Background(), "media", "k"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestS3ListFollowsContinuation(t *testing.T) {
	store := &S3{api: &stubS3{pages: [][]string{{"out/1/a", "out/1/b"}, {"out/1/c"}}}}

	objects, err := store.List(context.Background(), "media", "out/1/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objects) != 3 || objects[2].Key != "out/1/c" {
		t.Fatalf("unexpected objects %+v", objects)
	}
}

func TestS3DeleteBatchesAndReportsErrors(t *testing.T) {
	api := &stubS3{deleteErrs: []s3types.Error{{Key: aws.String("k1"), Code: aws.String("AccessDenied"), Message: aws.String("denied")}}}
	store := &S3{api: api}

	keys := make([]string, deleteBatchSize+5)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}
	err := store.Delete(context.Background(), "media", keys)
	if err == nil || !strings.Contains(err.Error(), "AccessDenied") {
		t.Fatalf("expected aggregated delete error, got %v", err)
	}
	if len(api.deleted) != 2 || len(api.deleted[0]) != deleteBatchSize || len(api.deleted[1]) != 5 {
		t.Fatalf("unexpected batches %d", len(api.deleted))
	}
}
