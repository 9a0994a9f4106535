package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

// MinioStore keeps artifacts in an S3 compatible bucket under "<kind>/<name>".
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket %q: %w", cfg.Bucket, err)
		}
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func objectKey(kind entity.ArtifactKind, name string) string {
	return string(kind) + "/" + name
}

func (s *MinioStore) Put(ctx context.Context, kind entity.ArtifactKind, name string, r io.Reader, size int64, contentType string) error {
	if err := check(kind, name); err != nil {
		return err
	}
	if contentType == "" {
		contentType = ContentTypeFor(name)
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectKey(kind, name), r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", objectKey(kind, name), err)
	}
	return nil
}

func (s *MinioStore) Open(ctx context.Context, kind entity.ArtifactKind, name string) (io.ReadSeekCloser, Info, error) {
	if err := check(kind, name); err != nil {
		return nil, Info{}, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(kind, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, Info{}, err
	}
	// GetObject is lazy; Stat is what actually reaches the server.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, err
	}
	return obj, Info{Size: st.Size, ModTime: st.LastModified, ContentType: st.ContentType}, nil
}

func (s *MinioStore) Delete(ctx context.Context, kind entity.ArtifactKind, name string) error {
	if err := check(kind, name); err != nil {
		return err
	}
	return s.client.RemoveObject(ctx, s.bucket, objectKey(kind, name), minio.RemoveObjectOptions{})
}

func (s *MinioStore) Sweep(ctx context.Context, kind entity.ArtifactKind, before time.Time) (int, error) {
	if !kind.Valid() {
		return 0, ErrInvalidKind
	}
	var (
		removed int
		result  *multierror.Error
	)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: string(kind) + "/", Recursive: true}) {
		if obj.Err != nil {
			result = multierror.Append(result, obj.Err)
			continue
		}
		if !obj.LastModified.Before(before) {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		removed++
	}
	return removed, result.ErrorOrNil()
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
