package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioOptions struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

type MinioUploader struct {
	client        *minio.Client
	bucket        string
	baseURL       string
	publicBaseURL string
}

// NewMinioUploader connects to MinIO and creates the bucket if it is missing.
func NewMinioUploader(ctx context.Context, opts MinioOptions) (*MinioUploader, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
		slog.Info("Created bucket", "bucket", opts.Bucket)
	}

	scheme := "http"
	if opts.UseSSL {
		scheme = "https"
	}

	return &MinioUploader{
		client:        client,
		bucket:        opts.Bucket,
		baseURL:       fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket),
		publicBaseURL: opts.PublicBaseURL,
	}, nil
}

func (u *MinioUploader) Upload(ctx context.Context, blob io.Reader, size int64, contentType, folder string) (Result, error) {
	key := ObjectKey(folder, contentType)

	_, err := u.client.PutObject(ctx, u.bucket, key, blob, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: minio put %s: %w", ErrUploadFailed, key, err)
	}

	base := u.baseURL
	if u.publicBaseURL != "" {
		base = u.publicBaseURL
	}
	return Result{URL: joinURL(base, key), MediaID: key}, nil
}
