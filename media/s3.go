package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Options struct {
	Bucket        string
	Region        string
	Endpoint      string // optional S3-compatible endpoint, path-style addressing
	AccessKey     string // optional; the default AWS chain is used when empty
	SecretKey     string
	PublicBaseURL string // optional CDN base in front of the bucket
}

type S3Uploader struct {
	client        *s3.Client
	bucket        string
	region        string
	endpoint      string
	publicBaseURL string
}

func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	var loadOptions []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOptions = append(loadOptions, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	slog.Info("S3 uploader initialized", "bucket", opts.Bucket, "region", cfg.Region)
	return &S3Uploader{
		client:        client,
		bucket:        opts.Bucket,
		region:        cfg.Region,
		endpoint:      opts.Endpoint,
		publicBaseURL: opts.PublicBaseURL,
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, blob io.Reader, size int64, contentType, folder string) (Result, error) {
	key := ObjectKey(folder, contentType)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          blob,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: s3 put %s: %w", ErrUploadFailed, key, err)
	}

	return Result{URL: u.objectURL(key), MediaID: key}, nil
}

func (u *S3Uploader) objectURL(key string) string {
	switch {
	case u.publicBaseURL != "":
		return joinURL(u.publicBaseURL, key)
	case u.endpoint != "":
		return joinURL(joinURL(u.endpoint, u.bucket), key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
	}
}
