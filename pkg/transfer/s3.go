package transfer

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/eunmann/rtbench/internal/logctx"
	"github.com/eunmann/rtbench/pkg/config"
)

// S3 uploads and downloads through the S3 transfer manager, which splits
// large objects into concurrent parts.
type S3 struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	prefix     string
}

// DialS3 builds an S3 client. Static credentials are used when both keys
// are set, otherwise the default AWS credential chain. A custom endpoint
// targets S3-compatible stores such as MinIO.
func DialS3(ctx context.Context, cfg config.S3Config) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return newS3(client, cfg), nil
}

func newS3(client *s3.Client, cfg config.S3Config) *S3 {
	partSize := int64(cfg.PartSize)
	if partSize < manager.MinUploadPartSize {
		partSize = manager.DefaultUploadPartSize
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = manager.DefaultUploadConcurrency
	}

	return &S3{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = partSize
			u.Concurrency = concurrency
		}),
		downloader: manager.NewDownloader(client, func(d *manager.Downloader) {
			d.PartSize = partSize
			d.Concurrency = concurrency
		}),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}
}

// Upload stores r under the bucket at the key for remotePath.
func (s *S3) Upload(ctx context.Context, remotePath string, r io.Reader, size int64) error {
	key := objectKey(s.prefix, remotePath)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", s.bucket, key, err)
	}
	log := logctx.FromContext(ctx)
	log.Debug().Str("bucket", s.bucket).Str("key", key).Msg("s3 upload done")
	return nil
}

// Download fetches the object into w. Writers that implement io.WriterAt
// (such as *os.File) receive parts concurrently; others are buffered.
func (s *S3) Download(ctx context.Context, remotePath string, w io.Writer) (int64, error) {
	key := objectKey(s.prefix, remotePath)
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}

	if wa, ok := w.(io.WriterAt); ok {
		n, err := s.downloader.Download(ctx, wa, input)
		if err != nil {
			return n, fmt.Errorf("get object s3://%s/%s: %w", s.bucket, key, err)
		}
		return n, nil
	}

	buf := manager.NewWriteAtBuffer(nil)
	if _, err := s.downloader.Download(ctx, buf, input); err != nil {
		return 0, fmt.Errorf("get object s3://%s/%s: %w", s.bucket, key, err)
	}
	n, err := w.Write(buf.Bytes())
	if err != nil {
		return int64(n), fmt.Errorf("write s3://%s/%s: %w", s.bucket, key, err)
	}
	return int64(n), nil
}

// Close is a no-op; the SDK client holds no connection of its own.
func (s *S3) Close() error { return nil }

// EnsureBucket creates the bucket if it does not exist.
func (s *S3) EnsureBucket(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return nil
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}
