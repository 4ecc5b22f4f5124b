package transfer

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/eunmann/rtbench/pkg/config"
)

// gcsChunkSize is the resumable upload chunk size.
const gcsChunkSize = 16 << 20

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// DialGCS builds a storage client. A credentials file is used when set,
// otherwise application default credentials. A custom endpoint without
// credentials targets an emulator without authentication.
func DialGCS(ctx context.Context, cfg config.GCSConfig) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
		if cfg.CredentialsFile == "" {
			opts = append(opts, option.WithoutAuthentication())
		}
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new GCS client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		name:   cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Upload writes r to the object for remotePath.
func (g *GCS) Upload(ctx context.Context, remotePath string, r io.Reader, _ int64) error {
	key := objectKey(g.prefix, remotePath)
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ChunkSize = gcsChunkSize

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", g.name, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", g.name, key, err)
	}
	return nil
}

// Download reads the object for remotePath into w.
func (g *GCS) Download(ctx context.Context, remotePath string, w io.Writer) (int64, error) {
	key := objectKey(g.prefix, remotePath)
	rd, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return 0, fmt.Errorf("read gs://%s/%s: %w", g.name, key, err)
	}
	defer rd.Close()

	n, err := io.Copy(w, rd)
	if err != nil {
		return n, fmt.Errorf("read gs://%s/%s: %w", g.name, key, err)
	}
	return n, nil
}

// Close closes the storage client.
func (g *GCS) Close() error {
	if err := g.client.Close(); err != nil {
		return fmt.Errorf("close GCS client: %w", err)
	}
	return nil
}
