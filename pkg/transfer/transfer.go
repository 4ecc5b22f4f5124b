// Package transfer times an upload/download round trip against a remote
// store. FTP, S3, Azure Blob, GCS and a local directory are supported
// behind the Remote interface.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/eunmann/rtbench/pkg/config"
)

// ErrSizeMismatch is returned when the downloaded size differs from the
// uploaded size.
var ErrSizeMismatch = errors.New("downloaded size differs from uploaded size")

// Remote is one open connection to a remote store.
type Remote interface {
	// Upload stores size bytes read from r at remotePath.
	Upload(ctx context.Context, remotePath string, r io.Reader, size int64) error
	// Download writes the object at remotePath to w and returns the byte count.
	Download(ctx context.Context, remotePath string, w io.Writer) (int64, error)
	// Close releases the connection.
	Close() error
}

// Dialer opens a Remote.
type Dialer func(ctx context.Context) (Remote, error)

// NewDialer returns a Dialer for the backend named by cfg.Kind.
func NewDialer(cfg config.TransferConfig) (Dialer, error) {
	switch cfg.Kind {
	case config.KindFTP:
		return func(ctx context.Context) (Remote, error) {
			return DialFTP(ctx, cfg.FTP, cfg.Timeout)
		}, nil
	case config.KindS3:
		return func(ctx context.Context) (Remote, error) {
			return DialS3(ctx, cfg.S3)
		}, nil
	case config.KindAzure:
		return func(ctx context.Context) (Remote, error) {
			return DialAzure(ctx, cfg.Azure)
		}, nil
	case config.KindGCS:
		return func(ctx context.Context) (Remote, error) {
			return DialGCS(ctx, cfg.GCS)
		}, nil
	case config.KindFS:
		return func(ctx context.Context) (Remote, error) {
			return OpenFS(cfg.FS.Dir)
		}, nil
	case config.KindNone:
		return nil, errors.New("transfer: no backend configured")
	default:
		return nil, fmt.Errorf("transfer: unknown backend %q", cfg.Kind)
	}
}

// objectKey turns a remote path into an object-store key under prefix.
// Object stores have no root, so leading slashes are dropped.
func objectKey(prefix, remotePath string) string {
	return strings.TrimPrefix(path.Join(prefix, remotePath), "/")
}
