package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/eunmann/rtbench/pkg/fileutil"
)

// FS treats a local directory as the remote store.
type FS struct {
	root string
}

// OpenFS returns an FS rooted at dir, creating it if needed.
func OpenFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open fs remote %s: %w", dir, err)
	}
	return &FS{root: dir}, nil
}

func (f *FS) path(remotePath string) string {
	return filepath.Join(f.root, filepath.FromSlash(objectKey("", remotePath)))
}

// Upload copies r into the file at remotePath under the root, via a
// temporary file so a failed upload leaves nothing behind.
func (f *FS) Upload(ctx context.Context, remotePath string, r io.Reader, _ int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := f.path(remotePath)
	return fileutil.WriteTmpThenMove(dst, func(tmpPath string) error {
		out, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("fs upload %s: %w", remotePath, err)
		}
		if _, err := io.Copy(out, r); err != nil {
			out.Close()
			return fmt.Errorf("fs upload %s: %w", remotePath, err)
		}
		return out.Close()
	})
}

// Download copies the file at remotePath into w.
func (f *FS) Download(ctx context.Context, remotePath string, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	in, err := os.Open(f.path(remotePath))
	if err != nil {
		return 0, fmt.Errorf("fs download %s: %w", remotePath, err)
	}
	defer in.Close()

	n, err := io.Copy(w, in)
	if err != nil {
		return n, fmt.Errorf("fs download %s: %w", remotePath, err)
	}
	return n, nil
}

// Close is a no-op.
func (f *FS) Close() error { return nil }
