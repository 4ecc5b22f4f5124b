package transfer

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/eunmann/rtbench/pkg/config"
)

const azureBlobURL = "https://%s.blob.core.windows.net"

// azureBlockSize is the staged block size for UploadStream.
const azureBlockSize = 8 << 20

// Azure stores objects as block blobs in one container.
type Azure struct {
	client    *azblob.Client
	container string
	prefix    string
}

// DialAzure builds a blob client from a connection string, or from the
// account name and shared key.
func DialAzure(_ context.Context, cfg config.AzureConfig) (*Azure, error) {
	var (
		client *azblob.Client
		err    error
	)
	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("azure client from connection string: %w", err)
		}
	} else {
		cred, cerr := azblob.NewSharedKeyCredential(cfg.Account, cfg.Key)
		if cerr != nil {
			return nil, fmt.Errorf("azure credentials for %s: %w", cfg.Account, cerr)
		}
		endpoint := cfg.EndpointURL
		if endpoint == "" {
			endpoint = fmt.Sprintf(azureBlobURL, cfg.Account)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(endpoint, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("azure client %s: %w", endpoint, err)
		}
	}

	return &Azure{client: client, container: cfg.Container, prefix: cfg.Prefix}, nil
}

// Upload streams r into a block blob.
func (a *Azure) Upload(ctx context.Context, remotePath string, r io.Reader, _ int64) error {
	name := objectKey(a.prefix, remotePath)
	_, err := a.client.UploadStream(ctx, a.container, name, r, &azblob.UploadStreamOptions{
		BlockSize:   azureBlockSize,
		Concurrency: max(runtime.NumCPU()/2, 1),
	})
	if err != nil {
		return fmt.Errorf("upload blob %s/%s: %w", a.container, name, err)
	}
	return nil
}

// Download streams the blob into w.
func (a *Azure) Download(ctx context.Context, remotePath string, w io.Writer) (int64, error) {
	name := objectKey(a.prefix, remotePath)
	resp, err := a.client.DownloadStream(ctx, a.container, name, nil)
	if err != nil {
		return 0, fmt.Errorf("download blob %s/%s: %w", a.container, name, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download blob %s/%s: %w", a.container, name, err)
	}
	return n, nil
}

// Close is a no-op; the pipeline has no per-client connection to release.
func (a *Azure) Close() error { return nil }
