package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eunmann/rtbench/internal/logctx"
	"github.com/eunmann/rtbench/pkg/benchutil"
	"github.com/eunmann/rtbench/pkg/config"
	"github.com/eunmann/rtbench/pkg/fileutil"
)

// DefaultLocalName is the scratch upload file created when no local file
// is configured.
const DefaultLocalName = "testfile.dat"

// Result holds the timings of one round trip. Total runs from the start
// of the dial to the end of the download.
type Result struct {
	Upload   time.Duration
	Download time.Duration
	Total    time.Duration
	Bytes    int64
}

// RoundTrip dials a remote, uploads localPath to remotePath, downloads it
// back into downloadPath and closes the remote. The remote and the
// download file are closed on every path once opened, and close errors
// are joined with any earlier error. Nothing is retried.
func RoundTrip(ctx context.Context, dial Dialer, localPath, remotePath, downloadPath string) (res Result, err error) {
	log := logctx.FromContext(ctx)

	src, err := os.Open(localPath)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", localPath, err)
	}
	size := info.Size()

	start := time.Now()
	remote, err := dial(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := remote.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close remote: %w", cerr))
		}
	}()
	log.Debug().Dur("dial", time.Since(start)).Msg("remote connected")

	upStart := time.Now()
	if err := remote.Upload(ctx, remotePath, src, size); err != nil {
		return Result{}, fmt.Errorf("upload %s: %w", remotePath, err)
	}
	res.Upload = time.Since(upStart)

	dst, err := os.Create(downloadPath)
	if err != nil {
		return Result{}, fmt.Errorf("create %s: %w", downloadPath, err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", downloadPath, cerr))
		}
	}()

	downStart := time.Now()
	n, err := remote.Download(ctx, remotePath, dst)
	if err != nil {
		return Result{}, fmt.Errorf("download %s: %w", remotePath, err)
	}
	res.Download = time.Since(downStart)
	res.Total = time.Since(start)
	res.Bytes = n

	if n != size {
		return res, fmt.Errorf("%w: uploaded %d, downloaded %d", ErrSizeMismatch, size, n)
	}
	return res, nil
}

// Plan resolves the local files of a round trip from configuration.
type Plan struct {
	LocalPath    string
	RemotePath   string
	DownloadPath string
	// Size is the generated payload size when LocalPath was not configured.
	Size      int64
	generated bool
	keep      bool
}

// NewPlan fills in scratch file names under workDir for anything cfg
// leaves unset.
func NewPlan(cfg config.TransferConfig, workDir string) Plan {
	p := Plan{
		LocalPath:    cfg.LocalPath,
		RemotePath:   cfg.RemotePath,
		DownloadPath: cfg.DownloadPath,
		keep:         cfg.KeepDownload,
	}
	if p.LocalPath == "" {
		p.LocalPath = filepath.Join(workDir, DefaultLocalName)
		p.Size = int64(cfg.PayloadSize)
		p.generated = true
	}
	if p.DownloadPath == "" {
		p.DownloadPath = filepath.Join(workDir, "download_"+filepath.Base(p.LocalPath))
	}
	return p
}

// ScratchFiles lists files the plan creates and later removes.
func (p Plan) ScratchFiles() []string {
	var names []string
	if p.generated {
		names = append(names, filepath.Base(p.LocalPath))
	}
	if !p.keep {
		names = append(names, filepath.Base(p.DownloadPath))
	}
	return names
}

// Run executes the plan: it writes the generated payload if needed, runs
// RoundTrip, then removes the generated and downloaded files.
func (p Plan) Run(ctx context.Context, dial Dialer) (res Result, err error) {
	if p.generated {
		if err := os.WriteFile(p.LocalPath, benchutil.Payload(int(p.Size)), 0o644); err != nil {
			return Result{}, fmt.Errorf("write payload %s: %w", p.LocalPath, err)
		}
		defer func() {
			err = errors.Join(err, fileutil.RemoveIfExists(p.LocalPath))
		}()
	}
	if !p.keep {
		defer func() {
			err = errors.Join(err, fileutil.RemoveIfExists(p.DownloadPath))
		}()
	}
	return RoundTrip(ctx, dial, p.LocalPath, p.RemotePath, p.DownloadPath)
}
