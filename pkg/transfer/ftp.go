package transfer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/eunmann/rtbench/internal/logctx"
	"github.com/eunmann/rtbench/pkg/config"
	"github.com/jlaffaye/ftp"
)

// FTP is a logged-in FTP control connection. Transfers use passive mode.
type FTP struct {
	conn *ftp.ServerConn
	addr string
}

// DialFTP connects to cfg.Addr(), optionally upgrading to explicit TLS,
// and logs in. A failed login closes the connection before returning.
func DialFTP(ctx context.Context, cfg config.FTPConfig, timeout time.Duration) (*FTP, error) {
	addr := cfg.Addr()
	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(timeout))
	}
	if cfg.Secure {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for self-signed test servers
			MinVersion:         tls.VersionTLS12,
		}))
	}

	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial ftp %s: %w", addr, err)
	}

	user := cfg.User
	if user == "" {
		user = "anonymous"
	}
	if err := conn.Login(user, cfg.Password); err != nil {
		return nil, errors.Join(fmt.Errorf("login ftp %s as %s: %w", addr, user, err), conn.Quit())
	}

	log := logctx.FromContext(ctx)
	log.Debug().
		Str("addr", addr).
		Bool("tls", cfg.Secure).
		Msg("ftp logged in")

	return &FTP{conn: conn, addr: addr}, nil
}

// Upload stores r at remotePath.
func (f *FTP) Upload(ctx context.Context, remotePath string, r io.Reader, _ int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.conn.Stor(remotePath, r); err != nil {
		return fmt.Errorf("ftp stor %s: %w", remotePath, err)
	}
	return nil
}

// Download retrieves remotePath into w.
func (f *FTP) Download(ctx context.Context, remotePath string, w io.Writer) (n int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	resp, err := f.conn.Retr(remotePath)
	if err != nil {
		return 0, fmt.Errorf("ftp retr %s: %w", remotePath, err)
	}
	defer func() {
		if cerr := resp.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("ftp retr %s: close: %w", remotePath, cerr))
		}
	}()

	n, err = io.Copy(w, resp)
	if err != nil {
		return n, fmt.Errorf("ftp retr %s: copy: %w", remotePath, err)
	}
	return n, nil
}

// Close sends QUIT and closes the control connection.
func (f *FTP) Close() error {
	if err := f.conn.Quit(); err != nil {
		return fmt.Errorf("ftp quit %s: %w", f.addr, err)
	}
	return nil
}
