// Package config defines the benchmark run configuration and loads it
// from defaults, a config file, RTBENCH_* environment variables and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eunmann/rtbench/pkg/codec"
	"github.com/eunmann/rtbench/pkg/humanfmt"
)

// Scratch file names used in the work directory.
const (
	DefaultIOFile    = "test_io.txt"
	DefaultMixedFile = "mixed.txt"
)

// Transfer backend kinds.
const (
	KindNone  = ""
	KindFTP   = "ftp"
	KindS3    = "s3"
	KindAzure = "azure"
	KindGCS   = "gcs"
	KindFS    = "fs"
)

// Kinds lists the supported transfer backends.
var Kinds = []string{KindFTP, KindS3, KindAzure, KindGCS, KindFS}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// maxFibonacci is the largest n whose Fibonacci number fits in a uint64.
const maxFibonacci = 93

// ByteSize is a byte count that accepts human strings ("100MB", "16MiB")
// in config files and environment variables.
type ByteSize int64

// String formats the size the way run labels print it.
func (s ByteSize) String() string { return humanfmt.SizeLabel(int64(s)) }

// Config is the complete configuration of one benchmark run.
type Config struct {
	// Steps selects suite steps by name. Empty runs the default suite.
	Steps    []string `mapstructure:"steps" json:"steps,omitempty" yaml:"steps,omitempty"`
	Repeat   int      `mapstructure:"repeat" json:"repeat" yaml:"repeat"`
	FailFast bool     `mapstructure:"fail_fast" json:"fail_fast" yaml:"fail_fast"`
	WorkDir  string   `mapstructure:"work_dir" json:"work_dir" yaml:"work_dir"`
	Seed     int64    `mapstructure:"seed" json:"seed" yaml:"seed"`
	// MemBudget caps the summed step footprints. Zero leaves the budget
	// to the environment or to 50% of system RAM.
	MemBudget ByteSize `mapstructure:"mem_budget" json:"mem_budget,omitempty" yaml:"mem_budget,omitempty"`

	FibN       int `mapstructure:"fib_n" json:"fib_n" yaml:"fib_n"`
	SieveLimit int `mapstructure:"sieve_limit" json:"sieve_limit" yaml:"sieve_limit"`
	SumCount   int `mapstructure:"sum_count" json:"sum_count" yaml:"sum_count"`
	// Iterations sizes the map, hash and concatenation steps.
	Iterations int `mapstructure:"iterations" json:"iterations" yaml:"iterations"`
	MixedCount int `mapstructure:"mixed_count" json:"mixed_count" yaml:"mixed_count"`

	PayloadSize ByteSize `mapstructure:"payload_size" json:"payload_size" yaml:"payload_size"`
	IOFile      string   `mapstructure:"io_file" json:"io_file" yaml:"io_file"`
	MixedFile   string   `mapstructure:"mixed_file" json:"mixed_file" yaml:"mixed_file"`

	Compression CompressionConfig `mapstructure:"compression" json:"compression" yaml:"compression"`
	Transfer    TransferConfig    `mapstructure:"transfer" json:"transfer" yaml:"transfer"`
	Report      ReportConfig      `mapstructure:"report" json:"report" yaml:"report"`
}

// CompressionConfig configures the compression step.
type CompressionConfig struct {
	Size   ByteSize `mapstructure:"size" json:"size" yaml:"size"`
	Codecs []string `mapstructure:"codecs" json:"codecs" yaml:"codecs"`
	// Level is passed to codecs that take one. Zero uses each codec's default.
	Level int `mapstructure:"level" json:"level" yaml:"level"`
}

// TransferConfig configures the network round trip. An empty Kind
// disables the transfer step.
type TransferConfig struct {
	Kind         string        `mapstructure:"kind" json:"kind" yaml:"kind"`
	LocalPath    string        `mapstructure:"local_path" json:"local_path" yaml:"local_path"`
	RemotePath   string        `mapstructure:"remote_path" json:"remote_path" yaml:"remote_path"`
	DownloadPath string        `mapstructure:"download_path" json:"download_path" yaml:"download_path"`
	KeepDownload bool          `mapstructure:"keep_download" json:"keep_download" yaml:"keep_download"`
	PayloadSize  ByteSize      `mapstructure:"payload_size" json:"payload_size" yaml:"payload_size"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`

	FTP   FTPConfig   `mapstructure:"ftp" json:"ftp" yaml:"ftp"`
	S3    S3Config    `mapstructure:"s3" json:"s3" yaml:"s3"`
	Azure AzureConfig `mapstructure:"azure" json:"azure" yaml:"azure"`
	GCS   GCSConfig   `mapstructure:"gcs" json:"gcs" yaml:"gcs"`
	FS    FSConfig    `mapstructure:"fs" json:"fs" yaml:"fs"`
}

// FTPConfig holds FTP connection settings.
type FTPConfig struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host"`
	Port     int    `mapstructure:"port" json:"port" yaml:"port"`
	User     string `mapstructure:"user" json:"user" yaml:"user"`
	Password string `mapstructure:"password" json:"-" yaml:"-"`
	// Secure enables explicit TLS (AUTH TLS).
	Secure             bool `mapstructure:"secure" json:"secure" yaml:"secure"`
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// Addr returns host:port.
func (c FTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// S3Config holds S3 or S3-compatible settings.
type S3Config struct {
	Bucket          string   `mapstructure:"bucket" json:"bucket" yaml:"bucket"`
	Prefix          string   `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	Region          string   `mapstructure:"region" json:"region" yaml:"region"`
	Endpoint        string   `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	ForcePathStyle  bool     `mapstructure:"force_path_style" json:"force_path_style" yaml:"force_path_style"`
	AccessKeyID     string   `mapstructure:"access_key_id" json:"-" yaml:"-"`
	SecretAccessKey string   `mapstructure:"secret_access_key" json:"-" yaml:"-"`
	PartSize        ByteSize `mapstructure:"part_size" json:"part_size" yaml:"part_size"`
	Concurrency     int      `mapstructure:"concurrency" json:"concurrency" yaml:"concurrency"`
}

// AzureConfig holds Azure Blob Storage settings.
type AzureConfig struct {
	Account          string `mapstructure:"account" json:"account" yaml:"account"`
	Key              string `mapstructure:"key" json:"-" yaml:"-"`
	Container        string `mapstructure:"container" json:"container" yaml:"container"`
	Prefix           string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	EndpointURL      string `mapstructure:"endpoint_url" json:"endpoint_url" yaml:"endpoint_url"`
	ConnectionString string `mapstructure:"connection_string" json:"-" yaml:"-"`
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" json:"bucket" yaml:"bucket"`
	Prefix          string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file" json:"-" yaml:"-"`
	Endpoint        string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
}

// FSConfig points the fs backend at a local directory.
type FSConfig struct {
	Dir string `mapstructure:"dir" json:"dir" yaml:"dir"`
}

// ReportConfig controls result export.
type ReportConfig struct {
	Output  string `mapstructure:"output" json:"output" yaml:"output"`
	Format  string `mapstructure:"format" json:"format" yaml:"format"`
	Summary bool   `mapstructure:"summary" json:"summary" yaml:"summary"`
}

// Default returns the stock suite sizes: Fibonacci(40), 100MB of file I/O,
// one million map entries.
func Default() Config {
	return Config{
		Repeat:      1,
		WorkDir:     ".",
		Seed:        42,
		FibN:        40,
		SieveLimit:  1_000_000,
		SumCount:    10_000_000,
		Iterations:  1_000_000,
		MixedCount:  1_000_000,
		PayloadSize: 100 * humanfmt.MB,
		IOFile:      DefaultIOFile,
		MixedFile:   DefaultMixedFile,
		Compression: CompressionConfig{
			Size:   16 * humanfmt.MB,
			Codecs: []string{string(codec.TypeGzip), string(codec.TypeSnappy), string(codec.TypeLZ4), string(codec.TypeS2), string(codec.TypeZstd)},
		},
		Transfer: TransferConfig{
			LocalPath:   "",
			RemotePath:  "/remote_testfile.dat",
			PayloadSize: 10 * humanfmt.MB,
			Timeout:     30 * time.Second,
			FTP:         FTPConfig{Port: 21},
			S3: S3Config{
				Region:      "us-east-1",
				PartSize:    16 * humanfmt.MiB,
				Concurrency: 4,
			},
		},
		Report: ReportConfig{Format: "json"},
	}
}

// Validate checks value ranges and backend requirements.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Repeat < 1 {
		bad("repeat must be at least 1, got %d", c.Repeat)
	}
	if strings.TrimSpace(c.WorkDir) == "" {
		bad("work_dir must not be empty")
	}
	if c.FibN < 0 || c.FibN > maxFibonacci {
		bad("fib_n must be in [0, %d], got %d", maxFibonacci, c.FibN)
	}
	for name, v := range map[string]int{
		"sieve_limit": c.SieveLimit,
		"sum_count":   c.SumCount,
		"iterations":  c.Iterations,
		"mixed_count": c.MixedCount,
	} {
		if v < 0 {
			bad("%s must not be negative, got %d", name, v)
		}
	}
	if c.MemBudget < 0 {
		bad("mem_budget must not be negative")
	}
	if c.PayloadSize < 0 {
		bad("payload_size must not be negative")
	}
	if c.IOFile == "" || c.MixedFile == "" {
		bad("io_file and mixed_file must be set")
	}

	if c.Compression.Size < 0 {
		bad("compression.size must not be negative")
	}
	for _, name := range c.Compression.Codecs {
		if _, err := codec.Parse(name); err != nil {
			bad("compression.codecs: %v", err)
		}
	}

	if err := c.Transfer.validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Enabled reports whether a transfer backend is configured.
func (t *TransferConfig) Enabled() bool {
	return t.Kind != KindNone
}

func (t *TransferConfig) validate() error {
	if !t.Enabled() {
		return nil
	}
	missing := func(field string) error {
		return fmt.Errorf("%w: transfer.%s is required for kind %q", ErrInvalid, field, t.Kind)
	}
	if t.RemotePath == "" {
		return missing("remote_path")
	}
	if t.LocalPath == "" && t.PayloadSize <= 0 {
		return fmt.Errorf("%w: transfer.payload_size must be positive when no local_path is set", ErrInvalid)
	}
	switch t.Kind {
	case KindFTP:
		if t.FTP.Host == "" {
			return missing("ftp.host")
		}
		if t.FTP.Port <= 0 || t.FTP.Port > 65535 {
			return fmt.Errorf("%w: transfer.ftp.port out of range: %d", ErrInvalid, t.FTP.Port)
		}
	case KindS3:
		if t.S3.Bucket == "" {
			return missing("s3.bucket")
		}
	case KindAzure:
		if t.Azure.Container == "" {
			return missing("azure.container")
		}
		if t.Azure.ConnectionString == "" && (t.Azure.Account == "" || t.Azure.Key == "") {
			return missing("azure.account and transfer.azure.key (or connection_string)")
		}
	case KindGCS:
		if t.GCS.Bucket == "" {
			return missing("gcs.bucket")
		}
	case KindFS:
		if t.FS.Dir == "" {
			return missing("fs.dir")
		}
	default:
		return fmt.Errorf("%w: unknown transfer kind %q (want one of %s)", ErrInvalid, t.Kind, strings.Join(Kinds, ", "))
	}
	return nil
}
