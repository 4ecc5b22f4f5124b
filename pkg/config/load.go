package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/rtbench/pkg/membudget"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by NewViper.
// Nested keys use underscores: transfer.ftp.host is RTBENCH_TRANSFER_FTP_HOST.
const EnvPrefix = "RTBENCH"

// NewViper returns a viper instance with every key defaulted and
// environment variables bound. Flags are bound by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// SetDefaults registers d under every config key. Keys without a default
// are invisible to AutomaticEnv during Unmarshal.
func SetDefaults(v *viper.Viper, d Config) {
	v.SetDefault("steps", append([]string{}, d.Steps...))
	v.SetDefault("repeat", d.Repeat)
	v.SetDefault("fail_fast", d.FailFast)
	v.SetDefault("work_dir", d.WorkDir)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("mem_budget", int64(d.MemBudget))
	v.SetDefault("fib_n", d.FibN)
	v.SetDefault("sieve_limit", d.SieveLimit)
	v.SetDefault("sum_count", d.SumCount)
	v.SetDefault("iterations", d.Iterations)
	v.SetDefault("mixed_count", d.MixedCount)
	v.SetDefault("payload_size", int64(d.PayloadSize))
	v.SetDefault("io_file", d.IOFile)
	v.SetDefault("mixed_file", d.MixedFile)

	v.SetDefault("compression.size", int64(d.Compression.Size))
	v.SetDefault("compression.codecs", d.Compression.Codecs)
	v.SetDefault("compression.level", d.Compression.Level)

	t := d.Transfer
	v.SetDefault("transfer.kind", t.Kind)
	v.SetDefault("transfer.local_path", t.LocalPath)
	v.SetDefault("transfer.remote_path", t.RemotePath)
	v.SetDefault("transfer.download_path", t.DownloadPath)
	v.SetDefault("transfer.keep_download", t.KeepDownload)
	v.SetDefault("transfer.payload_size", int64(t.PayloadSize))
	v.SetDefault("transfer.timeout", t.Timeout)

	v.SetDefault("transfer.ftp.host", t.FTP.Host)
	v.SetDefault("transfer.ftp.port", t.FTP.Port)
	v.SetDefault("transfer.ftp.user", t.FTP.User)
	v.SetDefault("transfer.ftp.password", t.FTP.Password)
	v.SetDefault("transfer.ftp.secure", t.FTP.Secure)
	v.SetDefault("transfer.ftp.insecure_skip_verify", t.FTP.InsecureSkipVerify)

	v.SetDefault("transfer.s3.bucket", t.S3.Bucket)
	v.SetDefault("transfer.s3.prefix", t.S3.Prefix)
	v.SetDefault("transfer.s3.region", t.S3.Region)
	v.SetDefault("transfer.s3.endpoint", t.S3.Endpoint)
	v.SetDefault("transfer.s3.force_path_style", t.S3.ForcePathStyle)
	v.SetDefault("transfer.s3.access_key_id", t.S3.AccessKeyID)
	v.SetDefault("transfer.s3.secret_access_key", t.S3.SecretAccessKey)
	v.SetDefault("transfer.s3.part_size", int64(t.S3.PartSize))
	v.SetDefault("transfer.s3.concurrency", t.S3.Concurrency)

	v.SetDefault("transfer.azure.account", t.Azure.Account)
	v.SetDefault("transfer.azure.key", t.Azure.Key)
	v.SetDefault("transfer.azure.container", t.Azure.Container)
	v.SetDefault("transfer.azure.prefix", t.Azure.Prefix)
	v.SetDefault("transfer.azure.endpoint_url", t.Azure.EndpointURL)
	v.SetDefault("transfer.azure.connection_string", t.Azure.ConnectionString)

	v.SetDefault("transfer.gcs.bucket", t.GCS.Bucket)
	v.SetDefault("transfer.gcs.prefix", t.GCS.Prefix)
	v.SetDefault("transfer.gcs.credentials_file", t.GCS.CredentialsFile)
	v.SetDefault("transfer.gcs.endpoint", t.GCS.Endpoint)

	v.SetDefault("transfer.fs.dir", t.FS.Dir)

	v.SetDefault("report.output", d.Report.Output)
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("report.summary", d.Report.Summary)
}

// ReadFile merges a YAML, TOML or JSON config file into v.
// The format is taken from the file extension.
func ReadFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	byteSizeType = reflect.TypeOf(ByteSize(0))
	durationType = reflect.TypeOf(time.Duration(0))
)

// decodeHook converts string values from files and the environment into
// sizes, durations and comma-separated lists. It replaces viper's default
// hooks, so it covers what those did for this Config.
func decodeHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	s, _ := data.(string)

	switch {
	case to == byteSizeType:
		n, err := membudget.ParseHumanSize(s)
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", s, err)
		}
		return ByteSize(n), nil
	case to == durationType:
		if s == "" {
			return time.Duration(0), nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(n), nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("duration %q: %w", s, err)
		}
		return d, nil
	case to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.String:
		if strings.TrimSpace(s) == "" {
			return []string{}, nil
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return data, nil
}
