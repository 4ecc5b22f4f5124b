package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eunmann/rtbench/internal/logctx"
	"github.com/eunmann/rtbench/pkg/bench"
	"github.com/eunmann/rtbench/pkg/config"
	"github.com/eunmann/rtbench/pkg/humanfmt"
	"github.com/eunmann/rtbench/pkg/logging"
	"github.com/eunmann/rtbench/pkg/memdiag"
	"github.com/eunmann/rtbench/pkg/report"
	"github.com/eunmann/rtbench/pkg/transfer"
	"github.com/eunmann/rtbench/pkg/workload"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSuite(cmd)
		},
	}

	fs := cmd.Flags()
	fs.StringSlice("steps", nil, "steps to run, in suite order (default all)")
	fs.Int("repeat", 1, "repetitions per step")
	fs.Bool("fail-fast", false, "stop at the first failing step")
	fs.String("work-dir", ".", "directory for scratch files")
	fs.Int64("seed", 42, "seed for generated data")
	fs.Int("fib-n", 40, "Fibonacci index")
	fs.Int("sieve-limit", 1_000_000, "prime sieve upper bound")
	fs.Int("sum-count", 10_000_000, "integers summed by the sum step")
	fs.Int("iterations", 1_000_000, "entries for the map, hash and concat steps")
	fs.Int("mixed-count", 1_000_000, "integers in the mixed workload")
	fs.String("payload-size", "100MB", "size written and read by the io step")
	fs.StringSlice("codecs", nil, "compression codecs")
	fs.String("transfer-kind", "", "transfer backend: ftp, s3, azure, gcs or fs (default none)")
	fs.String("output", "", "export results to this file")
	fs.String("format", "json", "export format: json, yaml, csv or parquet")
	fs.Bool("summary", false, "print a summary table after the run")

	for name, key := range map[string]string{
		"steps":         "steps",
		"repeat":        "repeat",
		"fail-fast":     "fail_fast",
		"work-dir":      "work_dir",
		"seed":          "seed",
		"fib-n":         "fib_n",
		"sieve-limit":   "sieve_limit",
		"sum-count":     "sum_count",
		"iterations":    "iterations",
		"mixed-count":   "mixed_count",
		"payload-size":  "payload_size",
		"codecs":        "compression.codecs",
		"transfer-kind": "transfer.kind",
		"output":        "report.output",
		"format":        "report.format",
		"summary":       "report.summary",
	} {
		bindFlag(fs, name, key)
	}
	return cmd
}

func (a *app) runSuite(cmd *cobra.Command) error {
	cfg := a.cfg

	var format report.Format
	if cfg.Report.Output != "" {
		f, err := report.ParseFormat(cfg.Report.Format)
		if err != nil {
			return err
		}
		format = f
	}

	steps, err := bench.Suite(cfg)
	if err != nil {
		return err
	}
	budget, err := determineMemoryBudget(a.memBudget, cfg.MemBudget)
	if err != nil {
		return err
	}
	logging.L().Info().
		Str("budget", humanfmt.Bytes(int64(budget.Total()))).
		Str("source", string(budget.Source())).
		Strs("steps", bench.Names(steps)).
		Msg("starting run")

	tracker := memdiag.NewTracker(memdiag.DefaultConfig())
	tracker.Start()
	defer tracker.Stop()

	runner := bench.NewRunner(cfg, steps,
		bench.WithOutput(a.stdout),
		bench.WithBudget(budget),
		bench.WithTracker(tracker),
	)
	rep, runErr := runner.Run(cmd.Context())
	if peak := tracker.PeakHeap(); peak > 0 {
		logging.L().Info().Str("peak_heap", humanfmt.Bytes(int64(peak))).Msg("memory diagnostics")
	}

	var exportErr error
	if cfg.Report.Output != "" {
		if exportErr = report.Write(cfg.Report.Output, format, rep); exportErr == nil {
			logging.L().Info().Str("report", report.Describe(cfg.Report.Output, format)).Msg("results exported")
		}
	}
	if cfg.Report.Summary {
		fmt.Fprintln(a.stdout)
		exportErr = errors.Join(exportErr, report.Summary(a.stdout, rep))
	}
	return errors.Join(runErr, exportErr)
}

func newPrimesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "primes",
		Short: "Time the prime sieve on its own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPrimes(cmd)
		},
	}
	fs := cmd.Flags()
	fs.Int("limit", 1_000_000, "sieve upper bound")
	fs.Int("repeat", 1, "repetitions")
	bindFlag(fs, "limit", "sieve_limit")
	bindFlag(fs, "repeat", "repeat")
	return cmd
}

func (a *app) runPrimes(cmd *cobra.Command) error {
	limit := a.cfg.SieveLimit
	for range a.cfg.Repeat {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		start := time.Now()
		primes := workload.Primes(limit)
		elapsed := time.Since(start)

		fmt.Fprintf(a.stdout, "Prime computation time for limit %d: %s milliseconds\n", limit, humanfmt.MillisString(elapsed))
		fmt.Fprintf(a.stdout, "Primes found: %d\n", len(primes))
		logging.StepCompleted(*logging.L(), "primes", elapsed).
			Int("limit", limit).
			Count("primes", int64(len(primes))).
			Log("primes computed")
	}
	return nil
}

func newTransferCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Time one upload/download round trip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTransfer(cmd)
		},
	}

	fs := cmd.Flags()
	fs.String("kind", "", "backend: ftp, s3, azure, gcs or fs")
	fs.String("work-dir", ".", "directory for the generated and downloaded files")
	fs.String("local", "", "file to upload (default: generated payload)")
	fs.String("remote", "/remote_testfile.dat", "remote path or object key")
	fs.String("download", "", "where to write the downloaded copy")
	fs.Bool("keep-download", false, "keep the downloaded copy")
	fs.String("payload-size", "10MB", "size of the generated payload")
	fs.Duration("timeout", 30*time.Second, "dial timeout")
	fs.String("host", "", "FTP host")
	fs.Int("port", 21, "FTP port")
	fs.String("user", "", "FTP user")
	fs.String("password", "", "FTP password")
	fs.Bool("secure", false, "FTP explicit TLS")
	fs.String("s3-bucket", "", "S3 bucket")
	fs.String("gcs-bucket", "", "GCS bucket")
	fs.String("endpoint", "", "S3-compatible endpoint URL")
	fs.String("container", "", "Azure container")
	fs.String("dir", "", "directory used as the remote by the fs backend")

	for name, key := range map[string]string{
		"kind":          "transfer.kind",
		"work-dir":      "work_dir",
		"local":         "transfer.local_path",
		"remote":        "transfer.remote_path",
		"download":      "transfer.download_path",
		"keep-download": "transfer.keep_download",
		"payload-size":  "transfer.payload_size",
		"timeout":       "transfer.timeout",
		"host":          "transfer.ftp.host",
		"port":          "transfer.ftp.port",
		"user":          "transfer.ftp.user",
		"password":      "transfer.ftp.password",
		"secure":        "transfer.ftp.secure",
		"s3-bucket":     "transfer.s3.bucket",
		"gcs-bucket":    "transfer.gcs.bucket",
		"endpoint":      "transfer.s3.endpoint",
		"container":     "transfer.azure.container",
		"dir":           "transfer.fs.dir",
	} {
		bindFlag(fs, name, key)
	}
	return cmd
}

func (a *app) runTransfer(cmd *cobra.Command) error {
	tc := a.cfg.Transfer
	if !tc.Enabled() {
		return fmt.Errorf("%w: no transfer backend configured (--kind or transfer.kind)", config.ErrInvalid)
	}

	dial, err := transfer.NewDialer(tc)
	if err != nil {
		return err
	}
	ctx := logctx.WithBackend(cmd.Context(), tc.Kind)
	plan := transfer.NewPlan(tc, a.cfg.WorkDir)
	res, err := plan.Run(ctx, dial)
	if err != nil {
		return err
	}

	size := humanfmt.SizeLabel(res.Bytes)
	fmt.Fprintln(a.stdout, bench.FormatLine(fmt.Sprintf("Upload %s (%s)", size, tc.Kind), res.Upload))
	fmt.Fprintln(a.stdout, bench.FormatLine(fmt.Sprintf("Download %s (%s)", size, tc.Kind), res.Download))
	fmt.Fprintf(a.stdout, "Total time (ms): %d\n", res.Total.Milliseconds())

	logging.TransferCompleted(logctx.FromContext(ctx), tc.Kind, res.Total).
		Bytes("bytes", res.Bytes).
		Throughput(2 * res.Bytes).
		Log("transfer completed")
	return nil
}

func newStepsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the steps of the suite",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			for _, s := range bench.DefaultSuite(a.cfg) {
				fmt.Fprintf(a.stdout, "%-10s %-16s %s\n", s.Name, s.Group, humanfmt.Bytes(int64(s.Footprint)))
			}
			return nil
		},
	}
}
