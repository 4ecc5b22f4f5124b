package bench

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/eunmann/rtbench/internal/logctx"
	"github.com/eunmann/rtbench/pkg/benchutil"
	"github.com/eunmann/rtbench/pkg/codec"
	"github.com/eunmann/rtbench/pkg/config"
	"github.com/eunmann/rtbench/pkg/humanfmt"
	"github.com/eunmann/rtbench/pkg/perfhash"
	"github.com/eunmann/rtbench/pkg/transfer"
	"github.com/eunmann/rtbench/pkg/workload"
)

// Step groups, printed as "-- <group> Test --".
const (
	GroupCPU         = "CPU"
	GroupMemory      = "Memory"
	GroupString      = "String"
	GroupIO          = "I/O"
	GroupMixed       = "Mixed Workload"
	GroupCompression = "Compression"
	GroupNetwork     = "Network"
)

// Step names accepted by Config.Steps.
const (
	StepFib      = "fib"
	StepSieve    = "sieve"
	StepSum      = "sum"
	StepMap      = "map"
	StepHash     = "hash"
	StepConcat   = "concat"
	StepIO       = "io"
	StepMixed    = "mixed"
	StepCompress = "compress"
	StepTransfer = "transfer"
)

// mixedBound is the exclusive upper bound of the mixed workload's values.
const mixedBound = 1_000_000

// Rough per-entry sizes used for footprints.
const (
	mapEntryBytes  = 64
	hashKeyBytes   = 64
	concatPerChar  = 24
	transferBuffer = 64 << 20
)

// DefaultSuite returns every step in suite order. The transfer step is
// included only when a backend is configured.
func DefaultSuite(cfg config.Config) []Step {
	steps := []Step{
		FibStep(cfg),
		SieveStep(cfg),
		SumStep(cfg),
		MapStep(cfg),
		HashStep(cfg),
		ConcatStep(cfg),
		IOStep(cfg),
		MixedStep(cfg),
		CompressStep(cfg),
	}
	if cfg.Transfer.Enabled() {
		steps = append(steps, TransferStep(cfg))
	}
	return steps
}

// Names lists the names of steps.
func Names(steps []Step) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

// Select keeps the named steps in suite order. Empty names keeps all.
// Unknown names are a configuration error.
func Select(steps []Step, names []string) ([]Step, error) {
	if len(names) == 0 {
		return steps, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}

	var out []Step
	for _, s := range steps {
		if want[s.Name] {
			out = append(out, s)
			delete(want, s.Name)
		}
	}
	if len(want) > 0 {
		var unknown []string
		for n := range want {
			unknown = append(unknown, n)
		}
		return nil, fmt.Errorf("%w: unknown steps %s (available: %s)",
			config.ErrInvalid, strings.Join(unknown, ", "), strings.Join(Names(steps), ", "))
	}
	return out, nil
}

// Suite is DefaultSuite filtered by cfg.Steps.
func Suite(cfg config.Config) ([]Step, error) {
	steps, err := Select(DefaultSuite(cfg), cfg.Steps)
	if err != nil {
		if !cfg.Transfer.Enabled() && containsName(cfg.Steps, StepTransfer) {
			return nil, fmt.Errorf("%w: step transfer requires transfer.kind to be set", config.ErrInvalid)
		}
		return nil, err
	}
	return steps, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), name) {
			return true
		}
	}
	return false
}

// FibStep times the iterative Fibonacci computation.
func FibStep(cfg config.Config) Step {
	n := cfg.FibN
	return Step{
		Name:  StepFib,
		Group: GroupCPU,
		Run: func(_ context.Context, rec *Recorder) error {
			start := time.Now()
			v := workload.Fibonacci(n)
			rec.Record(fmt.Sprintf("Fibonacci(%d) = %d", n, v), time.Since(start), 0)
			return nil
		},
	}
}

// SieveStep times the prime sieve.
func SieveStep(cfg config.Config) Step {
	limit := cfg.SieveLimit
	return Step{
		Name:      StepSieve,
		Group:     GroupCPU,
		Footprint: uint64(limit) + 1,
		Run: func(_ context.Context, rec *Recorder) error {
			return rec.Time(fmt.Sprintf("Sieve up to %d", limit), 0, func() error {
				workload.Sieve(limit)
				return nil
			})
		},
	}
}

// SumStep times summing a prebuilt integer sequence.
func SumStep(cfg config.Config) Step {
	count := cfg.SumCount
	return Step{
		Name:      StepSum,
		Group:     GroupMemory,
		Footprint: uint64(count) * 8,
		Run: func(_ context.Context, rec *Recorder) error {
			seq := benchutil.Sequence(count)
			start := time.Now()
			total := workload.Sum(seq)
			rec.Record(fmt.Sprintf("Sum of %d ints: %d", count, total), time.Since(start), int64(count)*8)
			return nil
		},
	}
}

// MapStep times populating a map.
func MapStep(cfg config.Config) Step {
	count := cfg.Iterations
	return Step{
		Name:      StepMap,
		Group:     GroupMemory,
		Footprint: uint64(count) * mapEntryBytes,
		Run: func(_ context.Context, rec *Recorder) error {
			var m map[int]string
			err := rec.Time(fmt.Sprintf("Inserted %s entries", humanfmt.ShortCount(int64(count))), 0, func() error {
				m = workload.Populate(count)
				return nil
			})
			if err == nil && len(m) != count {
				return fmt.Errorf("map has %d entries, want %d", len(m), count)
			}
			return err
		},
	}
}

// HashStep times building and probing a minimal perfect hash index.
func HashStep(cfg config.Config) Step {
	count := cfg.Iterations
	return Step{
		Name:      StepHash,
		Group:     GroupMemory,
		Footprint: uint64(count) * hashKeyBytes,
		Run: func(ctx context.Context, rec *Recorder) error {
			keys := benchutil.Keys(count)
			var idx *perfhash.Index
			err := rec.Time(fmt.Sprintf("Perfect hash over %d keys", count), 0, func() error {
				var err error
				if idx, err = perfhash.Build(keys); err != nil {
					return err
				}
				return idx.Verify(keys)
			})
			if err != nil {
				return err
			}
			if size, err := idx.SizeBytes(); err == nil {
				log := logctx.FromContext(ctx)
				log.Debug().Int("index_bytes", size).Msg("perfect hash built")
			}
			return nil
		},
	}
}

// ConcatStep times slice-append-then-join string building.
func ConcatStep(cfg config.Config) Step {
	count := cfg.Iterations
	return Step{
		Name:      StepConcat,
		Group:     GroupString,
		Footprint: uint64(count) * concatPerChar,
		Run: func(_ context.Context, rec *Recorder) error {
			var s string
			err := rec.Time(fmt.Sprintf("Concatenated %d chars", count), int64(count), func() error {
				s = workload.Concatenate(count)
				return nil
			})
			if err == nil && len(s) != count {
				return fmt.Errorf("concatenated %d chars, want %d", len(s), count)
			}
			return err
		},
	}
}

// IOStep times writing and reading back the fixed payload.
func IOStep(cfg config.Config) Step {
	size := int64(cfg.PayloadSize)
	path := filepath.Join(cfg.WorkDir, cfg.IOFile)
	label := humanfmt.SizeLabel(size)
	return Step{
		Name:      StepIO,
		Group:     GroupIO,
		Footprint: uint64(size) * 2,
		Scratch:   []string{cfg.IOFile},
		Run: func(_ context.Context, rec *Recorder) error {
			payload := benchutil.Payload(int(size))
			t, err := workload.WriteRead(path, payload)
			if err != nil {
				return err
			}
			rec.Record("Write "+label, t.Write, size)
			rec.Record("Read "+label, t.Read, t.Bytes)
			return nil
		},
	}
}

// MixedStep times sort, sum, write and read of random integers.
func MixedStep(cfg config.Config) Step {
	count := cfg.MixedCount
	seed := cfg.Seed
	path := filepath.Join(cfg.WorkDir, cfg.MixedFile)
	return Step{
		Name:      StepMixed,
		Group:     GroupMixed,
		Footprint: uint64(count) * 8,
		Scratch:   []string{cfg.MixedFile},
		Run: func(_ context.Context, rec *Recorder) error {
			seq := benchutil.RandomInts(count, mixedBound, seed)
			want := workload.Sum(seq)
			res, err := workload.Mixed(path, seq)
			if err != nil {
				return err
			}
			rec.Record("Mixed workload (sort+sum+write+read)", res.Elapsed, 0)
			if res.Sum != want {
				return fmt.Errorf("mixed read back %d, want %d", res.Sum, want)
			}
			return nil
		},
	}
}

// CompressStep times compressing a text payload with each configured codec.
func CompressStep(cfg config.Config) Step {
	c := cfg.Compression
	seed := cfg.Seed
	var level *int
	if c.Level != 0 {
		l := c.Level
		level = &l
	}
	return Step{
		Name:      StepCompress,
		Group:     GroupCompression,
		Footprint: uint64(c.Size) * 2,
		Run: func(ctx context.Context, rec *Recorder) error {
			payload := benchutil.TextPayload(int(c.Size), seed)
			for _, name := range c.Codecs {
				if err := ctx.Err(); err != nil {
					return err
				}
				t, err := codec.Parse(name)
				if err != nil {
					return err
				}
				start := time.Now()
				n, err := codec.CompressedSize(payload, t, level)
				if err != nil {
					return err
				}
				elapsed := time.Since(start)
				label := fmt.Sprintf("Compress %s (%s) ratio %.2f",
					humanfmt.SizeLabel(int64(c.Size)), t, codec.Ratio(int64(len(payload)), n))
				rec.Record(label, elapsed, int64(len(payload)))
			}
			return nil
		},
	}
}

// TransferStep times an upload/download round trip to the configured
// backend. Dial and transfer errors fail only this step.
func TransferStep(cfg config.Config) Step {
	tc := cfg.Transfer
	plan := transfer.NewPlan(tc, cfg.WorkDir)
	return Step{
		Name:      StepTransfer,
		Group:     GroupNetwork,
		Footprint: uint64(plan.Size) + transferBuffer,
		Scratch:   plan.ScratchFiles(),
		Run: func(ctx context.Context, rec *Recorder) error {
			dial, err := transfer.NewDialer(tc)
			if err != nil {
				return err
			}
			ctx = logctx.WithBackend(ctx, tc.Kind)
			res, err := plan.Run(ctx, dial)
			if err != nil {
				return err
			}
			size := humanfmt.SizeLabel(res.Bytes)
			rec.Record(fmt.Sprintf("Upload %s (%s)", size, tc.Kind), res.Upload, res.Bytes)
			rec.Record(fmt.Sprintf("Download %s (%s)", size, tc.Kind), res.Download, res.Bytes)
			rec.Record(fmt.Sprintf("Round trip (%s)", tc.Kind), res.Total, 2*res.Bytes)
			return nil
		},
	}
}
