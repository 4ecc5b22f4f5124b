package bench

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eunmann/rtbench/internal/logctx"
	"github.com/eunmann/rtbench/pkg/config"
	"github.com/eunmann/rtbench/pkg/membudget"
)

var testHost = Host{GOOS: "linux", GOARCH: "amd64", NumCPU: 4, GoVersion: "go1.25", TotalMemory: 8 << 30, MemoryReliable: true}

func newTestRunner(t *testing.T, cfg config.Config, steps []Step, opts ...Option) (*Runner, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{
		WithOutput(&out),
		WithHost(testHost),
		WithBudget(membudget.New(membudget.Config{TotalBytes: 1 << 30})),
	}, opts...)
	return NewRunner(cfg, steps, opts...), &out
}

func fixedStep(name, group string, d time.Duration) Step {
	return Step{
		Name:  name,
		Group: group,
		Run: func(_ context.Context, rec *Recorder) error {
			rec.Record(name, d, 0)
			return nil
		},
	}
}

func failingStep(name string, err error) Step {
	return Step{
		Name:  name,
		Group: GroupCPU,
		Run:   func(context.Context, *Recorder) error { return err },
	}
}

func TestFormatLine(t *testing.T) {
	tests := []struct {
		label   string
		elapsed time.Duration
		want    string
	}{
		{"Fibonacci(40) = 102334155", 1234567 * time.Nanosecond, "Fibonacci(40) = 102334155 | Time: 1.23 ms"},
		{"Write 100MB", 250 * time.Millisecond, "Write 100MB | Time: 250.00 ms"},
		{"zero", 0, "zero | Time: 0.00 ms"},
	}
	for _, tt := range tests {
		if got := FormatLine(tt.label, tt.elapsed); got != tt.want {
			t.Errorf("FormatLine(%q, %v) = %q, want %q", tt.label, tt.elapsed, got, tt.want)
		}
	}
}

func TestRunPrintsBannerHeadersAndLines(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	steps := []Step{
		fixedStep("a", GroupCPU, time.Millisecond),
		fixedStep("b", GroupCPU, 2*time.Millisecond),
		fixedStep("c", GroupIO, 3*time.Millisecond),
	}
	r, out := newTestRunner(t, cfg, steps)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := strings.Join([]string{
		Banner,
		testHost.String(),
		"",
		"-- CPU Test --",
		"a | Time: 1.00 ms",
		"b | Time: 2.00 ms",
		"",
		"-- I/O Test --",
		"c | Time: 3.00 ms",
		"",
	}, "\n")
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}
	if report.RunID == "" {
		t.Error("RunID is empty")
	}
	if got := len(report.Samples()); got != 3 {
		t.Errorf("samples = %d, want 3", got)
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	boom := errors.New("boom")
	steps := []Step{
		failingStep("bad", boom),
		fixedStep("good", GroupCPU, time.Millisecond),
	}
	r, out := newTestRunner(t, cfg, steps)

	report, err := r.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want boom", err)
	}
	if !strings.Contains(out.String(), "good | Time:") {
		t.Errorf("later step did not run:\n%s", out.String())
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Name != "bad" {
		t.Errorf("Failed() = %+v, want only bad", failed)
	}
	if failed[0].Error == "" {
		t.Error("failed step has no error text")
	}
}

func TestRunLogsStepOnce(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	inner := Step{
		Name:  "inner",
		Group: GroupCPU,
		Run: func(ctx context.Context, rec *Recorder) error {
			log := logctx.FromContext(ctx)
			log.Info().Msg("inside step")
			rec.Record("inner", time.Millisecond, 0)
			return nil
		},
	}
	steps := []Step{inner, failingStep("bad", errors.New("boom"))}
	r, _ := newTestRunner(t, cfg, steps)

	var logs bytes.Buffer
	ctx := logctx.WithLogger(context.Background(), zerolog.New(&logs).Level(zerolog.DebugLevel))
	_, _ = r.Run(ctx)

	var sawInside, sawCompleted bool
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if n := strings.Count(line, `"step":`); n > 1 {
			t.Errorf("step key repeated %d times: %s", n, line)
		}
		if strings.Contains(line, `"step":""`) {
			t.Errorf("empty step field: %s", line)
		}
		if strings.Contains(line, "inside step") {
			sawInside = strings.Contains(line, `"step":"inner"`) && strings.Contains(line, `"repeat":1`)
		}
		if strings.Contains(line, `"event":"step_completed"`) {
			sawCompleted = strings.Contains(line, `"step":"inner"`)
		}
	}
	if !sawInside {
		t.Errorf("step output lacks its step or repeat field:\n%s", logs.String())
	}
	if !sawCompleted {
		t.Errorf("step_completed lacks its step field:\n%s", logs.String())
	}
}

func TestRunFailFast(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	cfg.FailFast = true
	steps := []Step{
		failingStep("bad", errors.New("boom")),
		fixedStep("good", GroupCPU, time.Millisecond),
	}
	r, out := newTestRunner(t, cfg, steps)

	report, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(out.String(), "good | Time:") {
		t.Error("step after failure ran with fail-fast set")
	}
	if !report.Steps[1].Skipped {
		t.Error("step after failure not marked skipped")
	}
}

func TestRunOverBudgetSkipsStep(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	ran := false
	big := Step{
		Name:      "big",
		Group:     GroupMemory,
		Footprint: 2 << 20,
		Run: func(context.Context, *Recorder) error {
			ran = true
			return nil
		},
	}
	r, _ := newTestRunner(t, cfg, []Step{big, fixedStep("small", GroupMemory, 0)},
		WithBudget(membudget.New(membudget.Config{TotalBytes: 1 << 20})))

	report, err := r.Run(context.Background())
	if !errors.Is(err, ErrOverBudget) || !errors.Is(err, membudget.ErrExceeded) {
		t.Fatalf("Run error = %v, want ErrOverBudget wrapping ErrExceeded", err)
	}
	if ran {
		t.Error("over-budget step ran")
	}
	if !report.Steps[0].Skipped {
		t.Error("over-budget step not marked skipped")
	}
	if len(report.Steps[1].Samples) != 1 {
		t.Error("following step did not run")
	}
}

func TestRunReleasesBudget(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	budget := membudget.New(membudget.Config{TotalBytes: 1 << 20})
	step := fixedStep("a", GroupCPU, 0)
	step.Footprint = 1 << 20
	r, _ := newTestRunner(t, cfg, []Step{step, step}, WithBudget(budget))

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if budget.InUse() != 0 {
		t.Errorf("InUse() = %d after run, want 0", budget.InUse())
	}
}

func TestRunRepeat(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	cfg.Repeat = 3
	r, out := newTestRunner(t, cfg, []Step{fixedStep("a", GroupCPU, time.Millisecond)})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	samples := report.Steps[0].Samples
	if len(samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(samples))
	}
	for i, s := range samples {
		if s.Repeat != i+1 {
			t.Errorf("samples[%d].Repeat = %d, want %d", i, s.Repeat, i+1)
		}
	}
	if got := strings.Count(out.String(), "-- CPU Test --"); got != 1 {
		t.Errorf("group header printed %d times, want 1", got)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	steps := []Step{
		{
			Name:  "cancel",
			Group: GroupCPU,
			Run: func(_ context.Context, rec *Recorder) error {
				cancel()
				rec.Record("cancel", 0, 0)
				return nil
			},
		},
		fixedStep("after", GroupCPU, 0),
	}
	r, out := newTestRunner(t, cfg, steps)

	report, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if strings.Contains(out.String(), "after | Time:") {
		t.Error("step ran after cancellation")
	}
	if !report.Steps[1].Skipped {
		t.Error("step after cancellation not marked skipped")
	}
}

func TestRunRecoversPanic(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	steps := []Step{
		{Name: "panics", Group: GroupCPU, Run: func(context.Context, *Recorder) error { panic("index out of range") }},
		fixedStep("after", GroupCPU, 0),
	}
	r, out := newTestRunner(t, cfg, steps)

	_, err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "index out of range") {
		t.Fatalf("Run error = %v, want recovered panic", err)
	}
	if !strings.Contains(out.String(), "after | Time:") {
		t.Error("step after panic did not run")
	}
}

func TestRunRemovesLeftoverScratch(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.WorkDir = dir
	leftover := filepath.Join(dir, "left.dat")
	unrelated := filepath.Join(dir, "keep.txt")
	for _, p := range []string{leftover, unrelated} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	step := fixedStep("a", GroupCPU, 0)
	step.Scratch = []string{"left.dat"}
	r, _ := newTestRunner(t, cfg, []Step{step})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Error("leftover scratch file not removed")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}
