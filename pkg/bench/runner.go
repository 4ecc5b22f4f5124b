package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eunmann/rtbench/internal/logctx"
	"github.com/eunmann/rtbench/pkg/config"
	"github.com/eunmann/rtbench/pkg/fileutil"
	"github.com/eunmann/rtbench/pkg/humanfmt"
	"github.com/eunmann/rtbench/pkg/logging"
	"github.com/eunmann/rtbench/pkg/membudget"
	"github.com/eunmann/rtbench/pkg/memdiag"
)

// Banner is printed before the first step.
const Banner = "=== Go Benchmark ==="

// ErrOverBudget is recorded for a step whose footprint does not fit in
// the memory budget. The step is not run.
var ErrOverBudget = errors.New("step footprint exceeds memory budget")

// Step is one entry of the suite.
type Step struct {
	Name  string
	Group string
	// Footprint is the estimated peak memory of one repetition in bytes.
	Footprint uint64
	// Scratch lists file names the step creates in the work directory.
	// Leftovers from an interrupted run are removed before the run starts.
	Scratch []string
	Run     func(ctx context.Context, rec *Recorder) error
}

// Runner executes steps strictly one after another.
type Runner struct {
	cfg     config.Config
	steps   []Step
	out     io.Writer
	budget  *membudget.Budget
	tracker *memdiag.Tracker
	host    Host
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where banner, headers and sample lines are printed.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithBudget sets the memory budget steps reserve their footprint from.
func WithBudget(b *membudget.Budget) Option {
	return func(r *Runner) { r.budget = b }
}

// WithTracker attaches a memory tracker that is told which step runs.
func WithTracker(t *memdiag.Tracker) Option {
	return func(r *Runner) { r.tracker = t }
}

// WithHost overrides the detected host description.
func WithHost(h Host) Option {
	return func(r *Runner) { r.host = h }
}

// NewRunner creates a runner for steps. Defaults: stdout, a budget of half
// the system RAM, no tracker.
func NewRunner(cfg config.Config, steps []Step, opts ...Option) *Runner {
	r := &Runner{
		cfg:   cfg,
		steps: steps,
		out:   os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.budget == nil {
		r.budget = membudget.NewFromSystemRAM()
	}
	if r.host == (Host{}) {
		r.host = CurrentHost()
	}
	return r
}

// Run executes every step Repeat times. A failing step is logged and
// recorded, and the run continues with the next step unless FailFast is
// set. The returned error joins every step failure; the report is
// returned in all cases.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Host:      r.host,
		Config:    r.cfg,
	}
	ctx = logctx.WithRunID(ctx, report.RunID)
	log := logctx.FromContext(ctx)

	r.cleanupScratch(ctx)

	fmt.Fprintln(r.out, Banner)
	fmt.Fprintln(r.out, r.host.String())

	repeat := max(r.cfg.Repeat, 1)
	progress := logging.NewProgressTracker("run", int64(len(r.steps)*repeat), log)

	var (
		errs      []error
		lastGroup string
		stopped   bool
	)
	for i, step := range r.steps {
		res := StepResult{Name: step.Name, Group: step.Group}

		if stopped {
			res.Skipped = true
			report.Steps = append(report.Steps, res)
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("run cancelled before step %s: %w", step.Name, err))
			stopped = true
			res.Skipped = true
			report.Steps = append(report.Steps, res)
			continue
		}

		if step.Group != lastGroup {
			fmt.Fprintf(r.out, "\n-- %s Test --\n", step.Group)
			lastGroup = step.Group
		}

		logging.StepStarted(log, step.Name, step.Group, i+1, len(r.steps))
		if r.tracker != nil {
			r.tracker.SetStep(step.Name)
		}

		r.runStep(logctx.WithStep(ctx, step.Name), log, step, repeat, &res, progress)
		report.Steps = append(report.Steps, res)

		if res.Err != nil {
			errs = append(errs, res.Err)
			if r.cfg.FailFast {
				stopped = true
			}
		}
		progress.LogProgress("run progress")
	}

	report.Duration = time.Since(report.StartedAt)
	logging.RunCompleted(log, report.Duration).
		ProgressFromTracker(progress).
		Int("failed", len(report.Failed())).
		Log("run completed")

	return report, errors.Join(errs...)
}

// runStep runs one step under ctx, whose logger carries the step for the
// step's own output. Runner events go to log, which names the step itself.
func (r *Runner) runStep(ctx context.Context, log zerolog.Logger, step Step, repeat int, res *StepResult, progress *logging.ProgressTracker) {

	release, err := r.budget.Acquire(step.Footprint)
	if err != nil {
		res.Skipped = true
		res.fail(fmt.Errorf("step %s: %w: needs %s, %s available: %w",
			step.Name, ErrOverBudget,
			humanfmt.Bytes(int64(step.Footprint)), humanfmt.Bytes(int64(r.budget.Available())), err))
		logging.StepFailed(log, step.Name, 0, res.Err)
		for range repeat {
			progress.RecordSkip()
		}
		return
	}
	defer release()

	for rep := 1; rep <= repeat; rep++ {
		rec := newRecorder(step.Name, step.Group, rep, r.out)
		start := time.Now()
		err := runGuarded(logctx.WithInt(ctx, "repeat", rep), step, rec)
		elapsed := time.Since(start)
		res.Samples = append(res.Samples, rec.Samples()...)

		if err != nil {
			res.fail(fmt.Errorf("step %s: %w", step.Name, err))
			logging.StepFailed(log, step.Name, elapsed, err)
			for range repeat - rep + 1 {
				progress.RecordSkip()
			}
			return
		}

		progress.RecordCompletion(elapsed)
		var bytes int64
		for _, s := range rec.Samples() {
			bytes += s.Bytes
		}
		logging.StepCompleted(log, step.Name, elapsed).
			Int("repeat", rep).
			Int("samples", len(rec.Samples())).
			Bytes("bytes", bytes).
			Throughput(bytes).
			ProgressFromTracker(progress).
			Log("step completed")
	}
}

// runGuarded turns a panicking step into an error.
func runGuarded(ctx context.Context, step Step, rec *Recorder) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return step.Run(ctx, rec)
}

func (r *Runner) cleanupScratch(ctx context.Context) {
	var names []string
	for _, s := range r.steps {
		names = append(names, s.Scratch...)
	}
	if len(names) == 0 {
		return
	}
	removed, err := fileutil.CleanupScratch(r.cfg.WorkDir, names...)
	log := logctx.FromContext(ctx)
	if err != nil {
		log.Warn().Err(err).Str("dir", r.cfg.WorkDir).Msg("scratch cleanup incomplete")
	}
	if removed > 0 {
		log.Info().Int("files_removed", removed).Msg("removed leftover scratch files")
	}
}
