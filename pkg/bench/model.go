// Package bench runs an ordered list of timed benchmark steps and records
// their results.
package bench

import (
	"fmt"
	"runtime"
	"time"

	"github.com/eunmann/rtbench/pkg/config"
	"github.com/eunmann/rtbench/pkg/humanfmt"
	"github.com/eunmann/rtbench/pkg/sysmem"
)

// Sample is one timed measurement.
type Sample struct {
	Step       string        `json:"step" yaml:"step"`
	Group      string        `json:"group" yaml:"group"`
	Label      string        `json:"label" yaml:"label"`
	Repeat     int           `json:"repeat" yaml:"repeat"`
	Elapsed    time.Duration `json:"elapsed_ns" yaml:"elapsed_ns"`
	Bytes      int64         `json:"bytes" yaml:"bytes"`
	AllocBytes uint64        `json:"alloc_bytes" yaml:"alloc_bytes"`
}

// Millis returns the elapsed time in fractional milliseconds.
func (s Sample) Millis() float64 { return humanfmt.Millis(s.Elapsed) }

// Line formats the sample as printed on stdout.
func (s Sample) Line() string { return FormatLine(s.Label, s.Elapsed) }

// FormatLine formats "<label> | Time: <ms> ms" with two decimals.
func FormatLine(label string, elapsed time.Duration) string {
	return label + " | Time: " + humanfmt.MillisString(elapsed) + " ms"
}

// StepResult collects the samples of one step across repetitions.
type StepResult struct {
	Name    string   `json:"name" yaml:"name"`
	Group   string   `json:"group" yaml:"group"`
	Samples []Sample `json:"samples" yaml:"samples"`
	Err     error    `json:"-" yaml:"-"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
	// Skipped is set when the step never ran (budget refusal, fail-fast or
	// cancellation).
	Skipped bool `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Failed reports whether the step recorded an error.
func (r StepResult) Failed() bool { return r.Err != nil }

func (r *StepResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
}

// Host describes the machine a run executed on.
type Host struct {
	GOOS           string `json:"goos" yaml:"goos"`
	GOARCH         string `json:"goarch" yaml:"goarch"`
	NumCPU         int    `json:"num_cpu" yaml:"num_cpu"`
	GoVersion      string `json:"go_version" yaml:"go_version"`
	TotalMemory    uint64 `json:"total_memory" yaml:"total_memory"`
	MemoryReliable bool   `json:"memory_reliable" yaml:"memory_reliable"`
}

// CurrentHost reads the running process's host description.
func CurrentHost() Host {
	mem := sysmem.Total()
	return Host{
		GOOS:           runtime.GOOS,
		GOARCH:         runtime.GOARCH,
		NumCPU:         runtime.NumCPU(),
		GoVersion:      runtime.Version(),
		TotalMemory:    mem.TotalBytes,
		MemoryReliable: mem.Reliable,
	}
}

// String formats the host line printed under the banner.
func (h Host) String() string {
	mem := humanfmt.Bytes(int64(h.TotalMemory))
	if !h.MemoryReliable {
		mem += " (assumed)"
	}
	return fmt.Sprintf("Host: %s/%s, %d CPUs, %s, %s RAM", h.GOOS, h.GOARCH, h.NumCPU, h.GoVersion, mem)
}

// Report is the outcome of one run.
type Report struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Host      Host          `json:"host" yaml:"host"`
	Config    config.Config `json:"config" yaml:"config"`
	Steps     []StepResult  `json:"steps" yaml:"steps"`
}

// Samples returns every sample of the run in execution order.
func (r *Report) Samples() []Sample {
	var out []Sample
	for _, s := range r.Steps {
		out = append(out, s.Samples...)
	}
	return out
}

// Failed returns the steps that recorded an error.
func (r *Report) Failed() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Failed() {
			out = append(out, s)
		}
	}
	return out
}
