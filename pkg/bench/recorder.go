package bench

import (
	"fmt"
	"io"
	"time"

	"github.com/eunmann/rtbench/pkg/memdiag"
)

// Recorder receives the measurements of one step repetition. Each
// recorded sample is printed immediately.
type Recorder struct {
	step    string
	group   string
	repeat  int
	out     io.Writer
	last    memdiag.Stats
	samples []Sample
}

func newRecorder(step, group string, repeat int, out io.Writer) *Recorder {
	return &Recorder{
		step:   step,
		group:  group,
		repeat: repeat,
		out:    out,
		last:   memdiag.Read(),
	}
}

// Record stores a sample and prints its line. AllocBytes covers the
// allocations since the previous sample, or since the repetition began.
func (r *Recorder) Record(label string, elapsed time.Duration, bytes int64) {
	now := memdiag.Read()
	s := Sample{
		Step:       r.step,
		Group:      r.group,
		Label:      label,
		Repeat:     r.repeat,
		Elapsed:    elapsed,
		Bytes:      bytes,
		AllocBytes: now.Since(r.last).AllocBytes,
	}
	r.last = now
	r.samples = append(r.samples, s)
	fmt.Fprintln(r.out, s.Line())
}

// Time runs fn and records its duration under label unless fn fails.
func (r *Recorder) Time(label string, bytes int64, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		return err
	}
	r.Record(label, time.Since(start), bytes)
	return nil
}

// Samples returns the samples recorded so far.
func (r *Recorder) Samples() []Sample {
	return r.samples
}
