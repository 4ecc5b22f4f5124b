// Package memdiag reads Go runtime memory statistics around benchmark
// steps and optionally logs them while a run is in progress.
//
// Periodic logging is enabled with RTBENCH_MEM_DEBUG=1 and a pprof server
// on :6060 with RTBENCH_MEM_PPROF=1.
package memdiag

import (
	"errors"
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	// Registers pprof handlers on DefaultServeMux for the pprof HTTP server.
	_ "net/http/pprof"

	"github.com/eunmann/rtbench/pkg/humanfmt"
	"github.com/eunmann/rtbench/pkg/logging"
)

// Environment switches read by DefaultConfig.
const (
	EnvDebug = "RTBENCH_MEM_DEBUG"
	EnvPprof = "RTBENCH_MEM_PPROF"
)

// Config holds configuration for memory diagnostics.
type Config struct {
	// Enabled turns on periodic and per-step memory logging.
	Enabled bool

	// PprofEnabled starts a pprof server on PprofAddr.
	PprofEnabled bool
	PprofAddr    string

	// LogInterval is the interval for periodic memory logging.
	LogInterval time.Duration
}

// DefaultConfig returns the default configuration, reading from environment.
func DefaultConfig() Config {
	return Config{
		Enabled:      os.Getenv(EnvDebug) == "1",
		PprofEnabled: os.Getenv(EnvPprof) == "1",
		PprofAddr:    ":6060",
		LogInterval:  5 * time.Second,
	}
}

// Stats is a snapshot of runtime memory statistics.
type Stats struct {
	// HeapAlloc is bytes allocated on the heap and still in use.
	HeapAlloc uint64

	// TotalAlloc is cumulative bytes allocated (even if freed).
	TotalAlloc uint64

	// Mallocs is the cumulative count of heap objects allocated.
	Mallocs uint64

	// Sys is bytes obtained from the OS.
	Sys uint64

	// NumGC is the number of completed GC cycles.
	NumGC uint32

	// PauseTotal is the cumulative GC stop-the-world pause.
	PauseTotal time.Duration
}

// Read reads current memory statistics.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc:  m.HeapAlloc,
		TotalAlloc: m.TotalAlloc,
		Mallocs:    m.Mallocs,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
		PauseTotal: time.Duration(m.PauseTotalNs),
	}
}

// Delta is the allocation activity between two snapshots.
type Delta struct {
	AllocBytes uint64
	Mallocs    uint64
	NumGC      uint32
	GCPause    time.Duration
}

// Since returns the activity between before and s.
// Counters that went backwards report zero.
func (s Stats) Since(before Stats) Delta {
	var d Delta
	if s.TotalAlloc > before.TotalAlloc {
		d.AllocBytes = s.TotalAlloc - before.TotalAlloc
	}
	if s.Mallocs > before.Mallocs {
		d.Mallocs = s.Mallocs - before.Mallocs
	}
	if s.NumGC > before.NumGC {
		d.NumGC = s.NumGC - before.NumGC
	}
	if s.PauseTotal > before.PauseTotal {
		d.GCPause = s.PauseTotal - before.PauseTotal
	}
	return d
}

// Tracker logs memory usage over time, tagged with the current step.
type Tracker struct {
	config   Config
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  atomic.Bool
	stopped  atomic.Bool
	mu       sync.Mutex
	step     string
	peakHeap uint64
}

// NewTracker creates a new memory tracker.
func NewTracker(config Config) *Tracker {
	if config.LogInterval <= 0 {
		config.LogInterval = 5 * time.Second
	}
	if config.PprofAddr == "" {
		config.PprofAddr = ":6060"
	}
	return &Tracker{
		config: config,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		step:   "init",
	}
}

// Start begins periodic memory logging if enabled.
func (t *Tracker) Start() {
	if !t.config.Enabled {
		return
	}
	if !t.started.CompareAndSwap(false, true) {
		return
	}

	log := logging.L()
	log.Info().Msg("memory diagnostics enabled")

	if t.config.PprofEnabled {
		addr := t.config.PprofAddr
		go func() {
			log.Info().Str("addr", addr).Msg("starting pprof server")
			if err := http.ListenAndServe(addr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("pprof server failed")
			}
		}()
	}

	go t.logLoop()
}

// Stop stops the tracker. Safe to call more than once.
func (t *Tracker) Stop() {
	if !t.started.Load() || !t.stopped.CompareAndSwap(false, true) {
		return
	}
	close(t.stopCh)
	<-t.doneCh
}

// SetStep records the step now running.
func (t *Tracker) SetStep(step string) {
	t.mu.Lock()
	t.step = step
	t.mu.Unlock()

	t.LogNow("step_change")
}

// Observe folds a snapshot into the peak heap figure.
func (t *Tracker) Observe(s Stats) {
	t.mu.Lock()
	if s.HeapAlloc > t.peakHeap {
		t.peakHeap = s.HeapAlloc
	}
	t.mu.Unlock()
}

// PeakHeap returns the peak heap allocation seen.
func (t *Tracker) PeakHeap() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peakHeap
}

// LogNow logs current memory stats immediately when enabled.
func (t *Tracker) LogNow(reason string) {
	if !t.config.Enabled {
		return
	}

	stats := Read()
	t.Observe(stats)

	t.mu.Lock()
	step := t.step
	peak := t.peakHeap
	t.mu.Unlock()

	logging.L().Debug().
		Str("reason", reason).
		Str("step", step).
		Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
		Str("sys_total", humanfmt.Bytes(int64(stats.Sys))).
		Str("peak_heap", humanfmt.Bytes(int64(peak))).
		Uint32("num_gc", stats.NumGC).
		Msg("memory stats")
}

func (t *Tracker) logLoop() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.config.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			t.LogNow("shutdown")
			return
		case <-ticker.C:
			t.LogNow("periodic")
		}
	}
}
