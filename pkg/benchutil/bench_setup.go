package benchutil

import (
	"os"
	"testing"
)

// EnvLongBench gates long-running benchmarks.
const EnvLongBench = "RTBENCH_LONG_BENCH"

// SkipIfNoLongBench skips the benchmark if RTBENCH_LONG_BENCH is not set.
// Use this to gate full-size benchmarks that shouldn't run by default.
func SkipIfNoLongBench(b *testing.B) {
	b.Helper()
	if os.Getenv(EnvLongBench) == "" {
		b.Skip("set " + EnvLongBench + "=1 to run full-size benchmark")
	}
}
