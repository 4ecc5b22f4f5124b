package benchutil

// Shared constants for benchmarks across packages.

// BenchmarkSeed is the default seed for reproducible data generation.
const BenchmarkSeed = 42

// Standard benchmark sizes for quick runs.
var BenchmarkSizes = []int{1000, 10000, 100000}

// ScalingSizes are the full suite sizes.
// Used with RTBENCH_LONG_BENCH=1 environment variable.
var ScalingSizes = []int{100000, 1000000, 10000000}

// PayloadSizes are byte sizes for I/O and compression benchmarks.
var PayloadSizes = []int{64 << 10, 1 << 20, 16 << 20}
