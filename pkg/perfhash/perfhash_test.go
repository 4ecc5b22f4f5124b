package perfhash

import (
	"testing"

	"github.com/eunmann/rtbench/pkg/benchutil"
)

func TestBuild_DistinctPositions(t *testing.T) {
	for _, n := range []int{1, 2, 100, 10000} {
		keys := benchutil.Keys(n)

		idx, err := Build(keys)
		if err != nil {
			t.Fatalf("n=%d: Build: %v", n, err)
		}
		if idx.Len() != n {
			t.Errorf("n=%d: Len = %d", n, idx.Len())
		}
		if err := idx.Verify(keys); err != nil {
			t.Errorf("n=%d: Verify: %v", n, err)
		}
	}
}

func TestLookup_UnknownKey(t *testing.T) {
	idx, err := Build(benchutil.Keys(1000))
	if err != nil {
		t.Fatal(err)
	}

	misses := 0
	for _, k := range []string{"nope", "key-1000", "key--1", ""} {
		if _, ok := idx.Lookup(k); !ok {
			misses++
		}
	}
	if misses != 4 {
		t.Errorf("expected all foreign keys rejected, %d of 4 were", misses)
	}
}

func TestBuild_Empty(t *testing.T) {
	idx, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len = %d, want 0", idx.Len())
	}
	if _, ok := idx.Lookup("x"); ok {
		t.Error("empty index should not find keys")
	}
	if n, err := idx.SizeBytes(); err != nil || n != 0 {
		t.Errorf("SizeBytes = %d, %v", n, err)
	}
}

func TestVerify_WrongKeyCount(t *testing.T) {
	keys := benchutil.Keys(10)
	idx, err := Build(keys)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Verify(keys[:5]); err == nil {
		t.Error("expected error for key count mismatch")
	}
}

func TestSizeBytes(t *testing.T) {
	idx, err := Build(benchutil.Keys(10000))
	if err != nil {
		t.Fatal(err)
	}
	n, err := idx.SizeBytes()
	if err != nil {
		t.Fatal(err)
	}
	if n <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", n)
	}
}

func BenchmarkBuild(b *testing.B) {
	for _, n := range benchutil.BenchmarkSizes {
		keys := benchutil.Keys(n)
		b.Run(benchName(n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := Build(keys); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBuild_Full(b *testing.B) {
	benchutil.SkipIfNoLongBench(b)
	keys := benchutil.Keys(1_000_000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Build(keys); err != nil {
			b.Fatal(err)
		}
	}
}

func benchName(n int) string {
	switch {
	case n >= 1000000:
		return "1M"
	case n >= 100000:
		return "100K"
	case n >= 10000:
		return "10K"
	default:
		return "1K"
	}
}
