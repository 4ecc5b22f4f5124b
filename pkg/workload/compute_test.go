package workload

import (
	"strconv"
	"strings"
	"testing"

	"github.com/eunmann/rtbench/pkg/benchutil"
)

func fibRecursive(n int) uint64 {
	if n <= 1 {
		return uint64(n)
	}
	return fibRecursive(n-1) + fibRecursive(n-2)
}

func TestFibonacci_MatchesRecursive(t *testing.T) {
	for n := 0; n <= 30; n++ {
		if got, want := Fibonacci(n), fibRecursive(n); got != want {
			t.Errorf("Fibonacci(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestFibonacci_KnownValues(t *testing.T) {
	tests := []struct {
		n    int
		want uint64
	}{
		{-5, 0},
		{0, 0},
		{1, 1},
		{2, 1},
		{10, 55},
		{40, 102334155},
		{93, 12200160415121876738},
	}
	for _, tt := range tests {
		if got := Fibonacci(tt.n); got != tt.want {
			t.Errorf("Fibonacci(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestSieve_Thirty(t *testing.T) {
	marks := Sieve(30)
	if len(marks) != 31 {
		t.Fatalf("len = %d, want 31", len(marks))
	}

	want := map[int]bool{2: true, 3: true, 5: true, 7: true, 11: true, 13: true, 17: true, 19: true, 23: true, 29: true}
	for i, prime := range marks {
		if prime != want[i] {
			t.Errorf("Sieve(30)[%d] = %v, want %v", i, prime, want[i])
		}
	}
}

func TestSieve_SmallLimits(t *testing.T) {
	tests := []struct {
		limit   int
		wantLen int
	}{
		{-1, 0},
		{0, 1},
		{1, 2},
		{2, 3},
	}
	for _, tt := range tests {
		marks := Sieve(tt.limit)
		if len(marks) != tt.wantLen {
			t.Errorf("Sieve(%d) len = %d, want %d", tt.limit, len(marks), tt.wantLen)
		}
		for i, prime := range marks {
			if prime != (i == 2) {
				t.Errorf("Sieve(%d)[%d] = %v", tt.limit, i, prime)
			}
		}
	}
}

func TestPrimes(t *testing.T) {
	got := Primes(30)
	want := []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}
	if len(got) != len(want) {
		t.Fatalf("Primes(30) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Primes(30)[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if n := len(Primes(1_000_000)); n != 78498 {
		t.Errorf("len(Primes(1000000)) = %d, want 78498", n)
	}
}

func TestSum(t *testing.T) {
	if got := Sum(benchutil.Sequence(1_000_000)); got != 499999500000 {
		t.Errorf("Sum(0..999999) = %d, want 499999500000", got)
	}
	if got := Sum(nil); got != 0 {
		t.Errorf("Sum(nil) = %d", got)
	}
}

func TestPopulate(t *testing.T) {
	m := Populate(1_000_000)
	if len(m) != 1_000_000 {
		t.Errorf("len = %d, want 1000000", len(m))
	}
	if m[42] != "value42" {
		t.Errorf("m[42] = %q", m[42])
	}
	if len(Populate(-1)) != 0 {
		t.Error("negative count should give empty map")
	}
}

func TestConcatenate(t *testing.T) {
	s := Concatenate(1000)
	if len(s) != 1000 || strings.Trim(s, "a") != "" {
		t.Errorf("Concatenate(1000) gave %d bytes", len(s))
	}
	if Concatenate(0) != "" {
		t.Error("Concatenate(0) should be empty")
	}
}

func BenchmarkFibonacci40(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Fibonacci(40)
	}
}

func BenchmarkSieve(b *testing.B) {
	for _, n := range benchutil.BenchmarkSizes {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				Sieve(n)
			}
		})
	}
}

func BenchmarkPopulate_Full(b *testing.B) {
	benchutil.SkipIfNoLongBench(b)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Populate(1_000_000)
	}
}
