// Package workload holds the operations the benchmark suite times. Each
// function owns the buffers and files it creates and releases them before
// returning.
package workload

import (
	"strconv"
	"strings"
)

// Fibonacci returns the nth Fibonacci number using an O(n) loop.
// Negative n returns 0. Values past n=93 overflow uint64.
func Fibonacci(n int) uint64 {
	if n <= 0 {
		return 0
	}
	var a, b uint64 = 0, 1
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

// Sieve marks primes up to and including limit with the sieve of
// Eratosthenes. Index i of the result is true iff i is prime.
func Sieve(limit int) []bool {
	if limit < 0 {
		return []bool{}
	}
	marks := make([]bool, limit+1)
	if limit < 2 {
		return marks
	}
	for i := 2; i <= limit; i++ {
		marks[i] = true
	}
	for p := 2; p*p <= limit; p++ {
		if !marks[p] {
			continue
		}
		for i := p * p; i <= limit; i += p {
			marks[i] = false
		}
	}
	return marks
}

// Primes returns the primes up to and including limit in ascending order.
func Primes(limit int) []int {
	marks := Sieve(limit)
	var primes []int
	for i, prime := range marks {
		if prime {
			primes = append(primes, i)
		}
	}
	return primes
}

// Sum returns the sum of seq.
func Sum(seq []int64) int64 {
	var total int64
	for _, v := range seq {
		total += v
	}
	return total
}

// Populate fills a map with count entries i -> "value"+i.
func Populate(count int) map[int]string {
	if count < 0 {
		count = 0
	}
	m := make(map[int]string)
	for i := 0; i < count; i++ {
		m[i] = "value" + strconv.Itoa(i)
	}
	return m
}

// Concatenate appends count single-character strings to a slice and
// joins them.
func Concatenate(count int) string {
	if count <= 0 {
		return ""
	}
	parts := make([]string, 0)
	for i := 0; i < count; i++ {
		parts = append(parts, "a")
	}
	return strings.Join(parts, "")
}
