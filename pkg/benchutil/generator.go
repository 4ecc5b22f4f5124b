// Package benchutil provides deterministic data generation for the
// benchmark steps and their tests.
package benchutil

import (
	"math/rand"
	"strconv"
)

// FillByte is the byte written into fixed-content payloads.
const FillByte = 'x'

// Sequence returns 0, 1, ..., n-1.
func Sequence(n int) []int64 {
	if n <= 0 {
		return nil
	}
	seq := make([]int64, n)
	for i := range seq {
		seq[i] = int64(i)
	}
	return seq
}

// RandomInts returns n pseudo-random values in [0, bound) from seed.
// A zero seed uses BenchmarkSeed.
func RandomInts(n int, bound int64, seed int64) []int64 {
	if n <= 0 || bound <= 0 {
		return nil
	}
	if seed == 0 {
		seed = BenchmarkSeed
	}
	rng := rand.New(rand.NewSource(seed))
	out := make([]int64, n)
	for i := range out {
		out[i] = rng.Int63n(bound)
	}
	return out
}

// Payload returns size bytes of FillByte.
func Payload(size int) []byte {
	if size <= 0 {
		return nil
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = FillByte
	}
	return buf
}

var words = []string{
	"backup", "oplog", "chunk", "shard", "replica", "primary", "secondary",
	"index", "document", "collection", "snapshot", "restore", "storage",
	"bucket", "object", "prefix", "upload", "download", "compress", "bench",
}

// TextPayload returns size bytes of word-based text with a realistic
// compression ratio, deterministic for a given seed.
func TextPayload(size int, seed int64) []byte {
	if size <= 0 {
		return nil
	}
	if seed == 0 {
		seed = BenchmarkSeed
	}
	rng := rand.New(rand.NewSource(seed))
	buf := make([]byte, 0, size+32)
	for len(buf) < size {
		switch rng.Intn(8) {
		case 0:
			buf = strconv.AppendInt(buf, rng.Int63n(1_000_000), 10)
		case 1:
			buf = append(buf, '\n')
			continue
		default:
			buf = append(buf, words[rng.Intn(len(words))]...)
		}
		buf = append(buf, ' ')
	}
	return buf[:size]
}

// Keys returns n distinct synthetic keys ("key-0000000", ...).
func Keys(n int) []string {
	if n <= 0 {
		return nil
	}
	keys := make([]string, n)
	for i := range keys {
		keys[i] = "key-" + strconv.Itoa(i)
	}
	return keys
}
