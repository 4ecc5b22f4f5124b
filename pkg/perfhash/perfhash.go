// Package perfhash builds an in-memory minimal perfect hash index over a
// set of distinct string keys.
package perfhash

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/relab/bbhash"
)

// gamma trades build speed against index size.
const gamma = 2.0

// ErrCollision is returned by Verify when two keys share a position.
var ErrCollision = errors.New("perfect hash collision")

// Index maps each key it was built from to a unique position in [0, Len()).
// Lookups of other keys are rejected with a fingerprint check.
type Index struct {
	mph          *bbhash.BBHash2
	fingerprints []uint64
}

// Build constructs the index. Keys must be distinct.
func Build(keys []string) (*Index, error) {
	if len(keys) == 0 {
		return &Index{}, nil
	}

	hashes := make([]uint64, len(keys))
	for i, k := range keys {
		hashes[i] = hashKey(k)
	}

	mph, err := bbhash.New(hashes, bbhash.Gamma(gamma))
	if err != nil {
		return nil, fmt.Errorf("build perfect hash over %d keys: %w", len(keys), err)
	}

	idx := &Index{mph: mph, fingerprints: make([]uint64, len(keys))}
	for i, k := range keys {
		// bbhash positions are 1-indexed; 0 means not found.
		pos := mph.Find(hashes[i])
		if pos == 0 || pos > uint64(len(keys)) {
			return nil, fmt.Errorf("perfect hash lookup failed for %q", k)
		}
		idx.fingerprints[pos-1] = fingerprint(k)
	}
	return idx, nil
}

// Len returns the number of keys in the index.
func (x *Index) Len() int {
	return len(x.fingerprints)
}

// Lookup returns the position of key, or false if key was not indexed.
func (x *Index) Lookup(key string) (uint64, bool) {
	if x.mph == nil {
		return 0, false
	}
	pos := x.mph.Find(hashKey(key))
	if pos == 0 || pos > uint64(len(x.fingerprints)) {
		return 0, false
	}
	pos--
	if x.fingerprints[pos] != fingerprint(key) {
		return 0, false
	}
	return pos, true
}

// SizeBytes returns the serialized size of the hash function.
func (x *Index) SizeBytes() (int, error) {
	if x.mph == nil {
		return 0, nil
	}
	data, err := x.mph.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("marshal perfect hash: %w", err)
	}
	return len(data), nil
}

// Verify probes every key once and checks the positions are a permutation
// of [0, len(keys)).
func (x *Index) Verify(keys []string) error {
	if len(keys) != x.Len() {
		return fmt.Errorf("verify: %d keys against index of %d", len(keys), x.Len())
	}
	seen := make([]bool, len(keys))
	for _, k := range keys {
		pos, ok := x.Lookup(k)
		if !ok {
			return fmt.Errorf("verify: key %q not found", k)
		}
		if seen[pos] {
			return fmt.Errorf("%w: key %q at position %d", ErrCollision, k, pos)
		}
		seen[pos] = true
	}
	return nil
}

func hashKey(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// fingerprint uses a different hash than hashKey so foreign keys that
// land on an occupied slot are rejected.
func fingerprint(s string) uint64 {
	h := fnv.New64()
	h.Write([]byte(s))
	return h.Sum64()
}
