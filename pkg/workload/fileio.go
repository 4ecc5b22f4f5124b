package workload

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Read-back integrity errors.
var (
	// ErrShortRead is returned when a file reads back with a different
	// length than was written.
	ErrShortRead = errors.New("read back size differs from written size")
	// ErrCorruptRead is returned when a file reads back with the written
	// length but different content.
	ErrCorruptRead = errors.New("read back content differs from written content")
)

// Timing is the result of one WriteRead call.
type Timing struct {
	Write time.Duration
	Read  time.Duration
	Bytes int64
}

// WriteRead writes payload to path, reads the file back in full and
// removes it. Once the file is created it is removed on every return path.
// Filesystem errors are returned wrapped and are not retried.
func WriteRead(path string, payload []byte) (t Timing, err error) {
	start := time.Now()
	created, err := writeFile(path, payload)
	if created {
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil {
				err = errors.Join(err, fmt.Errorf("remove %s: %w", path, rmErr))
			}
		}()
	}
	if err != nil {
		return Timing{}, fmt.Errorf("write %s: %w", path, err)
	}
	t.Write = time.Since(start)

	start = time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return Timing{}, fmt.Errorf("read %s: %w", path, err)
	}
	t.Read = time.Since(start)
	t.Bytes = int64(len(data))

	if err := verifyReadBack(path, payload, data); err != nil {
		return t, err
	}
	return t, nil
}

// verifyReadBack checks that data is exactly payload.
func verifyReadBack(path string, payload, data []byte) error {
	if len(data) != len(payload) {
		return fmt.Errorf("%w: %s: wrote %d, read %d", ErrShortRead, path, len(payload), len(data))
	}
	if !bytes.Equal(data, payload) {
		for i := range data {
			if data[i] != payload[i] {
				return fmt.Errorf("%w: %s: first mismatch at byte %d", ErrCorruptRead, path, i)
			}
		}
	}
	return nil
}

// MixedResult is the outcome of one Mixed call.
type MixedResult struct {
	// Sum is the value parsed back from the file.
	Sum int64
	// Elapsed covers sort, sum, write and read; removing the file is
	// not included.
	Elapsed time.Duration
}

// Mixed sorts seq in place, sums it, writes the sum to path as decimal
// text and reads it back. The file is removed after the timing ends.
func Mixed(path string, seq []int64) (res MixedResult, err error) {
	start := time.Now()
	slices.Sort(seq)
	total := Sum(seq)

	created, err := writeFile(path, []byte(strconv.FormatInt(total, 10)))
	if created {
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil {
				err = errors.Join(err, fmt.Errorf("remove %s: %w", path, rmErr))
			}
		}()
	}
	if err != nil {
		return MixedResult{}, fmt.Errorf("write %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return MixedResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	sum, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return MixedResult{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return MixedResult{Sum: sum, Elapsed: time.Since(start)}, nil
}

// writeFile reports whether the file was opened, so callers know whether
// there is something to remove after a failed write.
func writeFile(path string, data []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return false, err
	}
	_, werr := f.Write(data)
	return true, errors.Join(werr, f.Close())
}
