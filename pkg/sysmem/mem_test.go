package sysmem

import (
	"testing"
)

func TestTotal(t *testing.T) {
	result := Total()

	if result.TotalBytes == 0 {
		t.Fatal("Total() returned 0 bytes")
	}

	if !result.Reliable && result.TotalBytes != DefaultMemoryBytes {
		t.Errorf("unreliable result TotalBytes = %d, want fallback %d", result.TotalBytes, DefaultMemoryBytes)
	}

	if !result.Reliable {
		t.Logf("memory detection not reliable on this host (may indicate a sandbox)")
	}

	// Any machine running the benchmark suite has at least 256 MiB.
	if result.Reliable && result.TotalBytes < 256*1024*1024 {
		t.Errorf("Total() returned %d bytes, expected at least 256 MiB", result.TotalBytes)
	}

	t.Logf("detected memory: %d bytes, reliable=%v", result.TotalBytes, result.Reliable)
}

func TestDefaultMemoryBytes(t *testing.T) {
	if DefaultMemoryBytes != 4<<30 {
		t.Errorf("DefaultMemoryBytes = %d, want %d", DefaultMemoryBytes, uint64(4<<30))
	}
}
