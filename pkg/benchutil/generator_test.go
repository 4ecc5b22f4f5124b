package benchutil

import (
	"bytes"
	"testing"
)

func TestSequence(t *testing.T) {
	seq := Sequence(5)
	want := []int64{0, 1, 2, 3, 4}
	if len(seq) != len(want) {
		t.Fatalf("len = %d, want %d", len(seq), len(want))
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("seq[%d] = %d, want %d", i, seq[i], want[i])
		}
	}
	if Sequence(0) != nil || Sequence(-3) != nil {
		t.Error("non-positive n should return nil")
	}
}

func TestRandomInts_Deterministic(t *testing.T) {
	a := RandomInts(1000, 1_000_000, 7)
	b := RandomInts(1000, 1_000_000, 7)
	c := RandomInts(1000, 1_000_000, 8)

	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed differs at %d", i)
		}
		if a[i] < 0 || a[i] >= 1_000_000 {
			t.Fatalf("value %d out of range", a[i])
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical output")
	}
}

func TestPayload(t *testing.T) {
	p := Payload(1024)
	if len(p) != 1024 {
		t.Fatalf("len = %d, want 1024", len(p))
	}
	if !bytes.Equal(p, bytes.Repeat([]byte{FillByte}, 1024)) {
		t.Error("payload is not fixed content")
	}
	if Payload(0) != nil {
		t.Error("zero size should return nil")
	}
}

func TestTextPayload(t *testing.T) {
	for _, size := range []int{1, 100, 4096, 1 << 20} {
		p := TextPayload(size, 0)
		if len(p) != size {
			t.Errorf("size %d: len = %d", size, len(p))
		}
	}
	if !bytes.Equal(TextPayload(4096, 3), TextPayload(4096, 3)) {
		t.Error("same seed should give same payload")
	}
}

func TestKeys_Distinct(t *testing.T) {
	keys := Keys(10000)
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = struct{}{}
	}
}
