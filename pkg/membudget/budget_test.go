package membudget

import (
	"errors"
	"testing"
)

func TestBudgetBasic(t *testing.T) {
	budget := New(Config{
		TotalBytes: 1000,
		Source:     BudgetSourceCLI,
	})

	if budget.Total() != 1000 {
		t.Errorf("Total() = %d, want 1000", budget.Total())
	}
	if budget.Source() != BudgetSourceCLI {
		t.Errorf("Source() = %s, want %s", budget.Source(), BudgetSourceCLI)
	}
	if budget.Available() != 1000 {
		t.Errorf("Available() = %d, want 1000", budget.Available())
	}
}

func TestTryReserveAndRelease(t *testing.T) {
	budget := New(Config{TotalBytes: 1000})

	if !budget.TryReserve(600) {
		t.Fatal("TryReserve(600) failed on empty budget")
	}
	if budget.TryReserve(500) {
		t.Error("TryReserve(500) succeeded with only 400 available")
	}
	if budget.InUse() != 600 {
		t.Errorf("InUse() = %d, want 600", budget.InUse())
	}

	budget.Release(600)
	if budget.InUse() != 0 {
		t.Errorf("InUse() after release = %d, want 0", budget.InUse())
	}

	// Over-release clamps at zero.
	budget.Release(10)
	if budget.InUse() != 0 {
		t.Errorf("InUse() after over-release = %d, want 0", budget.InUse())
	}
}

func TestAcquire(t *testing.T) {
	budget := New(Config{TotalBytes: 100})

	release, err := budget.Acquire(80)
	if err != nil {
		t.Fatalf("Acquire(80): %v", err)
	}

	if _, err := budget.Acquire(30); !errors.Is(err, ErrExceeded) {
		t.Errorf("Acquire(30) error = %v, want ErrExceeded", err)
	}

	release()
	release() // second call is a no-op
	if budget.InUse() != 0 {
		t.Errorf("InUse() = %d after release, want 0", budget.InUse())
	}

	if _, err := budget.Acquire(101); !errors.Is(err, ErrExceeded) {
		t.Errorf("Acquire(101) error = %v, want ErrExceeded", err)
	}
}

func TestNewFromSystemRAM(t *testing.T) {
	budget := NewFromSystemRAM()

	if budget.Total() == 0 {
		t.Error("budget total is zero")
	}
	if budget.Source() != BudgetSourceAuto50Pct && budget.Source() != BudgetSourceDefault {
		t.Errorf("Source = %s, want auto-50pct or default", budget.Source())
	}
}

func TestStats(t *testing.T) {
	budget := New(Config{TotalBytes: 200, Source: BudgetSourceEnv})
	budget.TryReserve(50)

	stats := budget.Stats()
	if stats.InUseBytes != 50 || stats.AvailableBytes != 150 {
		t.Errorf("Stats = %+v, want inUse=50 available=150", stats)
	}
	if stats.UsagePercent != 25.0 {
		t.Errorf("UsagePercent = %v, want 25", stats.UsagePercent)
	}
	if stats.Source != BudgetSourceEnv {
		t.Errorf("Source = %s, want env", stats.Source)
	}

	if got := New(Config{}).Stats().UsagePercent; got != 0 {
		t.Errorf("zero budget UsagePercent = %v, want 0", got)
	}
}

func TestParseHumanSize(t *testing.T) {
	tests := []struct {
		input   string
		want    uint64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"100B", 100, false},
		{"1KB", 1000, false},
		{"1KiB", 1024, false},
		{"1K", 1024, false},
		{"100MB", 100_000_000, false},
		{"1MiB", 1024 * 1024, false},
		{"16M", 16 * 1024 * 1024, false},
		{"1GB", 1000000000, false},
		{"4GiB", 4 * 1024 * 1024 * 1024, false},
		{"0.5GiB", 512 * 1024 * 1024, false},
		{" 64 MiB ", 64 * 1024 * 1024, false},
		{"", 0, true},
		{"XYZ", 0, true},
		{"100XB", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseHumanSize(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseHumanSize(%q) should error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHumanSize(%q) error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseHumanSize(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
