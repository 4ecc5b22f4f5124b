//go:build !linux && !darwin

package sysmem

// totalSystemMemory has no implementation on this platform; callers get
// DefaultMemoryBytes with Reliable=false.
func totalSystemMemory() (uint64, bool) {
	return 0, false
}
