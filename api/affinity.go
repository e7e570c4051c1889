// Package api
// Author: momentics@gmail.com
//
// CPU affinity and thread pinning definitions.

package api

// AffinityScope describes what a pin applies to.
type AffinityScope int

const (
	ScopeProcess AffinityScope = iota
	ScopeThread
)

// AffinityDescriptor is an immutable snapshot of a binding.
type AffinityDescriptor struct {
	CPUID  int
	Scope  AffinityScope
	Pinned bool
}

// Affinity controls execution on particular CPUs.
type Affinity interface {
	// Pin locks the calling goroutine to its OS thread and binds the thread to cpuID.
	Pin(cpuID int) error
	// Unpin removes affinity.
	Unpin() error
	// Get returns the current CPU binding, -1 if none.
	Get() (cpuID int, err error)
}
