// File: adapters/affinity_adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
// Description:
//   Adapter implementing the api.Affinity interface, delegating to
//   internal concurrency primitives for CPU pinning of the producer and
//   tick goroutines.

package adapters

import (
	"github.com/momentics/tickpipe/api"
	"github.com/momentics/tickpipe/internal/concurrency"
)

var _ api.Affinity = (*AffinityAdapter)(nil)

// AffinityAdapter tracks the binding of the goroutine that calls Pin.
// Each pinned goroutine needs its own adapter.
type AffinityAdapter struct {
	currentCPU int
	pinned     bool
}

// NewAffinityAdapter creates an unbound adapter.
func NewAffinityAdapter() *AffinityAdapter {
	return &AffinityAdapter{currentCPU: -1}
}

// Pin binds the calling goroutine's OS thread to cpuID. A negative cpuID
// leaves the goroutine unbound and is not an error.
func (a *AffinityAdapter) Pin(cpuID int) error {
	if cpuID < 0 {
		return nil
	}
	if err := concurrency.PinCurrentThread(cpuID); err != nil {
		return err
	}
	a.currentCPU = cpuID
	a.pinned = true
	return nil
}

// Unpin clears the binding. Must be called from the pinned goroutine.
func (a *AffinityAdapter) Unpin() error {
	if !a.pinned {
		return nil
	}
	err := concurrency.UnpinCurrentThread()
	a.pinned = false
	a.currentCPU = -1
	return err
}

// Get returns the currently bound CPU, -1 if none.
func (a *AffinityAdapter) Get() (int, error) {
	return a.currentCPU, nil
}

// ImmutableDescriptor returns a snapshot of the current binding state.
func (a *AffinityAdapter) ImmutableDescriptor() api.AffinityDescriptor {
	return api.AffinityDescriptor{
		CPUID:  a.currentCPU,
		Scope:  api.ScopeThread,
		Pinned: a.pinned,
	}
}
