// File: internal/concurrency/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cross-platform CPU affinity for the producer and tick goroutines.

package concurrency

import (
	"fmt"
	"runtime"

	"github.com/momentics/tickpipe/api"
)

// PinCurrentThread locks the calling goroutine to its OS thread and binds
// that thread to cpuID. On failure the goroutine is unlocked again.
func PinCurrentThread(cpuID int) error {
	if cpuID < 0 || cpuID >= runtime.NumCPU() {
		return fmt.Errorf("pin cpu %d: %w", cpuID, api.ErrInvalidArgument)
	}
	runtime.LockOSThread()
	if err := platformPinCurrentThread(cpuID); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// UnpinCurrentThread clears the CPU mask and releases the OS thread lock.
func UnpinCurrentThread() error {
	defer runtime.UnlockOSThread()
	return platformUnpinCurrentThread()
}

// NumCPUs returns the number of logical CPUs.
func NumCPUs() int {
	return runtime.NumCPU()
}
