//go:build !linux

// File: internal/concurrency/affinity_other.go
// Fallback for platforms without thread affinity support.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "github.com/momentics/tickpipe/api"

func platformPinCurrentThread(cpuID int) error {
	return api.ErrNotSupported
}

func platformUnpinCurrentThread() error {
	return nil
}
