// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, configuration control, and debug introspection layer.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads and merged updates with reload listeners
//   - Metrics registry with Prometheus exposition
//   - Debug hooks and probe registration
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
