// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for tickpipe: the single-producer/single-consumer
// ring buffer shared by the producer and tick goroutines, a relax helper for
// busy-wait loops, and CPU pinning for both sides.
package concurrency
