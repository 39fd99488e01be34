// Package admission provides an HTTP adapter (net/http) for
// CPU/memory admission control.
//
// Layers, leaves first:
//
//   - domain: contracts and types (no net/http dependency)
//   - application: the admission decision + dispatch use cases, also
//     free of net/http
//   - infra: concrete probes, permit pool, wait queue, stats sinks
//   - admission (this package): HTTP wiring, exempt-path predicate,
//     option defaulting/validation, header/status translation
//
// Request flow:
//
//  1. Skip entirely for exempt paths (health/metrics/diagnostics).
//  2. Read CpuProbe (and, if enabled, MemoryProbe).
//  3. Under threshold: acquire a permit, call next, release.
//  4. Over threshold: reject if the wait queue is full, else enqueue
//     and wait on the request's completion signal with a deadline.
package admission
