// Package infra contains concrete infrastructure implementations of
// the contracts declared in domain: the channel-backed permit pool
// and wait queue, the platform-dispatched CPU/memory probes, and the
// stats sinks.
package infra
