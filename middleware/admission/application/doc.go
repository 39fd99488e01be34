// Package application contains the admission control use cases:
// deciding direct-execute vs enqueue vs reject, and draining the wait
// queue under permits.
//
// It depends only on the domain package and knows nothing about
// net/http; the top-level admission package translates its results
// into HTTP status codes, headers, and bodies.
package application
