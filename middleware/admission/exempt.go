package admission

import "strings"

// ExemptPathFunc decides whether a request path bypasses admission
// control entirely: no probe read, no permit, no queue touch.
type ExemptPathFunc func(path string) bool

// DefaultExemptPath bypasses admission control on a case-insensitive
// match on the path containing "health", "cpu", "memory", or "/_", or
// starting with "/swagger". Health checks, metrics scrapes, and API
// docs should never queue or get rejected under load.
func DefaultExemptPath(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "/swagger") {
		return true
	}
	for _, needle := range []string{"health", "cpu", "memory", "/_"} {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}
