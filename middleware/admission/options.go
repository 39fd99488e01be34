package admission

import (
	"fmt"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// Options configures an admission Middleware. Numeric threshold and
// sizing fields have no safe zero-value default (0 is a legitimate
// MaxWaitSeconds or CPUThreshold), so New validates rather than
// silently defaulting them: start from DefaultOptions() and override
// only what you need to change.
//
// RejectStatus and RejectBody are the exception: 0 and "" are never
// meaningfully valid there, so New fills them in when left zero.
type Options struct {
	// Dependencies. A nil CPU, Pool or Queue, and a nil Memory when
	// UseMemoryMonitoring is set, get a default implementation built
	// by New; default probes are stopped by Middleware.Close. A nil
	// Stats records nothing, and a nil Logger means log.Default()
	// when EnableLogs is set.
	CPU        domain.CpuProbe
	Memory     domain.MemoryProbe
	Pool       domain.PermitPool
	Queue      domain.WaitQueue
	Stats      domain.StatsStore
	Logger     domain.Logger
	ExemptPath ExemptPathFunc

	CPUThreshold          int
	MemoryThreshold       int
	UseMemoryMonitoring   bool
	MaxQueueSize          int
	MaxConcurrentRequests int
	MaxWaitSeconds        int

	RejectStatus int
	RejectBody   string
	EnableLogs   bool
}

// DefaultOptions returns sane production defaults. Callers should
// build on this rather than a bare Options{} literal.
func DefaultOptions() Options {
	return Options{
		CPUThreshold:          80,
		MemoryThreshold:       90,
		UseMemoryMonitoring:   true,
		MaxQueueSize:          100,
		MaxConcurrentRequests: 100,
		MaxWaitSeconds:        30,
		RejectStatus:          503,
		RejectBody:            "Server is under high load. Please try again later.",
		EnableLogs:            true,
	}
}

// ConfigError wraps an invalid Options value. Construction fails
// synchronously with a ConfigError rather than starting with a
// controller that could never make a sane decision.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("admission: invalid option %s=%v: %s", e.Field, e.Value, e.Reason)
}

type resolvedOptions struct {
	rejectStatus int
	rejectBody   string
	maxWait      time.Duration
	exemptPath   ExemptPathFunc
	enableLogs   bool
}

func resolve(opts Options) (resolvedOptions, error) {
	if opts.CPUThreshold < 0 || opts.CPUThreshold > 100 {
		return resolvedOptions{}, &ConfigError{"CPUThreshold", opts.CPUThreshold, "must be within [0,100]"}
	}
	if opts.MemoryThreshold < 0 || opts.MemoryThreshold > 100 {
		return resolvedOptions{}, &ConfigError{"MemoryThreshold", opts.MemoryThreshold, "must be within [0,100]"}
	}
	if opts.MaxQueueSize < 1 {
		return resolvedOptions{}, &ConfigError{"MaxQueueSize", opts.MaxQueueSize, "must be >= 1"}
	}
	if opts.MaxConcurrentRequests < 1 {
		return resolvedOptions{}, &ConfigError{"MaxConcurrentRequests", opts.MaxConcurrentRequests, "must be >= 1"}
	}
	if opts.MaxWaitSeconds < 0 {
		return resolvedOptions{}, &ConfigError{"MaxWaitSeconds", opts.MaxWaitSeconds, "must be >= 0"}
	}

	rejectStatus := opts.RejectStatus
	if rejectStatus == 0 {
		rejectStatus = 503
	}
	rejectBody := opts.RejectBody
	if rejectBody == "" {
		rejectBody = "Server is under high load. Please try again later."
	}
	exempt := opts.ExemptPath
	if exempt == nil {
		exempt = DefaultExemptPath
	}

	return resolvedOptions{
		rejectStatus: rejectStatus,
		rejectBody:   rejectBody,
		maxWait:      time.Duration(opts.MaxWaitSeconds) * time.Second,
		exemptPath:   exempt,
		enableLogs:   opts.EnableLogs,
	}, nil
}
