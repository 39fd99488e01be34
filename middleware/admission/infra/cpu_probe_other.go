//go:build !linux && !darwin && !windows

package infra

import (
	"math"
	"runtime"
	"syscall"
	"time"
)

func newCPUSampler() cpuSampler { return &fallbackCPUSampler{numCPU: runtime.NumCPU()} }

// fallbackCPUSampler is used on platforms with no dedicated sampler:
// self-process CPU time fraction over the tick's wall-clock window,
// (Δprocess_cpu_time / (cpus·Δwall))·100.
type fallbackCPUSampler struct {
	havePrev bool
	prevCPU  time.Duration
	prevWall time.Time
	numCPU   int
}

func (s *fallbackCPUSampler) Sample() (int, bool, error) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, false, err
	}

	cpuTime := time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
	now := time.Now()

	if !s.havePrev {
		s.prevCPU, s.prevWall = cpuTime, now
		s.havePrev = true
		return 0, true, nil
	}

	deltaCPU := cpuTime - s.prevCPU
	deltaWall := now.Sub(s.prevWall)
	s.prevCPU, s.prevWall = cpuTime, now

	if deltaWall <= 0 || s.numCPU <= 0 {
		return 0, false, nil
	}

	pct := 100 * float64(deltaCPU) / (float64(s.numCPU) * float64(deltaWall))
	return int(math.Round(pct)), true, nil
}
