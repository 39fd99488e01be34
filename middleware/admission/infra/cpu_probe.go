package infra

import (
	"sync"
	"sync/atomic"
	"time"

	"admission-gateway/middleware/admission/domain"
	"golang.org/x/time/rate"
)

// cpuSampler is implemented once per platform (see cpu_probe_*.go,
// selected by build tag). ok=false means "no new information this
// tick, keep publishing the previous value", used for the zero-delta
// cases and the discarded first Windows reading, distinct from a real
// sampling error. The Linux and fallback samplers report 0 with ok=true
// on their first tick.
type cpuSampler interface {
	Sample() (percent int, ok bool, err error)
}

// CpuProbe periodically samples CPU utilisation on its own 1Hz timer
// and publishes the smoothed value for lock-free, O(1) reads.
//
// On a sampling error, the error is logged (rate-limited so a
// persistently broken /proc mount cannot flood the log) and the
// previously published value is left unchanged. The probe never
// surfaces errors to callers.
type CpuProbe struct {
	percent atomic.Int32

	sampler cpuSampler
	logger  domain.Logger
	// errLog throttles repeated failure logging; the fallback CPU
	// sampler is the branch most likely to fail continuously in a
	// restricted container.
	errLog *rate.Limiter

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCpuProbe starts a CpuProbe sampling on the platform-appropriate
// backend chosen at build time. logger may be nil (equivalent to
// domain.NopLogger{}).
func NewCpuProbe(logger domain.Logger) *CpuProbe {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	p := &CpuProbe{
		sampler: newCPUSampler(),
		logger:  logger,
		errLog:  rate.NewLimiter(rate.Every(30*time.Second), 1),
		stop:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *CpuProbe) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *CpuProbe) tick() {
	pct, ok, err := p.sampler.Sample()
	if err != nil {
		if p.errLog.Allow() {
			p.logger.Printf("admission: cpu probe sample error: %v", err)
		}
		return
	}
	if !ok {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	p.percent.Store(int32(pct))
}

// CurrentPercent implements domain.CpuProbe.
func (p *CpuProbe) CurrentPercent() int { return int(p.percent.Load()) }

// Close stops the sampling timer and waits for it to exit.
func (p *CpuProbe) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}
