package infra

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"admission-gateway/middleware/admission/domain"
	"golang.org/x/time/rate"
)

// memSampler is implemented once per platform (mem_probe_*.go). It
// always returns a best-effort detail/percent pair on success; HeapMB
// is filled in by MemoryProbe itself from runtime.MemStats since heap
// size is language-runtime state, not an OS counter.
type memSampler interface {
	Sample() (domain.MemoryDetail, int, error)
}

// MemoryProbe periodically samples memory utilisation on its own 1Hz
// timer. CurrentPercent and Detail are O(1) reads of the last
// atomically published snapshot.
type MemoryProbe struct {
	percent atomic.Int32
	detail  atomic.Value // domain.MemoryDetail

	sampler memSampler
	logger  domain.Logger
	errLog  *rate.Limiter

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMemoryProbe starts a MemoryProbe sampling on the
// platform-appropriate backend chosen at build time.
func NewMemoryProbe(logger domain.Logger) *MemoryProbe {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	p := &MemoryProbe{
		sampler: newMemSampler(),
		logger:  logger,
		errLog:  rate.NewLimiter(rate.Every(30*time.Second), 1),
		stop:    make(chan struct{}),
	}
	p.detail.Store(domain.MemoryDetail{})
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *MemoryProbe) run() {
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

func (p *MemoryProbe) tick() {
	detail, pct, err := p.sampler.Sample()
	if err != nil {
		if p.errLog.Allow() {
			p.logger.Printf("admission: memory probe sample error: %v", err)
		}
		return
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	detail.HeapMB = int64(ms.HeapAlloc / (1024 * 1024))

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	p.percent.Store(int32(pct))
	p.detail.Store(detail)
}

// CurrentPercent implements domain.MemoryProbe.
func (p *MemoryProbe) CurrentPercent() int { return int(p.percent.Load()) }

// Detail implements domain.MemoryProbe.
func (p *MemoryProbe) Detail() domain.MemoryDetail {
	return p.detail.Load().(domain.MemoryDetail)
}

// Close stops the sampling timer and waits for it to exit.
func (p *MemoryProbe) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}
