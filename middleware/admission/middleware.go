package admission

import (
	"log"
	"net/http"
	"sync"
	"time"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"
)

// Middleware is an HTTP admission controller: it decides, per
// request, between direct-execute, enqueue-and-wait, and reject.
type Middleware struct {
	ctrl       *application.Controller
	dispatcher *application.Dispatcher
	stats      domain.StatsStore
	resolved   resolvedOptions

	ownedProbes []interface{ Close() }
	closeOnce   sync.Once
}

// New validates opts, wires the admission controller and its
// background dispatcher, and returns a ready-to-use Middleware.
// Construction fails synchronously with a *ConfigError on invalid
// options; it never starts a dispatcher goroutine on a failed
// construction.
func New(opts Options) (*Middleware, error) {
	resolved, err := resolve(opts)
	if err != nil {
		return nil, err
	}

	var logger domain.Logger = domain.NopLogger{}
	if resolved.enableLogs {
		logger = opts.Logger
		if logger == nil {
			logger = log.Default()
		}
	}

	m := &Middleware{resolved: resolved, stats: opts.Stats}

	cpuProbe := opts.CPU
	if cpuProbe == nil {
		p := infra.NewCpuProbe(logger)
		cpuProbe = p
		m.ownedProbes = append(m.ownedProbes, p)
	}

	var memProbe domain.MemoryProbe = opts.Memory
	if memProbe == nil && opts.UseMemoryMonitoring {
		p := infra.NewMemoryProbe(logger)
		memProbe = p
		m.ownedProbes = append(m.ownedProbes, p)
	}

	pool := opts.Pool
	if pool == nil {
		pool = infra.NewPermitPool(opts.MaxConcurrentRequests)
	}

	queue := opts.Queue
	if queue == nil {
		queue = infra.NewWaitQueue(opts.MaxQueueSize)
	}

	m.ctrl = &application.Controller{
		Config: application.Config{
			CPUThreshold:        opts.CPUThreshold,
			MemoryThreshold:     opts.MemoryThreshold,
			UseMemoryMonitoring: opts.UseMemoryMonitoring,
			MaxWait:             resolved.maxWait,
		},
		CPU:    cpuProbe,
		Memory: memProbe,
		Pool:   pool,
		Queue:  queue,
		Stats:  opts.Stats,
		Logger: logger,
	}

	m.dispatcher = &application.Dispatcher{Queue: queue, Logger: logger}
	go m.dispatcher.Run()

	return m, nil
}

// Handle wraps next with admission control, matching the host
// pipeline's usual func(http.Handler) http.Handler middleware shape.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.resolved.exemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		decision := m.ctrl.Evaluate()

		if !decision.OverThreshold {
			m.serveDirect(w, r, next, decision)
			return
		}

		m.serveQueued(w, r, next, decision)
	})
}

func (m *Middleware) serveDirect(w http.ResponseWriter, r *http.Request, next http.Handler, decision domain.Decision) {
	err := m.ctrl.RunDirect(r.Context(), func() { next.ServeHTTP(w, r) })
	if err != nil {
		// Permit could not be acquired: the context was cancelled
		// (client disconnected) or the pool has been closed at
		// shutdown. Either way there is nobody left to write a
		// response to.
		m.record(r, domain.StatsEvent{Outcome: domain.Failed, CPU: decision.CPU, Memory: decision.Memory})
		return
	}
	m.record(r, domain.StatsEvent{Outcome: domain.Done, CPU: decision.CPU, Memory: decision.Memory})
}

func (m *Middleware) serveQueued(w http.ResponseWriter, r *http.Request, next http.Handler, decision domain.Decision) {
	// The dispatcher may still be running next against dw on its own
	// goroutine after this function returns (the item is left in the
	// queue on timeout so concurrency accounting stays correct). dw
	// lets us cut that handler off from the real ResponseWriter the
	// instant we decide to answer the client ourselves, so only one
	// goroutine ever writes to it.
	dw := newDiscardWriter(w)
	item, accepted := m.ctrl.ReserveSlot(func() { next.ServeHTTP(dw, r) })
	if !accepted {
		w.WriteHeader(m.resolved.rejectStatus)
		_, _ = w.Write([]byte(m.resolved.rejectBody))
		m.record(r, domain.StatsEvent{Rejected: true, CPU: decision.CPU, Memory: decision.Memory})
		return
	}

	// item is still ours alone: nothing has handed it to the dispatcher
	// yet, so these headers land on w before any other goroutine could
	// possibly touch it. Enqueue is what publishes item, and the
	// channel send inside it happens-before the dispatcher's receive,
	// so writing here first is what keeps this a single-writer path.
	w.Header().Set("X-SmartQueue-Status", "Queued")
	w.Header().Set("X-SmartQueue-Reason", decision.Reason.String())
	w.Header().Set("X-SmartQueue-CPU", formatPercent(decision.CPU))
	if decision.Reason == domain.ReasonMemory {
		w.Header().Set("X-SmartQueue-Memory", formatPercent(decision.Memory))
	}

	if !m.ctrl.Enqueue(item) {
		w.WriteHeader(m.resolved.rejectStatus)
		_, _ = w.Write([]byte(m.resolved.rejectBody))
		m.record(r, domain.StatsEvent{Rejected: true, CPU: decision.CPU, Memory: decision.Memory})
		return
	}

	outcome, err := m.ctrl.AwaitCompletion(item, m.resolved.maxWait)
	wait := time.Since(item.EnqueuedAt)

	switch outcome {
	case domain.Done:
		m.record(r, domain.StatsEvent{Outcome: domain.Done, Wait: wait, CPU: decision.CPU, Memory: decision.Memory})
	case domain.Failed:
		m.record(r, domain.StatsEvent{Outcome: domain.Failed, Wait: wait, CPU: decision.CPU, Memory: decision.Memory})
		// Re-panic on the goroutine the host's own middleware chain is
		// watching; see Controller.wrapExecution's doc comment for why
		// the dispatcher goroutine can't do this itself.
		panic(err)
	case domain.TimedOut:
		dw.discard()
		w.Header().Set("X-SmartQueue-WaitSeconds", formatInt(int(wait.Seconds())))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Request timed out while waiting in queue"))
		m.record(r, domain.StatsEvent{Outcome: domain.TimedOut, Wait: wait, CPU: decision.CPU, Memory: decision.Memory})
	}
}

func (m *Middleware) record(r *http.Request, ev domain.StatsEvent) {
	if m.stats == nil {
		return
	}
	ev.Method = r.Method
	ev.Path = r.URL.Path
	ev.At = time.Now()
	_ = m.stats.Record(r.Context(), ev)
}

// Close shuts down the dispatcher and any internally owned probes:
// close the queue, wait (with no time limit) for the dispatched work
// to finish, then dispose the probes (stop their timers).
func (m *Middleware) Close() {
	m.closeOnce.Do(func() {
		m.ctrl.Queue.Close()
		m.dispatcher.Drain()
		for _, p := range m.ownedProbes {
			p.Close()
		}
	})
}
