package admission

import (
	"net/http"
	"sync"
)

// discardWriter wraps a ResponseWriter that a queued handler runs
// against on the dispatcher's goroutine, independent of whichever
// goroutine called Handle. Once the request's own ServeHTTP has
// returned, because the wait deadline fired first, writing to the
// real ResponseWriter would race the server's connection-handling
// goroutine and produce superfluous-write log spam. discard flips the
// writer into a sink so the still-running handler completes normally
// (its permit and completion bookkeeping are unaffected) without ever
// touching the real ResponseWriter again.
type discardWriter struct {
	mu     sync.Mutex
	rw     http.ResponseWriter
	sink   bool
	header http.Header
}

func newDiscardWriter(rw http.ResponseWriter) *discardWriter {
	return &discardWriter{rw: rw}
}

// discard makes every subsequent Header/Write/WriteHeader call on w a
// no-op. Safe to call at most once, from the goroutine that owns w
// after deciding the queued request timed out.
func (w *discardWriter) discard() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink = true
}

func (w *discardWriter) Header() http.Header {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sink {
		if w.header == nil {
			w.header = make(http.Header)
		}
		return w.header
	}
	return w.rw.Header()
}

func (w *discardWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sink {
		return len(b), nil
	}
	return w.rw.Write(b)
}

func (w *discardWriter) WriteHeader(status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sink {
		return
	}
	w.rw.WriteHeader(status)
}
