// stressclient fires a configurable number of concurrent requests at a
// target (normally the admission gateway) and reports how the
// responses split across status codes and how long they took. It is
// the load-driving counterpart to cmd/demo-server, replacing the
// original single hand-rolled smoke test with a small worker pool that
// can actually push the gateway into its queueing and rejection paths.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"
)

type result struct {
	status   int
	err      error
	duration time.Duration
}

func main() {
	target := flag.String("target", "http://localhost:8080/", "URL to hammer")
	total := flag.Int("n", 200, "total number of requests to send")
	concurrency := flag.Int("c", 20, "number of concurrent workers")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	jobs := make(chan struct{}, *total)
	for i := 0; i < *total; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	results := make(chan result, *total)

	var wg sync.WaitGroup
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go worker(client, *target, jobs, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	summarize(results, *total)
}

func worker(client *http.Client, target string, jobs <-chan struct{}, results chan<- result, wg *sync.WaitGroup) {
	defer wg.Done()
	for range jobs {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), client.Timeout)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			cancel()
			results <- result{err: err}
			continue
		}
		resp, err := client.Do(req)
		cancel()
		if err != nil {
			results <- result{err: err, duration: time.Since(start)}
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		results <- result{status: resp.StatusCode, duration: time.Since(start)}
	}
}

func summarize(results <-chan result, total int) {
	byStatus := make(map[int]int)
	var errs int
	var durations []time.Duration

	for r := range results {
		if r.err != nil {
			errs++
			continue
		}
		byStatus[r.status]++
		durations = append(durations, r.duration)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	fmt.Printf("requests: %d  errors: %d\n", total, errs)
	for status, count := range byStatus {
		fmt.Printf("  %d: %d\n", status, count)
	}
	if len(durations) > 0 {
		fmt.Printf("latency: p50=%s p90=%s p99=%s max=%s\n",
			percentile(durations, 0.50),
			percentile(durations, 0.90),
			percentile(durations, 0.99),
			durations[len(durations)-1],
		)
	}

	if errs > 0 {
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
