package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/infra"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	metricQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "admission_queue_depth",
		Help: "Number of requests currently waiting in the admission queue.",
	})
	metricInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "admission_in_flight",
		Help: "Number of requests currently holding an execution permit.",
	})
	metricRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "admission_rejected_total",
		Help: "Responses with status 503: queue-full rejections at the default reject status, queue wait timeouts, and upstream 503s.",
	})
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := readConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		log.Fatal().Err(err).Str("upstream", cfg.upstreamURL).Msg("invalid UPSTREAM_URL")
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("proxy error")
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	pool := infra.NewPermitPool(cfg.maxConcurrentRequests)
	queue := infra.NewWaitQueue(cfg.maxQueueSize)

	opts := admission.Options{
		Pool:                  pool,
		Queue:                 queue,
		Stats:                 infra.NewMemoryAdmissionStats(),
		CPUThreshold:          cfg.cpuThreshold,
		MemoryThreshold:       cfg.memoryThreshold,
		UseMemoryMonitoring:   cfg.useMemoryMonitoring,
		MaxQueueSize:          cfg.maxQueueSize,
		MaxConcurrentRequests: cfg.maxConcurrentRequests,
		MaxWaitSeconds:        cfg.maxWaitSeconds,
		RejectStatus:          cfg.rejectStatus,
		RejectBody:            cfg.rejectBody,
		EnableLogs:            cfg.enableLogs,
	}

	if cfg.statsRedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.statsRedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.statsRedisAddr).Msg("redis stats ping failed")
		}
		defer func() { _ = rdb.Close() }()
		opts.Stats = infra.NewRedisAdmissionStats(rdb)
		log.Info().Str("addr", cfg.statsRedisAddr).Msg("recording admission stats to redis")
	}

	mw, err := admission.New(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct admission middleware")
	}
	defer mw.Close()

	go pollGauges(pool, queue)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(zerologRequestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/*", mw.Handle(proxy))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.listenAddr).Str("upstream", target.String()).Msg("gateway listening")
	log.Info().
		Int("cpuThreshold", cfg.cpuThreshold).
		Int("memoryThreshold", cfg.memoryThreshold).
		Bool("useMemoryMonitoring", cfg.useMemoryMonitoring).
		Int("maxQueueSize", cfg.maxQueueSize).
		Int("maxConcurrentRequests", cfg.maxConcurrentRequests).
		Int("maxWaitSeconds", cfg.maxWaitSeconds).
		Msg("admission configuration")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}

// pollGauges keeps the prometheus gauges in sync with the pool/queue's
// own live counters; the admission core has no push-based metrics
// hook, so the gateway samples it on an interval instead.
func pollGauges(pool interface{ InFlight() int }, queue interface{ Size() int }) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		metricInFlight.Set(float64(pool.InFlight()))
		metricQueueDepth.Set(float64(queue.Size()))
	}
}

func zerologRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if ww.Status() == http.StatusServiceUnavailable {
			metricRejected.Inc()
		}

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

type config struct {
	listenAddr      string
	upstreamURL     string
	cpuThreshold    int
	memoryThreshold int

	useMemoryMonitoring   bool
	maxQueueSize          int
	maxConcurrentRequests int
	maxWaitSeconds        int
	rejectStatus          int
	rejectBody            string
	enableLogs            bool

	statsRedisAddr string
}

func readConfig() (config, error) {
	def := admission.DefaultOptions()

	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.cpuThreshold = getenvIntDefault("CPU_THRESHOLD", def.CPUThreshold)
	cfg.memoryThreshold = getenvIntDefault("MEMORY_THRESHOLD", def.MemoryThreshold)
	cfg.useMemoryMonitoring = getenvBoolDefault("USE_MEMORY_MONITORING", def.UseMemoryMonitoring)
	cfg.maxQueueSize = getenvIntDefault("MAX_QUEUE_SIZE", def.MaxQueueSize)
	cfg.maxConcurrentRequests = getenvIntDefault("MAX_CONCURRENT_REQUESTS", def.MaxConcurrentRequests)
	cfg.maxWaitSeconds = getenvIntDefault("MAX_WAIT_SECONDS", def.MaxWaitSeconds)
	cfg.rejectStatus = getenvIntDefault("REJECT_STATUS", def.RejectStatus)
	cfg.rejectBody = getenvDefault("REJECT_BODY", def.RejectBody)
	cfg.enableLogs = getenvBoolDefault("ENABLE_LOGS", def.EnableLogs)
	cfg.statsRedisAddr = getenvDefault("STATS_REDIS_ADDR", "")

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
