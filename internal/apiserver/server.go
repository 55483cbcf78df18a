// Package apiserver exposes the diagnostic engine over HTTP: an analyze
// endpoint, rule-set introspection, health/readiness probes, and
// prometheus metrics. The loaded engine is held behind an atomic pointer
// so rule-set hot reloads swap it without interrupting in-flight
// analyses.
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/bkoehler/netverdict/internal/engine"
	"github.com/bkoehler/netverdict/internal/logging"
)

// Options configures the API server.
type Options struct {
	// Port is the TCP port to listen on.
	Port int

	// CacheSize is the number of analysis results to keep in the LRU
	// cache. 0 disables caching.
	CacheSize int

	// Registry, when set, receives server metrics and backs the /metrics
	// endpoint.
	Registry *prometheus.Registry

	// Tracer wraps analyze requests in spans. Nil means no tracing.
	Tracer trace.Tracer
}

// Server handles HTTP API requests.
type Server struct {
	port    int
	server  *http.Server
	router  *http.ServeMux
	logger  *logging.Logger
	engine  atomic.Pointer[engine.Engine]
	cache   *resultCache
	metrics *serverMetrics
	tracer  trace.Tracer
}

// New creates an API server. Call SetEngine once a rule set is loaded;
// until then the server reports not ready and analyze requests fail with
// 503.
func New(opts Options) (*Server, error) {
	s := &Server{
		port:   opts.Port,
		router: http.NewServeMux(),
		logger: logging.GetLogger("apiserver"),
		tracer: opts.Tracer,
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("netverdict.api")
	}
	if opts.CacheSize > 0 {
		cache, err := newResultCache(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		s.cache = cache
	}
	if opts.Registry != nil {
		s.metrics = newServerMetrics(opts.Registry)
		s.router.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}
	s.registerHandlers()
	return s, nil
}

// SetEngine swaps the engine used for new analyses, typically after a
// rule-set hot reload. The result cache is purged since cached verdicts
// were computed against the previous rule set.
func (s *Server) SetEngine(e *engine.Engine) {
	old := s.engine.Swap(e)
	s.cache.purge()
	if old != nil {
		s.metrics.reloaded()
		s.logger.Info("engine swapped after rule set reload")
	}
}

// currentEngine returns the active engine, or nil before the first rule
// set loads.
func (s *Server) currentEngine() *engine.Engine {
	return s.engine.Load()
}

// Start begins serving in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.withRequestLog(s.withRecovery(s.router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		s.logger.Info("API server listening on port %d", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.ErrorWithErr("API server failed", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully, respecting the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Name implements lifecycle.Component.
func (s *Server) Name() string {
	return "apiserver"
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.withRecovery(s.router))
}

// serverMetrics holds prometheus metrics for API observability.
type serverMetrics struct {
	RequestsTotal    *prometheus.CounterVec
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	ReloadsTotal     prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netverdict_api_requests_total",
			Help: "Total number of API requests, by path and status code",
		}, []string{"path", "code"}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netverdict_api_cache_hits_total",
			Help: "Total number of analyze requests served from the result cache",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netverdict_api_cache_misses_total",
			Help: "Total number of analyze requests that ran a fresh analysis",
		}),
		ReloadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netverdict_ruleset_reloads_total",
			Help: "Total number of rule set hot reloads applied",
		}),
	}
	reg.MustRegister(m.RequestsTotal, m.CacheHitsTotal, m.CacheMissesTotal, m.ReloadsTotal)
	return m
}

// The recording helpers are nil-safe so the server works without metrics.

func (m *serverMetrics) request(path string, code int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(path, fmt.Sprintf("%d", code)).Inc()
}

func (m *serverMetrics) cacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *serverMetrics) cacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

func (m *serverMetrics) reloaded() {
	if m == nil {
		return
	}
	m.ReloadsTotal.Inc()
}
