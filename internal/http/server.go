// Package http exposes the ledger over a JSON API. One middleware chain
// wraps every versioned route: client IP resolution, request logging, rate
// limiting for writes, and security headers.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timeledger/internal/cache"
	"timeledger/internal/core"
	applog "timeledger/internal/log"
	"timeledger/internal/observability"
	"timeledger/internal/stats"
	ledgersync "timeledger/internal/sync"
)

type (
	// Ledger is the slot grid the API reads and mutates.
	Ledger interface {
		Day(ctx context.Context, date core.Date) ([]core.TimeSlot, error)
		Bind(ctx context.Context, slotID, activityID string) (core.TimeSlot, error)
		Clear(ctx context.Context, slotID string) (core.TimeSlot, error)
	}

	// Directory lists the activities slots can be bound to.
	Directory interface {
		All() []core.Activity
		Search(query string) []core.Activity
		Categories() []string
	}

	// StatsSource aggregates period statistics.
	StatsSource interface {
		Stats(ctx context.Context, kind core.PeriodKind, anchor core.Date) (*stats.PeriodStats, error)
	}

	// ProjectionSource computes annual projections.
	ProjectionSource interface {
		Project(ctx context.Context, date core.Date) (*stats.Projection, error)
	}

	// Syncer drives the push/pull reconciliation with the remote store.
	Syncer interface {
		Push(ctx context.Context) ledgersync.PushReport
		Pull(ctx context.Context) ledgersync.PullReport
		TestConnection(ctx context.Context) ledgersync.ConnectionStatus
		Status(ctx context.Context) (*ledgersync.Status, error)
	}
)

// Config carries the HTTP server tunables. Zero values fall back to the
// defaults used in production.
type Config struct {
	Addr            string
	RateLimitPerMin int
	CacheTTL        time.Duration
	CacheSize       int
}

// Server wraps the standard library server with the ledger collaborators,
// a read cache for the aggregation endpoints, and security middleware.
type Server struct {
	http.Server

	ledger      Ledger
	directory   Directory
	stats       StatsSource
	projections ProjectionSource
	syncer      Syncer

	logger  *applog.Logger
	metrics *securityMetrics
	limiter *rateLimiter

	readCache    *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer wires the routes and middleware. The logger may be nil, in
// which case the process default is used.
func NewServer(cfg Config, ledger Ledger, directory Directory, statsSource StatsSource, projections ProjectionSource, syncer Syncer, logger *applog.Logger) *Server {
	if cfg.RateLimitPerMin <= 0 {
		cfg.RateLimitPerMin = 60
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ledger:       ledger,
		directory:    directory,
		stats:        statsSource,
		projections:  projections,
		syncer:       syncer,
		logger:       logger.WithComponent(applog.ComponentHTTP),
		metrics:      &securityMetrics{},
		limiter:      newRateLimiter(cfg.RateLimitPerMin),
		readCache:    cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL),
		cacheManager: cache.NewManager(),
		started:      time.Now(),
	}

	s.cacheManager.Register(s.readCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/day", s.withMiddleware(s.handleDay))
	mux.HandleFunc("/v1/activities", s.withMiddleware(s.handleActivities))
	mux.HandleFunc("/v1/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("/v1/slots/", s.withMiddleware(s.handleSlot))
	mux.HandleFunc("/v1/stats", s.withMiddleware(s.handleStats))
	mux.HandleFunc("/v1/projection", s.withMiddleware(s.handleProjection))
	mux.HandleFunc("/v1/sync/push", s.withMiddleware(s.handleSyncPush))
	mux.HandleFunc("/v1/sync/pull", s.withMiddleware(s.handleSyncPull))
	mux.HandleFunc("/v1/sync/status", s.withMiddleware(s.handleSyncStatus))

	return s
}

// withMiddleware is the single chain around every versioned route. Writes
// are rate limited per client IP; reads pass through unthrottled.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		reqLogger := s.logger.With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		structured := applog.NewStructuredLogger(reqLogger)
		structured.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			reqLogger.WarnContext(ctx, "Suspicious request pattern",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}

		if r.Method == http.MethodPost && !s.limiter.allow(clientIP, s.metrics) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, retry later")
			observability.RecordRequest(r.Method, r.URL.Path, http.StatusTooManyRequests)
			return
		}

		setSecurityHeaders(w)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		observability.RecordRequest(r.Method, r.URL.Path, rw.statusCode)
		structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter captures the status code for logging and metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID returns a random hex ID for request correlation.
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

const (
	statsKeyPrefix      = "stats:"
	projectionKeyPrefix = "projection:"
)

func statsKey(kind core.PeriodKind, anchor core.Date) string {
	return statsKeyPrefix + kind.String() + ":" + anchor.String()
}

func projectionKey(date core.Date) string {
	return projectionKeyPrefix + date.String()
}

// invalidateSlot drops cached reads made stale by a write to the given
// slot. Stats cover arbitrary periods, so every stats entry goes; the
// projection is dropped only for the slot's own date.
func (s *Server) invalidateSlot(slotID string) {
	s.readCache.DeletePrefix(statsKeyPrefix)
	if date, _, err := core.ParseSlotID(slotID); err == nil {
		s.readCache.Delete(projectionKey(date))
	}
}

// invalidateAll clears the read cache entirely. Used after a pull merges
// remote records for unknown dates.
func (s *Server) invalidateAll() {
	s.readCache.Purge()
}

// Shutdown stops the background goroutines and then drains in-flight
// requests. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server",
			"rate_limit_hits", atomic.LoadInt64(&s.metrics.rateLimitHits),
			"suspicious_requests", atomic.LoadInt64(&s.metrics.suspiciousRequests))

		s.limiter.stop()
		s.cacheManager.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// parseDateParam reads the "date" query parameter, defaulting to today.
func parseDateParam(r *http.Request) (core.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return core.DateOf(time.Now()), nil
	}
	return core.ParseDate(raw)
}
