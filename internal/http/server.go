// Package http serves the ledger JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/report"
	"ledger/internal/services"
	"ledger/internal/store"
)

// Ledger is what the handlers need from the service layer.
// *services.LedgerService implements it.
type Ledger interface {
	services.ViewSource
	Create(ctx context.Context, d core.TransactionDraft) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q store.Query) ([]core.Transaction, error)
	Summary(ctx context.Context, r ledger.DateRange) (ledger.Summary, error)
	Series(ctx context.Context, r ledger.DateRange) ([]ledger.ChartPoint, error)
	Report(ctx context.Context, r ledger.DateRange, opts report.Options) ([]byte, report.Document, error)
	Ping(ctx context.Context) error
}

var _ Ledger = (*services.LedgerService)(nil)

// Options tune the server. Zero values select defaults.
type Options struct {
	PageSize       int
	CurrencySymbol string
	ReportTitle    string
	// CacheTTL bounds dashboard cache entries; zero disables the cache.
	CacheTTL    time.Duration
	CacheSize   int
	CORSOrigins []string
	RateLimit   ratelimit.Config
	// Now replaces time.Now for report timestamps.
	Now func() time.Time
}

// NoticeHeader carries the reason a dashboard response holds the last good
// view instead of a fresh one.
const NoticeHeader = "X-Ledger-Notice"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// ClientHeader identifies a dashboard caller (a browser tab, a script).
// Without it callers are told apart by client IP.
const ClientHeader = "X-Ledger-Client"

// Per-caller view loaders. Idle loaders expire; the newest loaderCacheSize
// callers are kept.
const (
	loaderCacheSize = 1024
	loaderTTL       = 30 * time.Minute
	maxClientIDLen  = 64
)

type Server struct {
	http.Server
	ledger    Ledger
	loaders   *cache.LRU[*services.ViewLoader]
	loadersMu sync.Mutex
	dashboard *cache.LRU[*services.View]
	caches    *cache.Manager
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *log.Logger
	opts      Options
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, l Ledger, logger *log.Logger, opts Options) *Server {
	if opts.PageSize <= 0 {
		opts.PageSize = ledger.DefaultPageSize
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 100
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledger:    l,
		loaders:   cache.NewLRU[*services.ViewLoader](loaderCacheSize, loaderTTL),
		dashboard: cache.NewLRU[*services.View](opts.CacheSize, opts.CacheTTL),
		caches:    cache.NewManager(logger),
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		detector:  security.NewDetector(),
		logger:    logger,
		opts:      opts,
		started:   time.Now(),
	}
	s.caches.Register(s.dashboard)
	s.caches.Register(s.loaders)
	sweep := opts.CacheTTL
	if sweep <= 0 {
		sweep = time.Minute
	}
	s.caches.StartCleanup(sweep)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/{$}", s.handleRoot)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/summary", s.handleSummary)
	mux.HandleFunc("GET /api/transactions/chart-data", s.handleChartData)
	mux.HandleFunc("GET /api/transactions/stats", s.handleStats)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit, http.MethodPost, http.MethodDelete)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	if len(opts.CORSOrigins) > 0 {
		h = security.CORS(opts.CORSOrigins)(h)
	}
	h = s.withRequestLogging(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return r.Header.Get(RequestIDHeader) })(h)
	h = withRequestID(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background sweeps and the rate limiter, then the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// viewLoader returns the caller's loader, creating it on first use.
func (s *Server) viewLoader(r *http.Request) *services.ViewLoader {
	key := "ip:" + s.detector.ExtractClientIP(r)
	if id := strings.TrimSpace(r.Header.Get(ClientHeader)); id != "" && len(id) <= maxClientIDLen {
		key = "id:" + id
	}

	s.loadersMu.Lock()
	defer s.loadersMu.Unlock()
	if l, ok := s.loaders.Get(key); ok {
		return l
	}
	l := services.NewViewLoader(s.ledger)
	s.loaders.Set(key, l)
	return l
}

// invalidate drops cached dashboards after a mutation.
func (s *Server) invalidate(ctx context.Context) {
	if n := s.dashboard.Size(); n > 0 {
		s.dashboard.Purge()
		s.logger.DebugContext(ctx, "Dashboard cache purged", log.FieldCount, n)
	}
}

// withRequestID keeps a sane client supplied X-Request-ID or replaces it with
// a generated one, and echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" || len(requestID) > 64 {
			requestID = generateRequestID()
		}
		r.Header.Set(RequestIDHeader, requestID)
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}

// withRequestLogging screens the request and logs its start and completion.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := s.detector.ExtractClientIP(r)
		ctx := r.Context()
		logger := log.FromContext(ctx)

		if bad, reason := s.detector.Suspicious(r); bad {
			logger.WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path, "reason", reason)
		}

		access := log.NewStructuredLogger(logger)
		access.LogHTTPStart(ctx, r, clientIP)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		access.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, please try again later"})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}
