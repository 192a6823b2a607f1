// Package http serves the JSON API. Every data route requires a bearer
// token; mutating methods are rate limited per client IP.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tally/internal/auth"
	"tally/internal/backend"
	"tally/internal/budget"
	"tally/internal/cache"
	"tally/internal/log"
	"tally/internal/prefs"
	"tally/internal/store"
)

type Server struct {
	http.Server

	backend  backend.Backend
	verifier *auth.Verifier
	pub      store.Publisher
	prefs    *prefs.Store
	logger   *log.Logger
	reqLog   *log.StructuredLogger

	// Per-user stores, created lazily on first authenticated request.
	storeMu sync.Mutex
	stores  map[string]*store.Store

	rateLimiter *rateLimiter
	ips         *ipResolver
	metrics     securityMetrics

	// Budget views are expensive to assemble, so they are cached per
	// user and month and invalidated on any mutation by that user.
	budgetCache  *cache.LRUCache[budget.Summary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

type Options struct {
	Addr      string
	Backend   backend.Backend
	Verifier  *auth.Verifier
	Publisher store.Publisher
	Prefs     *prefs.Store
	Logger    *log.Logger

	BudgetCacheSize int
	BudgetCacheTTL  time.Duration

	// CIDRs whose forwarding headers are honored when resolving client
	// IPs. Empty means loopback plus the private ranges.
	TrustedProxies []string
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP})
	}
	cacheSize := opts.BudgetCacheSize
	if cacheSize <= 0 {
		cacheSize = 100
	}
	cacheTTL := opts.BudgetCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		backend:      opts.Backend,
		verifier:     opts.Verifier,
		pub:          opts.Publisher,
		prefs:        opts.Prefs,
		logger:       logger,
		reqLog:       log.NewStructuredLogger(logger),
		stores:       make(map[string]*store.Store),
		rateLimiter:  newRateLimiter(60, time.Minute),
		ips:          newIPResolver(opts.TrustedProxies),
		budgetCache:  cache.NewLRUCache[budget.Summary](cacheSize, cacheTTL),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.budgetCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	api := http.NewServeMux()
	api.HandleFunc("GET /accounts", s.handleListAccounts)
	api.HandleFunc("POST /accounts", s.handleCreateAccount)
	api.HandleFunc("PUT /accounts/{id}", s.handleUpdateAccount)
	api.HandleFunc("DELETE /accounts/{id}", s.handleDeleteAccount)

	api.HandleFunc("GET /categories", s.handleListCategories)
	api.HandleFunc("POST /categories", s.handleCreateCategory)
	api.HandleFunc("PUT /categories/{id}", s.handleUpdateCategory)
	api.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)

	api.HandleFunc("GET /transactions", s.handleListTransactions)
	api.HandleFunc("POST /transactions", s.handleCreateTransaction)
	api.HandleFunc("PUT /transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	api.HandleFunc("GET /debts", s.handleListDebts)
	api.HandleFunc("POST /debts", s.handleCreateDebt)
	api.HandleFunc("PUT /debts/{id}", s.handleUpdateDebt)
	api.HandleFunc("DELETE /debts/{id}", s.handleDeleteDebt)
	api.HandleFunc("POST /debts/{id}/status", s.handleUpdateDebtStatus)

	api.HandleFunc("GET /budget", s.handleBudgetView)
	api.HandleFunc("PUT /budget/planned", s.handleSetPlanned)
	api.HandleFunc("POST /incomes", s.handleAddIncome)

	api.HandleFunc("GET /export/csv", s.handleExportCSV)
	api.HandleFunc("GET /export/pdf", s.handleExportPDF)

	api.HandleFunc("GET /prefs", s.handleListPrefs)
	api.HandleFunc("PUT /prefs/{key}", s.handleSetPref)

	mux.Handle("/api/", http.StripPrefix("/api", s.withSecurity(s.verifier.Middleware(api))))

	return s
}

// storeFor returns the per-user data store, creating it on first use.
func (s *Server) storeFor(userID string) *store.Store {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	st, ok := s.stores[userID]
	if !ok {
		st = store.New(s.backend, s.pub, s.logger.Logger, userID)
		s.stores[userID] = st
	}
	return st
}

// invalidateBudget drops every cached budget view for the user.
func (s *Server) invalidateBudget(userID string) {
	s.budgetCache.DeletePrefix(userID + "|")
}

// budgetCacheKey scopes cached views to the exact date range they were
// computed over. The transactions endpoint can move the active range to any
// sub-range of a month, and a partial-range summary must never be served
// for the full month.
func budgetCacheKey(userID, startISO, endISO string) string {
	return userID + "|" + startISO + "|" + endISO
}

// withSecurity adds security headers, request IDs, rate limiting on
// mutating methods, and request logging.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := s.ips.clientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, &s.metrics) {
			s.logger.WarnContext(ctx, "Suspicious request",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		s.reqLog.LogHTTPStart(ctx, r, requestID, clientIP)

		if mutating(r.Method) && !s.rateLimiter.allow(clientIP, &s.metrics) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.reqLog.LogHTTPEnd(ctx, r, requestID, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

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
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
