// Package http is the JSON boundary of the bookkeeping engine. Handlers
// parse, delegate to the services, and render; no ledger arithmetic lives
// here.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tillbook/internal/cache"
	"tillbook/internal/core"
	"tillbook/internal/middleware/ratelimit"
	"tillbook/internal/middleware/trace"
	"tillbook/internal/services"
)

const reportCacheTTL = 5 * time.Minute

// Services bundles the engines the server exposes.
type Services struct {
	Ledger         *services.LedgerService
	Checkout       *services.CheckoutService
	Closings       *services.ClosingService
	Reimbursements *services.ReimbursementService
}

type Server struct {
	http.Server

	ledger         *services.LedgerService
	checkout       *services.CheckoutService
	closings       *services.ClosingService
	reimbursements *services.ReimbursementService

	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter

	// Report caches, flushed wholesale on every write: one ledger row can
	// move any cached range.
	summaryCache *cache.LRUCache[core.PeriodSummary]
	profitCache  *cache.LRUCache[services.ProfitReport]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svcs Services) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:         svcs.Ledger,
		checkout:       svcs.Checkout,
		closings:       svcs.Closings,
		reimbursements: svcs.Reimbursements,
		tracer:         trace.NewMiddleware(clientIP),
		rateLimiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		summaryCache:   cache.NewLRUCache[core.PeriodSummary](100, reportCacheTTL),
		profitCache:    cache.NewLRUCache[services.ProfitReport](100, reportCacheTTL),
		cacheManager:   cache.NewManager(),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.profitCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	limited := s.rateLimiter.Middleware(clientIP, nil)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.tracer.Wrap(withHeaders(h)))
	}
	handleWrite := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.tracer.Wrap(limited(withHeaders(h))))
	}

	handleWrite("POST /api/transactions", s.handleCreateTransaction)
	handle("GET /api/transactions", s.handleListTransactions)
	handleWrite("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	handleWrite("POST /api/transfers", s.handleCreateTransfer)

	handleWrite("POST /api/checkout/preview", s.handleCheckoutPreview)
	handleWrite("POST /api/checkout/confirm", s.handleCheckoutConfirm)

	handle("GET /api/closings/{month}/preview", s.handleClosingPreview)
	handleWrite("POST /api/closings/{month}", s.handleSaveClosing)

	handle("GET /api/reports/summary", s.handleSummaryReport)
	handle("GET /api/reports/profit", s.handleProfitReport)

	handleWrite("PUT /api/reimbursements/{period}", s.handleUpsertReimbursement)
	handle("GET /api/reimbursements/{period}", s.handleGetReimbursement)
	handle("GET /api/reimbursements/analysis", s.handleReimbursementAnalysis)

	mux.HandleFunc("GET /healthz", handleHealth)

	return s
}

// Shutdown stops the background goroutines along with the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.cacheManager.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// invalidateReports flushes the report caches after a write.
func (s *Server) invalidateReports() {
	s.summaryCache.Clear()
	s.profitCache.Clear()
}

func withHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next(w, r)
	}
}

// clientIP resolves the caller address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
