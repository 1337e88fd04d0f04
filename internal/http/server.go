package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/auth"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Services bundles the application services the handlers call into.
type Services struct {
	Users     *services.UserService
	Accounts  *services.AccountService
	Catalog   *services.CatalogService
	Expenses  *services.ExpenseService
	Deposits  *services.DepositService
	Budgets   *services.BudgetService
	Recurring *services.RecurringProcessor
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config carries the server's listen address and edge policy.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	svc    Services
	tokens *auth.TokenManager
	db     Pinger
	now    func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	securityHeaders  *security.HeadersMiddleware
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime time.Time
}

// NewServer wires routes and the middleware chain, returning a ready-to-run server.
func NewServer(cfg Config, svc Services, tokens *auth.TokenManager, db Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		svc:              svc,
		tokens:           tokens,
		db:               db,
		now:              time.Now,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: detector,
		securityHeaders:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limitAPI(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = s.securityHeaders.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = applog.ComponentMiddleware(applog.ComponentHTTP)(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/users/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /api/accounts", s.requireAuth(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.requireAuth(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts/{id}", s.requireAuth(s.handleGetAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.requireAuth(s.handleUpdateAccount))

	mux.HandleFunc("GET /api/categories", s.requireAuth(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.requireAuth(s.handleCreateCategory))
	mux.HandleFunc("GET /api/categories/{id}", s.requireAuth(s.handleGetCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.requireAuth(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.requireAuth(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/deposit-types", s.requireAuth(s.handleListDepositTypes))
	mux.HandleFunc("POST /api/deposit-types", s.requireAuth(s.handleCreateDepositType))

	mux.HandleFunc("GET /api/expenses", s.requireAuth(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.requireAuth(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses/summary", s.requireAuth(s.handleExpenseSummary))
	mux.HandleFunc("GET /api/expenses/recurring", s.requireAuth(s.handleListRecurring))
	mux.HandleFunc("POST /api/expenses/recurring", s.requireAuth(s.handleCreateRecurring))
	mux.HandleFunc("GET /api/expenses/{id}", s.requireAuth(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.requireAuth(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.requireAuth(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/deposits", s.requireAuth(s.handleListDeposits))
	mux.HandleFunc("POST /api/deposits", s.requireAuth(s.handleCreateDeposit))
	mux.HandleFunc("GET /api/deposits/summary", s.requireAuth(s.handleDepositSummary))
	mux.HandleFunc("GET /api/deposits/{id}", s.requireAuth(s.handleGetDeposit))
	mux.HandleFunc("PUT /api/deposits/{id}", s.requireAuth(s.handleUpdateDeposit))
	mux.HandleFunc("DELETE /api/deposits/{id}", s.requireAuth(s.handleDeleteDeposit))

	mux.HandleFunc("GET /api/budgets", s.requireAuth(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.requireAuth(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/current", s.requireAuth(s.handleCurrentBudget))
	mux.HandleFunc("GET /api/budgets/summary", s.requireAuth(s.handleBudgetSummary))
	mux.HandleFunc("GET /api/budgets/summary.pdf", s.requireAuth(s.handleBudgetSummaryPDF))
	mux.HandleFunc("GET /api/budgets/alerts", s.requireAuth(s.handleListAlerts))
	mux.HandleFunc("PUT /api/budgets/alerts/{id}/read", s.requireAuth(s.handleMarkAlertRead))
	mux.HandleFunc("GET /api/budgets/{id}", s.requireAuth(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.requireAuth(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.requireAuth(s.handleDeleteBudget))
	mux.HandleFunc("PUT /api/budgets/{id}/recalc", s.requireAuth(s.handleRecalcBudget))

	mux.HandleFunc("POST /api/jobs/recurring", s.requireAuth(s.handleRunRecurring))
	mux.HandleFunc("POST /api/jobs/reconcile", s.requireAuth(s.handleRunReconcile))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Route not found").Write(w)
	})
}

// limitAPI applies the per-client rate limit to /api routes. Probes are exempt.
func (s *Server) limitAPI(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
