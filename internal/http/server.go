package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mesa/internal/config"
	applog "mesa/internal/log"
	"mesa/internal/metrics"
	"mesa/internal/middleware/ratelimit"
	"mesa/internal/middleware/security"
	"mesa/internal/services"
)

// Services bundles the ledger operations exposed over HTTP.
type Services struct {
	Workspaces *services.WorkspaceService
	Entries    *services.EntryGenerator
	Expenses   *services.ExpenseService
	Incomes    *services.IncomeService
	Invoices   *services.InvoiceCycleManager
	Resolver   *services.RecurrenceResolver
	Projection *services.ProjectionService
}

// ReadyFunc reports whether the backing store can serve requests.
type ReadyFunc func(ctx context.Context) error

type Server struct {
	http.Server
	svc            Services
	logger         *applog.Logger
	limiter        *ratelimit.Limiter
	ready          ReadyFunc
	timeout        time.Duration
	metricsEnabled bool

	shutdownOnce sync.Once
}

// NewServer wires the router and returns a ready-to-run http.Server.
func NewServer(cfg *config.Config, svc Services, logger *applog.Logger, ready ReadyFunc) *Server {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	s := &Server{
		svc:    svc,
		logger: logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
		ready:          ready,
		timeout:        cfg.RequestTimeout,
		metricsEnabled: cfg.MetricsEnabled,
	}
	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the chi router with all routes mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(applog.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(observe)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)
		r.Use(s.limiter.Middleware(userKey, func(w http.ResponseWriter, r *http.Request) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
				WarnContext(r.Context(), "Rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, retry later")
		}))

		r.Post("/workspaces", s.handleCreateWorkspace)
		r.Post("/cards", s.handleCreateCard)
		r.Get("/payment-types", s.handlePaymentTypes)
		r.Get("/projection", s.handleProjection)

		r.Route("/workspaces/{ws}", func(r chi.Router) {
			r.Use(s.requireMember)

			r.Get("/entries", s.handleMonthEntries)
			r.Post("/expenses", s.handleCreateExpenses)
			r.Post("/incomes", s.handleCreateIncomes)

			r.Route("/expenses/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetExpense)
				r.Patch("/", s.handleUpdateExpense)
				r.Delete("/", s.handleDeleteExpense)
				r.Post("/pay", s.handlePayExpense)
				r.Post("/unpay", s.handleUnpayExpense)
				r.Post("/activate", s.handleSetExpenseActive(true))
				r.Post("/deactivate", s.handleSetExpenseActive(false))
				r.Post("/receipt", s.handleAttachReceipt)
				r.Post("/cancellation", s.handleCancelSeries)
				r.Delete("/cancellation", s.handleResumeSeries)
			})

			r.Route("/incomes/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetIncome)
				r.Patch("/", s.handleUpdateIncome)
				r.Delete("/", s.handleDeleteIncome)
				r.Post("/activate", s.handleSetIncomeActive(true))
				r.Post("/deactivate", s.handleSetIncomeActive(false))
				r.Post("/confirmation", s.handleConfirmIncome)
				r.Delete("/confirmation", s.handleUndoConfirmation)
			})

			r.Post("/invoices/resolve", s.handleResolveInvoice)
			r.Route("/invoices/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetInvoice)
				r.Post("/recalculate", s.handleRecalculateInvoice)
				r.Post("/pay", s.handlePayInvoice)
				r.Post("/unpay", s.handleUnpayInvoice)
			})
		})
	})

	return r
}

// Shutdown stops the limiter cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not_ready", "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// observe records request latency under the matched route pattern so ids
// in paths do not explode label cardinality.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.
			WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
