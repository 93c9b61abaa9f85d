package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"filing-backend/application/services"
	"filing-backend/interfaces/http/rest/handlers"
	"filing-backend/interfaces/http/rest/middleware"
	"filing-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig toggles the optional parts of the HTTP surface.
type RouterConfig struct {
	ServiceName    string
	EnableCORS     bool
	AllowedOrigins []string
	EnableMetrics  bool
	EnableTracing  bool
	RequestTimeout time.Duration
}

// Router creates and configures the HTTP router
type Router struct {
	orders  *services.OrderService
	metrics *observability.Collector
	checks  map[string]Pinger
	config  RouterConfig
	logger  *zap.Logger
}

// NewRouter creates a new router instance. checks may be nil.
func NewRouter(
	orders *services.OrderService,
	metrics *observability.Collector,
	checks map[string]Pinger,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		orders:  orders,
		metrics: metrics,
		checks:  checks,
		config:  config,
		logger:  logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.config.RequestTimeout > 0 {
		router.Use(chimiddleware.Timeout(rt.config.RequestTimeout))
	}
	if rt.config.EnableTracing {
		router.Use(observability.TracingMiddleware(rt.config.ServiceName))
	}
	if rt.config.EnableMetrics && rt.metrics != nil {
		router.Use(observability.MetricsMiddleware(rt.metrics))
	}

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	orderHandler := handlers.NewOrderHandler(rt.orders, rt.logger)
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.CreateOrder)
			r.Get("/by-number/{number}", orderHandler.GetOrderByNumber)
			r.Get("/{orderID}", orderHandler.GetOrder)
			r.Get("/{orderID}/details", orderHandler.GetOrderDetails)
			r.Patch("/{orderID}", orderHandler.UpdateOrder)
			r.Put("/{orderID}/status", orderHandler.UpdateStatus)
			r.Put("/{orderID}/payment-status", orderHandler.UpdatePaymentStatus)
			r.Delete("/{orderID}", orderHandler.DeleteOrder)
		})
		r.Get("/customers/{customerID}/orders", orderHandler.ListCustomerOrders)
	})

	return router
}

// healthCheck reports overall health and the state of each probed
// dependency. A failing dependency makes the service unhealthy.
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]interface{}{"status": "healthy"}
	if len(rt.checks) > 0 {
		deps := make(map[string]string, len(rt.checks))
		for name, check := range rt.checks {
			if err := check.Ping(ctx); err != nil {
				rt.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
				deps[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "healthy"
		}
		body["dependencies"] = deps
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
