package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/api/handlers"
	mw "github.com/Harshitk-cp/thoughtgraph/internal/api/middleware"
	"github.com/Harshitk-cp/thoughtgraph/internal/buildconfig"
	"github.com/Harshitk-cp/thoughtgraph/internal/config"
	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/Harshitk-cp/thoughtgraph/internal/embedding"
	"github.com/Harshitk-cp/thoughtgraph/internal/metrics"
	"github.com/Harshitk-cp/thoughtgraph/internal/publish"
	"github.com/Harshitk-cp/thoughtgraph/internal/service"
	"github.com/Harshitk-cp/thoughtgraph/internal/stack"
	"github.com/Harshitk-cp/thoughtgraph/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the router and the stack it serves.
type App struct {
	Router       *chi.Mux
	Stack        *stack.Stack
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// Options are the HTTP-level settings. NewApp reads them from config when
// nil.
type Options struct {
	APIKeys        []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func OptionsFromConfig() *Options {
	return &Options{
		APIKeys:        config.APIKeys(),
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	}
}

func NewApp(s *stack.Stack, opts *Options, logger *zap.Logger) *App {
	if opts == nil {
		opts = OptionsFromConfig()
	}

	// Handlers
	thoughtHandler := handlers.NewThoughtHandler(s.Labels, s.Thoughts)
	statementHandler := handlers.NewStatementHandler(s.Labels, s.Thoughts, s.GraphStore)
	labelHandler := handlers.NewLabelHandler(s.Labels)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Stack:     s,
		startTime: time.Now(),
	}

	keyHashes := make([]string, 0, len(opts.APIKeys))
	for _, k := range opts.APIKeys {
		keyHashes = append(keyHashes, mw.HashAPIKey(k))
	}

	var observer mw.HTTPObserver
	if s.Metrics != nil {
		observer = s.Metrics
	}
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount, observer)

	// Global middleware (order matters)
	r.Use(mw.RequestID)                                         // Generate/extract request ID first
	r.Use(middleware.RealIP)                                    // Extract real IP
	r.Use(metricsCollector.Middleware)                          // Collect metrics
	r.Use(mw.Logging(logger))                                   // Log all requests
	r.Use(middleware.Recoverer)                                 // Recover from panics
	r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst)) // Rate limiting

	// Health, metrics and stats (no auth)
	r.Get("/health", app.healthHandler())
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}
	r.Get("/stats", app.statsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(keyHashes))

		r.Post("/thoughts", thoughtHandler.Reason)

		r.Route("/statements", func(r chi.Router) {
			r.Post("/", statementHandler.Create)
			r.Get("/", statementHandler.List)
		})
		r.Get("/entities/{id}/types", statementHandler.Types)

		r.Route("/labels", func(r chi.Router) {
			r.Get("/", labelHandler.List)
			r.Post("/normalize", labelHandler.Normalize)
		})
	})

	return app
}

func (app *App) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := app.Stack.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"persistent": app.Stack.Persistent(),
			"labels":     len(app.Stack.Labels.Entries("")),
			"frequency":  app.Stack.Thoughts.Frequency().Snapshot(),
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.GraphStore      = (*store.MemoryGraphStore)(nil)
	_ domain.GraphStore      = (*store.StatementStore)(nil)
	_ domain.GraphStore      = (*store.CachedGraphStore)(nil)
	_ domain.LabelStore      = (*store.MemoryLabelStore)(nil)
	_ domain.LabelStore      = (*store.LabelStore)(nil)
	_ domain.EmbeddingClient = (*embedding.TrigramClient)(nil)
	_ domain.BundlePublisher = (*publish.NATSPublisher)(nil)
	_ service.ReasonMetrics  = (*metrics.Metrics)(nil)
	_ mw.HTTPObserver        = (*metrics.Metrics)(nil)
)
