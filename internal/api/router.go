package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/api/handlers"
	mw "github.com/Harshitk-cp/engram/internal/api/middleware"
	"github.com/Harshitk-cp/engram/internal/buildconfig"
	"github.com/Harshitk-cp/engram/internal/config"
	"github.com/Harshitk-cp/engram/internal/domain"
	"github.com/Harshitk-cp/engram/internal/embedding"
	"github.com/Harshitk-cp/engram/internal/engine"
	"github.com/Harshitk-cp/engram/internal/llm"
	"github.com/Harshitk-cp/engram/internal/reasoning"
	"github.com/Harshitk-cp/engram/internal/sectorconfig"
	"github.com/Harshitk-cp/engram/internal/session"
	"github.com/Harshitk-cp/engram/internal/store/postgres"
)

// App holds the router and every long-running component that needs
// explicit lifecycle management, grounded on the teacher's App struct
// (internal/api/router.go) generalized from its Tuner/Expirer/Decay/
// Consolidation quartet to this server's scheduler/session-store pair.
type App struct {
	Router        *chi.Mux
	Store         *postgres.Store
	Decay         *engine.DecayEngine
	Pruning       *engine.PruningService
	Archive       *engine.ArchiveManager
	Consolidation *engine.ConsolidationEngine
	Health        *engine.HealthMonitor
	Scheduler     *engine.ConsolidationScheduler
	Sessions      *session.Store
	Hub           *session.Hub
	LLM           domain.LLMProvider
	Embedding     domain.EmbeddingProvider

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewApp wires the full stack: postgres store, sector config, every memory
// lifecycle engine component, the LLM/embedding provider clients, the four
// reasoning stream variants behind the coordinator, session/SSE state, and
// the chi router itself.
func NewApp(pool *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	store := postgres.NewStore(pool)

	sectorCfg, err := sectorconfig.New(domain.DefaultDecayConfig())
	if err != nil {
		return nil, err
	}

	var llmClient domain.LLMProvider
	llmClient, err = llm.NewClient(config.LLMProvider(), config.LLMAPIKey())
	if err != nil {
		logger.Warn("LLM client initialization failed", zap.String("provider", config.LLMProvider()), zap.Error(err))
	} else {
		logger.Info("LLM client initialized", zap.String("provider", config.LLMProvider()))
	}

	var embeddingClient domain.EmbeddingProvider
	embeddingClient, err = embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed", zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	decayEngine := engine.NewDecayEngine(store, sectorCfg, logger)
	pruningSvc := engine.NewPruningService(store, logger)
	archiveMgr := engine.NewArchiveManager(store, logger)
	consolidationEngine := engine.NewConsolidationEngine(store, store, llmClient, logger)

	schedCfg := engine.DefaultSchedulerConfig()
	schedCfg.CronExpression = config.SchedulerCron()
	schedCfg.Enabled = config.SchedulerEnabled()
	schedCfg.MaxSystemLoad = config.SchedulerMaxLoad()
	schedCfg.ConsolidationConfig.BatchSize = config.ConsolidationBatchSize()
	schedCfg.ActiveUsers = store.ListDistinctUserIDs

	loadMonitor := engine.NewWeightedLoadMonitor(nil)
	scheduler, err := engine.NewConsolidationScheduler(schedCfg, consolidationEngine, loadMonitor, logger)
	if err != nil {
		return nil, err
	}

	healthMonitor := engine.NewHealthMonitor(store, scheduler, config.QuotaBytes())

	synthesizer := reasoning.NewSynthesizer()
	conflicts := reasoning.NewConflictResolutionEngine()
	coordinator := reasoning.NewStreamCoordinator(synthesizer, conflicts)

	sessions := session.NewStore(time.Duration(config.SessionTTL())*time.Minute, logger)
	hub := session.NewHub(logger)

	thinkHandler := handlers.NewThinkHandler(llmClient, coordinator, sessions, time.Duration(config.LLMTimeoutMs())*time.Millisecond)
	reasoningHandler := handlers.NewReasoningHandler(llmClient, coordinator, sessions, hub, time.Duration(config.LLMTimeoutMs())*time.Millisecond)
	archiveHandler := handlers.NewArchiveHandler(archiveMgr)

	r := chi.NewRouter()

	app := &App{
		Router:        r,
		Store:         store,
		Decay:         decayEngine,
		Pruning:       pruningSvc,
		Archive:       archiveMgr,
		Consolidation: consolidationEngine,
		Health:        healthMonitor,
		Scheduler:     scheduler,
		Sessions:      sessions,
		Hub:           hub,
		LLM:           llmClient,
		Embedding:     embeddingClient,
		startTime:     time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(pool))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/think", thinkHandler.Think)
		r.Get("/think/status/{sessionId}", thinkHandler.Status)

		r.Post("/reasoning/parallel", reasoningHandler.Parallel)
		r.Get("/reasoning/parallel/{sessionId}/stream", reasoningHandler.Stream)
		r.Get("/reasoning/live/{streamId}", reasoningHandler.Live)
		r.Get("/reasoning/chain/{sessionId}", reasoningHandler.Chain)

		r.Post("/memory/archive", archiveHandler.Archive)
		r.Get("/memory/archive/search", archiveHandler.Search)
		r.Post("/memory/archive/restore", archiveHandler.Restore)
		r.Get("/memory/archive/stats", archiveHandler.Stats)
	})

	return app, nil
}

// Start launches every background component: the session TTL sweep and the
// consolidation scheduler's cron loop.
func (app *App) Start(ctx context.Context) {
	app.Sessions.Start()
	app.Scheduler.Start(ctx)
}

// Stop halts every background component, in reverse start order.
func (app *App) Stop() {
	app.Scheduler.Stop()
	app.Sessions.Stop()
}

func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
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

func (app *App) metricsHandler() http.HandlerFunc {
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
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure the postgres store satisfies every domain boundary it must.
var (
	_ domain.MemoryStore    = (*postgres.Store)(nil)
	_ domain.EmbeddingStore = (*postgres.Store)(nil)
	_ domain.LinkStore      = (*postgres.Store)(nil)
)
