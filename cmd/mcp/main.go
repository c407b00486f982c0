// engram-mcp exposes the memory lifecycle and reasoning server as an MCP
// stdio server: the memory CRUD/reinforcement surface spec.md's REST
// facade deliberately excludes (see §1's non-goals), plus think/
// parallel_reason mirrors of the two reasoning endpoints for MCP-only
// clients.
//
// Environment variables are the same ones cmd/server reads: DATABASE_URL,
// LLM/embedding provider selection, API keys.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/config"
	"github.com/Harshitk-cp/engram/internal/domain"
	"github.com/Harshitk-cp/engram/internal/embedding"
	"github.com/Harshitk-cp/engram/internal/engine"
	"github.com/Harshitk-cp/engram/internal/llm"
	"github.com/Harshitk-cp/engram/internal/reasoning"
	"github.com/Harshitk-cp/engram/internal/sectorconfig"
	"github.com/Harshitk-cp/engram/internal/store/postgres"
)

// server bundles the components the tool handlers close over: the store,
// the decay engine (remember/reinforce/maintenance), the embedding/LLM
// providers, and the reasoning coordinator (think/parallel_reason).
type server struct {
	store       *postgres.Store
	decay       *engine.DecayEngine
	pruning     *engine.PruningService
	embedding   domain.EmbeddingProvider
	llm         domain.LLMProvider
	coordinator *reasoning.StreamCoordinator
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		log.Fatalf("engram-mcp: config: %v", err)
	}
	dbURL := config.DatabaseURL()
	if dbURL == "" {
		log.Fatal("engram-mcp: DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("engram-mcp: connect: %v", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("engram-mcp: migrate: %v", err)
	}

	sectorCfg, err := sectorconfig.New(domain.DefaultDecayConfig())
	if err != nil {
		log.Fatalf("engram-mcp: sector config: %v", err)
	}

	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed", zap.Error(err))
	}
	llmClient, err := llm.NewClient(config.LLMProvider(), config.LLMAPIKey())
	if err != nil {
		logger.Warn("LLM client initialization failed", zap.Error(err))
	}

	srv := &server{
		store:     store,
		decay:     engine.NewDecayEngine(store, sectorCfg, logger),
		pruning:   engine.NewPruningService(store, logger),
		embedding: embeddingClient,
		llm:       llmClient,
		coordinator: reasoning.NewStreamCoordinator(
			reasoning.NewSynthesizer(),
			reasoning.NewConflictResolutionEngine(),
		),
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "engram-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "remember",
		Description: "Store a new memory and embed it; its sector defaults to episodic if not given explicitly.",
	}, srv.rememberHandler())

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "recall",
		Description: "Search a user's memories by semantic similarity within a sector.",
	}, srv.recallHandler())

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "reinforce",
		Description: "Boost a memory's strength, recording why (access, explicit, or importance).",
	}, srv.reinforceHandler())

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "run_maintenance",
		Description: "Run decay + optional pruning over a user's memories now, instead of waiting for the scheduler.",
	}, srv.runMaintenanceHandler())

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "think",
		Description: "Run a mode-selected reasoning pass over a problem and return a synthesized conclusion.",
	}, srv.thinkHandler())

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "parallel_reason",
		Description: "Run the requested reasoning streams concurrently and return each stream's result plus the synthesis.",
	}, srv.parallelReasonHandler())

	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("engram-mcp: %v", err)
	}
}

// --- remember ---

type rememberInput struct {
	UserID     string  `json:"user_id" jsonschema:"User the memory belongs to, as a UUID"`
	Content    string  `json:"content" jsonschema:"The text to remember"`
	SectorHint string  `json:"sector_hint,omitempty" jsonschema:"Optional sector override: episodic, semantic, procedural, emotional, reflective"`
	Salience   float64 `json:"salience,omitempty" jsonschema:"Optional salience score 0.0-1.0 (default 0.5)"`
}

func (s *server) rememberHandler() func(context.Context, *mcp.CallToolRequest, rememberInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input rememberInput) (*mcp.CallToolResult, any, error) {
		userID, err := uuid.Parse(input.UserID)
		if err != nil {
			return errResult("invalid user_id: %v", err), nil, nil
		}
		sector := domain.SectorEpisodic
		if input.SectorHint != "" {
			sector = domain.Sector(input.SectorHint)
			if !domain.ValidSector(sector) {
				return errResult("invalid sector_hint: %s", input.SectorHint), nil, nil
			}
		}
		salience := input.Salience
		if salience <= 0 {
			salience = 0.5
		}

		m := &domain.Memory{
			UserID:          userID,
			Content:         input.Content,
			PrimarySector:   sector,
			Salience:        salience,
			Strength:        1.0,
			EmbeddingStatus: domain.EmbeddingPending,
		}
		if err := s.store.Create(ctx, m); err != nil {
			return errResult("create: %v", err), nil, nil
		}

		if s.embedding != nil {
			vec, err := s.embedding.Embed(ctx, input.Content)
			if err == nil {
				if err := s.store.Upsert(ctx, domain.Embedding{MemoryID: m.ID, Sector: sector, Vector: vec, Dimension: len(vec)}); err == nil {
					m.EmbeddingStatus = domain.EmbeddingComplete
					_ = s.store.Update(ctx, m)
				}
			}
		}

		return textResult(map[string]any{"memory_id": m.ID, "sector": m.PrimarySector, "status": "stored"}), nil, nil
	}
}

// --- recall ---

type recallInput struct {
	UserID string `json:"user_id" jsonschema:"User the memory belongs to, as a UUID"`
	Query  string `json:"query" jsonschema:"Search text to find relevant memories"`
	Sector string `json:"sector,omitempty" jsonschema:"Sector to search within (default episodic)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results (default 5)"`
}

func (s *server) recallHandler() func(context.Context, *mcp.CallToolRequest, recallInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input recallInput) (*mcp.CallToolResult, any, error) {
		userID, err := uuid.Parse(input.UserID)
		if err != nil {
			return errResult("invalid user_id: %v", err), nil, nil
		}
		if s.embedding == nil {
			return errResult("no embedding provider configured"), nil, nil
		}
		sector := domain.SectorEpisodic
		if input.Sector != "" {
			sector = domain.Sector(input.Sector)
			if !domain.ValidSector(sector) {
				return errResult("invalid sector: %s", input.Sector), nil, nil
			}
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 5
		}

		vec, err := s.embedding.Embed(ctx, input.Query)
		if err != nil {
			return errResult("embed query: %v", err), nil, nil
		}
		ids, scores, err := s.store.FindSimilar(ctx, userID, vec, sector, limit)
		if err != nil {
			return errResult("search: %v", err), nil, nil
		}

		out := make([]map[string]any, 0, len(ids))
		for i, id := range ids {
			m, err := s.store.GetByID(ctx, id)
			if err != nil {
				continue
			}
			out = append(out, map[string]any{
				"id":         m.ID,
				"content":    m.Content,
				"sector":     m.PrimarySector,
				"strength":   m.Strength,
				"similarity": scores[i],
				"created_at": m.CreatedAt.Format(time.RFC3339),
			})
		}
		return textResult(out), nil, nil
	}
}

// --- reinforce ---

type reinforceInput struct {
	MemoryID string  `json:"memory_id" jsonschema:"Memory to reinforce, as a UUID"`
	Type     string  `json:"type,omitempty" jsonschema:"Reinforcement type: access, explicit, or importance (default explicit)"`
	Boost    float64 `json:"boost,omitempty" jsonschema:"Optional explicit boost override"`
}

func (s *server) reinforceHandler() func(context.Context, *mcp.CallToolRequest, reinforceInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input reinforceInput) (*mcp.CallToolResult, any, error) {
		memoryID, err := uuid.Parse(input.MemoryID)
		if err != nil {
			return errResult("invalid memory_id: %v", err), nil, nil
		}
		rt := domain.ReinforcementExplicit
		if input.Type != "" {
			rt = domain.ReinforcementType(input.Type)
			if !domain.ValidReinforcementType(rt) {
				return errResult("invalid type: %s", input.Type), nil, nil
			}
		}
		var boost *float64
		if input.Boost > 0 {
			boost = &input.Boost
		}

		newStrength, err := s.decay.ReinforceByType(ctx, memoryID, rt, boost)
		if err != nil {
			return errResult("reinforce: %v", err), nil, nil
		}
		return textResult(map[string]any{"memory_id": memoryID, "strength": newStrength}), nil, nil
	}
}

// --- run_maintenance ---

type runMaintenanceInput struct {
	UserID string `json:"user_id" jsonschema:"User to run maintenance for, as a UUID"`
	Prune  bool   `json:"prune,omitempty" jsonschema:"Also prune forgetting candidates after decaying"`
}

func (s *server) runMaintenanceHandler() func(context.Context, *mcp.CallToolRequest, runMaintenanceInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input runMaintenanceInput) (*mcp.CallToolResult, any, error) {
		userID, err := uuid.Parse(input.UserID)
		if err != nil {
			return errResult("invalid user_id: %v", err), nil, nil
		}

		opts := engine.MaintenanceOptions{Prune: input.Prune, PruneCriteria: domain.DefaultPruneCriteria()}
		if input.Prune {
			opts.Pruner = s.pruning
		}
		result, err := s.decay.RunMaintenance(ctx, userID, opts)
		if err != nil {
			return errResult("maintenance: %v", err), nil, nil
		}

		errs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			errs = append(errs, e.Error())
		}
		return textResult(map[string]any{
			"processed":       result.Processed,
			"pruned":          result.Pruned,
			"processing_time": result.ProcessingTime.String(),
			"errors":          errs,
		}), nil, nil
	}
}

// --- think ---

type thinkInput struct {
	Problem string `json:"problem" jsonschema:"The problem statement to reason about"`
	Mode    string `json:"mode" jsonschema:"One of intuitive, deliberative, balanced, creative, analytical"`
	Context string `json:"context,omitempty" jsonschema:"Optional supporting context"`
}

var thinkModeStreams = map[string][]domain.StreamType{
	"intuitive":    {domain.StreamCreative, domain.StreamSynthetic},
	"deliberative": {domain.StreamAnalytical, domain.StreamCritical},
	"balanced":     {domain.StreamAnalytical, domain.StreamCreative, domain.StreamCritical, domain.StreamSynthetic},
	"creative":     {domain.StreamCreative, domain.StreamSynthetic},
	"analytical":   {domain.StreamAnalytical, domain.StreamCritical},
}

func (s *server) buildStreams(types []domain.StreamType) []reasoning.Stream {
	streams := make([]reasoning.Stream, 0, len(types))
	for _, t := range types {
		switch t {
		case domain.StreamAnalytical:
			streams = append(streams, &reasoning.AnalyticalStream{LLM: s.llm})
		case domain.StreamCreative:
			streams = append(streams, &reasoning.CreativeStream{LLM: s.llm})
		case domain.StreamCritical:
			streams = append(streams, &reasoning.CriticalStream{LLM: s.llm})
		case domain.StreamSynthetic:
			streams = append(streams, &reasoning.SyntheticStream{LLM: s.llm})
		}
	}
	return streams
}

func (s *server) thinkHandler() func(context.Context, *mcp.CallToolRequest, thinkInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input thinkInput) (*mcp.CallToolResult, any, error) {
		streamTypes, ok := thinkModeStreams[input.Mode]
		if !ok {
			return errResult("invalid mode: %s", input.Mode), nil, nil
		}
		problem := domain.ReasoningProblem{ID: uuid.New(), Description: input.Problem, Context: input.Context}
		synthesized, _, err := s.coordinator.ExecuteStreams(ctx, problem, s.buildStreams(streamTypes), 30*time.Second, nil)
		if err != nil {
			return errResult("reasoning: %v", err), nil, nil
		}
		return textResult(map[string]any{
			"conclusion": synthesized.Conclusion,
			"confidence": synthesized.Confidence,
			"mode":       input.Mode,
		}), nil, nil
	}
}

// --- parallel_reason ---

type parallelReasonInput struct {
	Problem string   `json:"problem" jsonschema:"The problem statement to reason about"`
	Streams []string `json:"streams" jsonschema:"1-4 of: analytical, creative, critical, synthetic"`
	Context string   `json:"context,omitempty" jsonschema:"Optional supporting context"`
}

func (s *server) parallelReasonHandler() func(context.Context, *mcp.CallToolRequest, parallelReasonInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input parallelReasonInput) (*mcp.CallToolResult, any, error) {
		if len(input.Streams) == 0 || len(input.Streams) > 4 {
			return errResult("streams must list 1-4 stream types"), nil, nil
		}
		streamTypes := make([]domain.StreamType, 0, len(input.Streams))
		for _, st := range input.Streams {
			t := domain.StreamType(st)
			if !domain.ValidStreamType(t) {
				return errResult("unknown stream type: %s", st), nil, nil
			}
			streamTypes = append(streamTypes, t)
		}

		problem := domain.ReasoningProblem{ID: uuid.New(), Description: input.Problem, Context: input.Context}
		synthesized, metrics, err := s.coordinator.ExecuteStreams(ctx, problem, s.buildStreams(streamTypes), 30*time.Second, nil)
		if err != nil {
			return errResult("reasoning: %v", err), nil, nil
		}

		streamsOut := make([]map[string]any, 0, len(synthesized.StreamResults))
		for _, sr := range synthesized.StreamResults {
			streamsOut = append(streamsOut, map[string]any{
				"stream_type": sr.StreamType,
				"conclusion":  sr.Conclusion,
				"confidence":  sr.Confidence,
				"status":      sr.Status,
			})
		}
		return textResult(map[string]any{
			"streams":             streamsOut,
			"synthesis":           synthesized.Conclusion,
			"confidence":          synthesized.Confidence,
			"conflicts":           len(synthesized.Conflicts),
			"overhead_percentage": metrics.OverheadPercentage,
		}), nil, nil
	}
}

// --- helpers ---

func textResult(v any) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: jsonString(v)}}}
}

func errResult(format string, args ...any) *mcp.CallToolResult {
	return textResult(map[string]any{"error": fmt.Sprintf(format, args...)})
}

func jsonString(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal: %v"}`, err)
	}
	return string(data)
}
