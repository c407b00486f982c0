package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/domain"
)

const consolidationSystemPrompt = "You are a memory consolidation assistant. Summarize the following related memories into a single, coherent semantic statement that preserves their shared meaning."

// ConsolidationEngine compresses clusters of related episodic memories into
// a single semantic summary memory, grounded on the teacher's
// internal/service/consolidation.go worker loop and clustering helpers,
// generalized from "episodes/beliefs/procedures/schemas" to the single
// Memory entity and restated cluster/consolidation-record shapes.
type ConsolidationEngine struct {
	memories   domain.MemoryStore
	embeddings domain.EmbeddingStore
	llm        domain.LLMProvider
	logger     *zap.Logger
}

func NewConsolidationEngine(memories domain.MemoryStore, embeddings domain.EmbeddingStore, llm domain.LLMProvider, logger *zap.Logger) *ConsolidationEngine {
	return &ConsolidationEngine{memories: memories, embeddings: embeddings, llm: llm, logger: logger}
}

// IdentifyClusters loads unconsolidated episodic memories for a user and
// greedily clusters them by cosine similarity.
func (c *ConsolidationEngine) IdentifyClusters(ctx context.Context, userID uuid.UUID, cfg domain.ConsolidationConfig) ([]domain.MemoryCluster, error) {
	candidates, err := c.memories.ListEpisodicUnconsolidated(ctx, userID, cfg.BatchSize)
	if err != nil {
		c.logger.Warn("falling back to empty cluster set after store error", zap.Error(err))
		return []domain.MemoryCluster{}, nil
	}
	if len(candidates) == 0 {
		return []domain.MemoryCluster{}, nil
	}

	members := make([]memberVec, 0, len(candidates))
	contentByID := make(map[uuid.UUID]string, len(candidates))
	for _, m := range candidates {
		emb, err := c.embeddings.Get(ctx, m.ID, domain.SectorSemantic)
		if err != nil || emb == nil {
			continue
		}
		members = append(members, memberVec{id: m.ID, vector: emb.Vector})
		contentByID[m.ID] = m.Content
	}

	type cluster struct {
		ids      []uuid.UUID
		centroid []float64
	}
	var clusters []cluster
	assigned := make(map[uuid.UUID]bool, len(members))

	for _, mv := range members {
		if assigned[mv.id] {
			continue
		}
		cl := cluster{ids: []uuid.UUID{mv.id}, centroid: toFloat64(mv.vector)}
		assigned[mv.id] = true
		for _, other := range members {
			if assigned[other.id] {
				continue
			}
			if cosineSimilarity(cl.centroid, toFloat64(other.vector)) >= cfg.SimilarityThreshold {
				cl.ids = append(cl.ids, other.id)
				assigned[other.id] = true
				cl.centroid = recomputeCentroid(cl.centroid, toFloat64(other.vector), len(cl.ids))
			}
		}
		clusters = append(clusters, cl)
	}

	result := make([]domain.MemoryCluster, 0, len(clusters))
	for _, cl := range clusters {
		if len(cl.ids) < cfg.MinClusterSize {
			continue
		}
		centroidID, avgSim := pickCentroidMember(cl.ids, cl.centroid, members)
		topic := topicFromContent(contentByID[centroidID])
		result = append(result, domain.MemoryCluster{
			MemberIDs:     cl.ids,
			CentroidID:    centroidID,
			Centroid:      fromFloat64(cl.centroid),
			AvgSimilarity: avgSim,
			Topic:         topic,
		})
	}
	return result, nil
}

// memberVec pairs a memory id with its semantic embedding during clustering.
type memberVec struct {
	id     uuid.UUID
	vector []float32
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func fromFloat64(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// recomputeCentroid folds a newly-absorbed vector into the running mean and
// renormalizes, matching "the centroid is the arithmetic mean of member
// vectors, re-normalised when updated".
func recomputeCentroid(centroid []float64, next []float64, newCount int) []float64 {
	out := make([]float64, len(centroid))
	oldCount := float64(newCount - 1)
	for i := range out {
		out[i] = (centroid[i]*oldCount + next[i]) / float64(newCount)
	}
	return normalize(out)
}

func normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func pickCentroidMember(ids []uuid.UUID, centroid []float64, members []memberVec) (uuid.UUID, float64) {
	best := ids[0]
	bestSim := -1.0
	var total float64
	var pairs int
	for _, m := range members {
		inCluster := false
		for _, id := range ids {
			if id == m.id {
				inCluster = true
				break
			}
		}
		if !inCluster {
			continue
		}
		sim := cosineSimilarity(centroid, toFloat64(m.vector))
		if sim > bestSim {
			bestSim = sim
			best = m.id
		}
		total += sim
		pairs++
	}
	avg := 0.0
	if pairs > 0 {
		avg = total / float64(pairs)
	}
	return best, avg
}

func topicFromContent(content string) string {
	const max = 50
	r := []rune(content)
	if len(r) <= max {
		return content
	}
	return strings.TrimSpace(string(r[:max])) + "..."
}

// GenerateSummary asks the LLM to summarize a cluster's member contents.
func (c *ConsolidationEngine) GenerateSummary(ctx context.Context, cluster domain.MemoryCluster) (string, error) {
	if len(cluster.MemberIDs) < domain.MinClusterSizeForSummary {
		return "", domain.ErrClusterTooSmall
	}
	if c.llm == nil {
		return "", domain.ErrLLMNotConfigured
	}

	var contents []string
	for _, id := range cluster.MemberIDs {
		m, err := c.memories.GetByID(ctx, id)
		if err != nil {
			continue
		}
		contents = append(contents, m.Content)
	}
	if len(contents) == 0 {
		return "", domain.ErrNoMemoryContents
	}

	prompt := fmt.Sprintf("Topic: %s\n\nMemories:\n%s", cluster.Topic, strings.Join(contents, "\n- "))
	summary, err := c.llm.Generate(ctx, prompt, consolidationSystemPrompt)
	if err != nil {
		return "", domain.WrapError(domain.CodeLLMGenerationError, "LLM failed to generate summary", err)
	}
	return strings.TrimSpace(summary), nil
}

// Consolidate commits a cluster's summary, links, strength reductions, and
// ConsolidatedInto updates as a single transactional unit.
func (c *ConsolidationEngine) Consolidate(ctx context.Context, cluster domain.MemoryCluster, cfg domain.ConsolidationConfig) (*domain.ConsolidationRecord, error) {
	if len(cluster.MemberIDs) < domain.MinClusterSizeForSummary {
		return nil, domain.ErrClusterTooSmall
	}

	summaryText, err := c.GenerateSummary(ctx, cluster)
	if err != nil {
		return nil, err
	}

	var userID uuid.UUID
	var sessionID *uuid.UUID
	ordered := append([]uuid.UUID{cluster.CentroidID}, cluster.MemberIDs...)
	found := false
	for _, id := range ordered {
		m, err := c.memories.GetByID(ctx, id)
		if err != nil {
			continue
		}
		userID = m.UserID
		sessionID = m.SessionID
		found = true
		break
	}
	if !found {
		return nil, domain.ErrCentroidNotFound
	}

	now := time.Now()
	summary := domain.Memory{
		ID:              uuid.New(),
		UserID:          userID,
		SessionID:       sessionID,
		Content:         summaryText,
		PrimarySector:   domain.SectorSemantic,
		Salience:        1.0,
		Strength:        1.0,
		CreatedAt:       now,
		LastAccessedAt:  now,
		EmbeddingStatus: domain.EmbeddingPending,
	}

	record := domain.ConsolidationRecord{
		SummaryID: summary.ID,
		SourceIDs: cluster.MemberIDs,
		CreatedAt: now,
		Topic:     cluster.Topic,
	}

	if err := c.memories.Consolidate(ctx, summary, cluster, cfg.StrengthReductionFactor, record); err != nil {
		return nil, domain.WrapError(domain.CodeConsolidationError, "failed to commit consolidation", err)
	}
	return &record, nil
}

// RunResult is returned by RunConsolidation.
type RunResult struct {
	ClustersIdentified  int
	ClustersConsolidated int
	Errors              []error
}

// RunConsolidation identifies clusters and consolidates each in sequence.
// A failed cluster does not abort the run; its error is collected and the
// remainder proceeds.
func (c *ConsolidationEngine) RunConsolidation(ctx context.Context, userID uuid.UUID, cfg domain.ConsolidationConfig) (RunResult, error) {
	clusters, err := c.IdentifyClusters(ctx, userID, cfg)
	if err != nil {
		return RunResult{}, domain.WrapError(domain.CodeClusteringError, "failed to identify clusters", err)
	}
	result := RunResult{ClustersIdentified: len(clusters)}
	for _, cluster := range clusters {
		if _, err := c.Consolidate(ctx, cluster, cfg); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.ClustersConsolidated++
	}
	return result, nil
}
