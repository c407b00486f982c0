package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// consolidatingMockStore layers real ListEpisodicUnconsolidated/Consolidate
// bookkeeping on top of mockMemoryStore's stubs, for exercising
// ConsolidationEngine without a database.
type consolidatingMockStore struct {
	*mockMemoryStore
	consolidated []domain.ConsolidationRecord
}

func newConsolidatingMockStore() *consolidatingMockStore {
	return &consolidatingMockStore{mockMemoryStore: newMockMemoryStore()}
}

func (s *consolidatingMockStore) ListEpisodicUnconsolidated(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Memory, error) {
	var out []domain.Memory
	for _, m := range s.memories {
		if m.UserID == userID && m.PrimarySector == domain.SectorEpisodic && !m.Consolidated() {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *consolidatingMockStore) Consolidate(ctx context.Context, summary domain.Memory, cluster domain.MemoryCluster, reductionFactor float64, record domain.ConsolidationRecord) error {
	s.put(&summary)
	for _, id := range cluster.MemberIDs {
		if mem, ok := s.memories[id]; ok {
			mem.Strength *= reductionFactor
			mem.ConsolidatedInto = &summary.ID
		}
	}
	s.consolidated = append(s.consolidated, record)
	return nil
}

type mockEmbeddingStore struct {
	vectors map[uuid.UUID][]float32
}

func (s *mockEmbeddingStore) Upsert(ctx context.Context, e domain.Embedding) error {
	if s.vectors == nil {
		s.vectors = make(map[uuid.UUID][]float32)
	}
	s.vectors[e.MemoryID] = e.Vector
	return nil
}

func (s *mockEmbeddingStore) Get(ctx context.Context, memoryID uuid.UUID, sector domain.Sector) (*domain.Embedding, error) {
	v, ok := s.vectors[memoryID]
	if !ok {
		return nil, nil
	}
	return &domain.Embedding{MemoryID: memoryID, Sector: sector, Vector: v, Dimension: len(v)}, nil
}

func (s *mockEmbeddingStore) FindSimilar(ctx context.Context, userID uuid.UUID, vector []float32, sector domain.Sector, limit int) ([]uuid.UUID, []float64, error) {
	return nil, nil, nil
}

type stubLLM struct {
	response string
}

func (s stubLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	return s.response, nil
}

func TestIdentifyClusters_GroupsSimilarEmbeddingsTogether(t *testing.T) {
	store := newConsolidatingMockStore()
	embeddings := &mockEmbeddingStore{vectors: make(map[uuid.UUID][]float32)}
	c := NewConsolidationEngine(store, embeddings, nil, zap.NewNop())
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		m := &domain.Memory{UserID: userID, PrimarySector: domain.SectorEpisodic, Content: "lunch with alex"}
		store.put(m)
		require.NoError(t, embeddings.Upsert(context.Background(), domain.Embedding{MemoryID: m.ID, Vector: []float32{1, 0, 0}}))
	}
	odd := &domain.Memory{UserID: userID, PrimarySector: domain.SectorEpisodic, Content: "unrelated topic"}
	store.put(odd)
	require.NoError(t, embeddings.Upsert(context.Background(), domain.Embedding{MemoryID: odd.ID, Vector: []float32{0, 1, 0}}))

	cfg := domain.DefaultConsolidationConfig()
	clusters, err := c.IdentifyClusters(context.Background(), userID, cfg)
	require.NoError(t, err)
	require.Len(t, clusters, 1, "only the five identical-direction vectors should form a cluster at the default threshold")
	assert.Len(t, clusters[0].MemberIDs, 5)
}

func TestGenerateSummary_RejectsClusterBelowMinimumSize(t *testing.T) {
	store := newConsolidatingMockStore()
	c := NewConsolidationEngine(store, &mockEmbeddingStore{}, stubLLM{response: "summary"}, zap.NewNop())
	_, err := c.GenerateSummary(context.Background(), domain.MemoryCluster{MemberIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, domain.ErrClusterTooSmall)
}

func TestGenerateSummary_RequiresLLM(t *testing.T) {
	store := newConsolidatingMockStore()
	c := NewConsolidationEngine(store, &mockEmbeddingStore{}, nil, zap.NewNop())
	ids := make([]uuid.UUID, domain.MinClusterSizeForSummary)
	for i := range ids {
		ids[i] = uuid.New()
	}
	_, err := c.GenerateSummary(context.Background(), domain.MemoryCluster{MemberIDs: ids})
	assert.ErrorIs(t, err, domain.ErrLLMNotConfigured)
}

func TestConsolidate_WritesSummaryAndReducesMemberStrength(t *testing.T) {
	store := newConsolidatingMockStore()
	c := NewConsolidationEngine(store, &mockEmbeddingStore{}, stubLLM{response: "consolidated summary"}, zap.NewNop())
	userID := uuid.New()

	var memberIDs []uuid.UUID
	for i := 0; i < domain.MinClusterSizeForSummary; i++ {
		m := &domain.Memory{UserID: userID, PrimarySector: domain.SectorEpisodic, Content: "episode", Strength: 1.0}
		store.put(m)
		memberIDs = append(memberIDs, m.ID)
	}
	cluster := domain.MemoryCluster{MemberIDs: memberIDs, CentroidID: memberIDs[0], Topic: "episodes"}

	record, err := c.Consolidate(context.Background(), cluster, domain.ConsolidationConfig{StrengthReductionFactor: 0.5})
	require.NoError(t, err)
	assert.Equal(t, memberIDs, record.SourceIDs)

	summary, err := store.GetByID(context.Background(), record.SummaryID)
	require.NoError(t, err)
	assert.Equal(t, "consolidated summary", summary.Content)
	assert.Equal(t, domain.SectorSemantic, summary.PrimarySector)

	member, err := store.GetByID(context.Background(), memberIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 0.5, member.Strength)
	require.NotNil(t, member.ConsolidatedInto)
	assert.Equal(t, record.SummaryID, *member.ConsolidatedInto)
}

func TestRunConsolidation_CollectsErrorsWithoutAbortingRemainder(t *testing.T) {
	store := newConsolidatingMockStore()
	embeddings := &mockEmbeddingStore{vectors: make(map[uuid.UUID][]float32)}
	c := NewConsolidationEngine(store, embeddings, nil, zap.NewNop())
	userID := uuid.New()

	for i := 0; i < domain.MinClusterSizeForSummary; i++ {
		m := &domain.Memory{UserID: userID, PrimarySector: domain.SectorEpisodic, Content: "episode"}
		store.put(m)
		require.NoError(t, embeddings.Upsert(context.Background(), domain.Embedding{MemoryID: m.ID, Vector: []float32{1, 0, 0}}))
	}

	result, err := c.RunConsolidation(context.Background(), userID, domain.DefaultConsolidationConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClustersIdentified)
	assert.Equal(t, 0, result.ClustersConsolidated, "no LLM configured, so GenerateSummary fails for the identified cluster")
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], domain.ErrLLMNotConfigured)
}
