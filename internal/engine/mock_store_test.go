package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// mockMemoryStore is a minimal in-memory domain.MemoryStore for exercising
// DecayEngine/PruningService/ArchiveManager without a database, grounded on
// the teacher's service-package mock-store test style.
type mockMemoryStore struct {
	memories map[uuid.UUID]*domain.Memory
	history  []domain.ReinforcementHistoryEntry
}

func newMockMemoryStore() *mockMemoryStore {
	return &mockMemoryStore{memories: make(map[uuid.UUID]*domain.Memory)}
}

func (m *mockMemoryStore) put(mem *domain.Memory) {
	if mem.ID == uuid.Nil {
		mem.ID = uuid.New()
	}
	m.memories[mem.ID] = mem
}

func (m *mockMemoryStore) Create(ctx context.Context, mem *domain.Memory) error {
	m.put(mem)
	return nil
}

func (m *mockMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	mem, ok := m.memories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *mockMemoryStore) Update(ctx context.Context, mem *domain.Memory) error {
	if _, ok := m.memories[mem.ID]; !ok {
		return domain.ErrNotFound
	}
	m.memories[mem.ID] = mem
	return nil
}

func (m *mockMemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.memories, id)
	return nil
}

func (m *mockMemoryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Memory, error) {
	var out []domain.Memory
	for _, mem := range m.memories {
		if mem.UserID == userID {
			out = append(out, *mem)
		}
	}
	return out, nil
}

func (m *mockMemoryStore) ListBySector(ctx context.Context, userID uuid.UUID, sector domain.Sector, limit int) ([]domain.Memory, error) {
	return nil, nil
}

func (m *mockMemoryStore) ListEpisodicUnconsolidated(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Memory, error) {
	return nil, nil
}

func (m *mockMemoryStore) CountBySector(ctx context.Context, userID uuid.UUID) (map[domain.Sector]int, error) {
	return nil, nil
}

func (m *mockMemoryStore) CountByAgeBuckets(ctx context.Context, userID uuid.UUID, now time.Time) (int, int, int, int, error) {
	return 0, 0, 0, 0, nil
}

func (m *mockMemoryStore) ListForgettingCandidates(ctx context.Context, userID uuid.UUID, criteria domain.PruneCriteria, now time.Time) ([]domain.PruneCandidate, error) {
	var out []domain.PruneCandidate
	for _, mem := range m.memories {
		if mem.UserID != userID {
			continue
		}
		if mem.Strength < criteria.MinStrength {
			out = append(out, domain.PruneCandidate{MemoryID: mem.ID, Reason: domain.ReasonLowStrength, Strength: mem.Strength, CreatedAt: mem.CreatedAt})
		}
	}
	return out, nil
}

func (m *mockMemoryStore) SizeOf(ctx context.Context, ids []uuid.UUID) (int64, int64, error) {
	var bytes int64
	for _, id := range ids {
		if mem, ok := m.memories[id]; ok {
			bytes += mem.ContentBytes()
		}
	}
	return bytes, 0, nil
}

func (m *mockMemoryStore) CountForgetting(ctx context.Context, userID uuid.UUID, now time.Time) (int, int, int, int, error) {
	return 0, 0, 0, 0, nil
}

func (m *mockMemoryStore) Prune(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (domain.PruneResult, error) {
	var freed int64
	for _, id := range ids {
		if mem, ok := m.memories[id]; ok {
			freed += mem.ContentBytes()
			delete(m.memories, id)
		}
	}
	return domain.PruneResult{DeletedCount: len(ids), FreedBytes: freed}, nil
}

func (m *mockMemoryStore) UpdateReinforcement(ctx context.Context, id uuid.UUID, strength float64, accessCount int, lastAccessedAt time.Time) error {
	mem, ok := m.memories[id]
	if !ok {
		return domain.ErrNotFound
	}
	mem.Strength = strength
	mem.AccessCount = accessCount
	mem.LastAccessedAt = lastAccessedAt
	return nil
}

func (m *mockMemoryStore) AppendReinforcementHistory(ctx context.Context, entry domain.ReinforcementHistoryEntry) error {
	m.history = append(m.history, entry)
	return nil
}

func (m *mockMemoryStore) Consolidate(ctx context.Context, summary domain.Memory, cluster domain.MemoryCluster, reductionFactor float64, record domain.ConsolidationRecord) error {
	return nil
}

func (m *mockMemoryStore) ArchiveMemories(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, cfg domain.ArchiveConfig) (domain.ArchiveResult, error) {
	return domain.ArchiveResult{}, nil
}

func (m *mockMemoryStore) Restore(ctx context.Context, userID uuid.UUID, memoryID uuid.UUID) (domain.RestoreResult, error) {
	return domain.RestoreResult{}, nil
}

func (m *mockMemoryStore) GetArchiveStats(ctx context.Context, userID uuid.UUID) (domain.ArchiveStats, error) {
	return domain.ArchiveStats{}, nil
}

func (m *mockMemoryStore) SearchArchive(ctx context.Context, userID uuid.UUID, query string) ([]domain.ArchivedMemory, error) {
	return nil, nil
}

func (m *mockMemoryStore) GetArchived(ctx context.Context, userID uuid.UUID, memoryID uuid.UUID) (*domain.ArchivedMemory, error) {
	return nil, domain.ErrNotFound
}

func (m *mockMemoryStore) ListDistinctUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, mem := range m.memories {
		if !seen[mem.UserID] {
			seen[mem.UserID] = true
			out = append(out, mem.UserID)
		}
	}
	return out, nil
}
