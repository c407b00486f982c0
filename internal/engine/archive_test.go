package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// archivingMockStore layers real archive/restore bookkeeping on top of
// mockMemoryStore, since mockMemoryStore's own archive methods are stubs
// shared by decay/pruning tests that never exercise them.
type archivingMockStore struct {
	*mockMemoryStore
	archived map[uuid.UUID]domain.ArchivedMemory
}

func newArchivingMockStore() *archivingMockStore {
	return &archivingMockStore{mockMemoryStore: newMockMemoryStore(), archived: make(map[uuid.UUID]domain.ArchivedMemory)}
}

func (s *archivingMockStore) ArchiveMemories(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, cfg domain.ArchiveConfig) (domain.ArchiveResult, error) {
	var freed int64
	for _, id := range ids {
		mem, ok := s.memories[id]
		if !ok {
			continue
		}
		s.archived[id] = domain.ArchivedMemory{
			ID: mem.ID, UserID: mem.UserID, Content: mem.Content,
			PrimarySector: mem.PrimarySector, Salience: mem.Salience, Strength: mem.Strength,
			AccessCount: mem.AccessCount, OriginalCreatedAt: mem.CreatedAt, ArchivedAt: time.Now(),
		}
		freed += mem.ContentBytes()
		delete(s.memories, id)
	}
	return domain.ArchiveResult{ArchivedCount: len(ids), FreedBytes: freed, Timestamp: time.Now()}, nil
}

func (s *archivingMockStore) Restore(ctx context.Context, userID uuid.UUID, memoryID uuid.UUID) (domain.RestoreResult, error) {
	am, ok := s.archived[memoryID]
	if !ok {
		return domain.RestoreResult{}, domain.ErrNotFound
	}
	s.put(&domain.Memory{
		ID: am.ID, UserID: am.UserID, Content: am.Content, PrimarySector: am.PrimarySector,
		Salience: am.Salience, Strength: am.Strength, AccessCount: am.AccessCount,
		CreatedAt: am.OriginalCreatedAt, LastAccessedAt: time.Now(),
	})
	delete(s.archived, memoryID)
	return domain.RestoreResult{RestoredCount: 1, MemoryID: memoryID, Timestamp: time.Now()}, nil
}

func (s *archivingMockStore) GetArchived(ctx context.Context, userID uuid.UUID, memoryID uuid.UUID) (*domain.ArchivedMemory, error) {
	am, ok := s.archived[memoryID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &am, nil
}

func (s *archivingMockStore) GetArchiveStats(ctx context.Context, userID uuid.UUID) (domain.ArchiveStats, error) {
	var bytes int64
	count := 0
	for _, am := range s.archived {
		if am.UserID != userID {
			continue
		}
		count++
		bytes += int64(len(am.Content))
	}
	return domain.ArchiveStats{Count: count, BytesUsed: bytes}, nil
}

func TestArchiveMemories_MovesListedIDsOutOfActiveStore(t *testing.T) {
	store := newArchivingMockStore()
	a := NewArchiveManager(store, zap.NewNop())
	userID := uuid.New()
	m := &domain.Memory{UserID: userID, Content: "old context"}
	store.put(m)

	result, err := a.ArchiveMemories(context.Background(), userID, []uuid.UUID{m.ID}, domain.ArchiveConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ArchivedCount)

	_, err = store.GetByID(context.Background(), m.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArchiveOld_OnlyArchivesPastThreshold(t *testing.T) {
	store := newArchivingMockStore()
	a := NewArchiveManager(store, zap.NewNop())
	userID := uuid.New()

	old := &domain.Memory{UserID: userID, Content: "ancient", CreatedAt: time.Now().AddDate(0, 0, -400)}
	recent := &domain.Memory{UserID: userID, Content: "recent", CreatedAt: time.Now()}
	store.put(old)
	store.put(recent)

	result, err := a.ArchiveOld(context.Background(), userID, domain.ArchiveConfig{AgeThresholdDays: 365})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ArchivedCount)

	_, err = store.GetByID(context.Background(), old.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetByID(context.Background(), recent.ID)
	assert.NoError(t, err)
}

func TestRetrieveOrRestore_RestoresArchivedMemoryTransparently(t *testing.T) {
	store := newArchivingMockStore()
	a := NewArchiveManager(store, zap.NewNop())
	userID := uuid.New()
	m := &domain.Memory{UserID: userID, Content: "resurfaced"}
	store.put(m)
	_, err := a.ArchiveMemories(context.Background(), userID, []uuid.UUID{m.ID}, domain.ArchiveConfig{})
	require.NoError(t, err)

	got, err := a.RetrieveOrRestore(context.Background(), userID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "resurfaced", got.Content)

	_, err = store.GetArchived(context.Background(), userID, m.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "a restored memory should no longer be in the archive")
}

func TestRetrieveOrRestore_UnknownMemoryIsNotFound(t *testing.T) {
	store := newArchivingMockStore()
	a := NewArchiveManager(store, zap.NewNop())
	_, err := a.RetrieveOrRestore(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetArchiveStats_CountsOnlyThatUsersArchive(t *testing.T) {
	store := newArchivingMockStore()
	a := NewArchiveManager(store, zap.NewNop())
	userA, userB := uuid.New(), uuid.New()
	mA := &domain.Memory{UserID: userA, Content: "aaaa"}
	mB := &domain.Memory{UserID: userB, Content: "bbbbbbbb"}
	store.put(mA)
	store.put(mB)
	_, err := a.ArchiveMemories(context.Background(), userA, []uuid.UUID{mA.ID}, domain.ArchiveConfig{})
	require.NoError(t, err)
	_, err = a.ArchiveMemories(context.Background(), userB, []uuid.UUID{mB.ID}, domain.ArchiveConfig{})
	require.NoError(t, err)

	stats, err := a.GetArchiveStats(context.Background(), userA)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.EqualValues(t, 4, stats.BytesUsed)
}
