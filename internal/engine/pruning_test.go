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

func TestListCandidates_RejectsInvalidCriteria(t *testing.T) {
	store := newMockMemoryStore()
	p := NewPruningService(store, zap.NewNop())
	_, err := p.ListCandidates(context.Background(), uuid.New(), domain.PruneCriteria{MinStrength: 2})
	assert.Error(t, err)
}

func TestListCandidates_OrdersByReasonThenStrengthThenAge(t *testing.T) {
	store := newMockMemoryStore()
	p := NewPruningService(store, zap.NewNop())
	userID := uuid.New()

	now := time.Now()
	store.put(&domain.Memory{UserID: userID, Strength: 0.05, CreatedAt: now.Add(-time.Hour)})
	store.put(&domain.Memory{UserID: userID, Strength: 0.02, CreatedAt: now})

	candidates, err := p.ListCandidates(context.Background(), userID, domain.PruneCriteria{MinStrength: 0.1})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.LessOrEqual(t, candidates[0].Strength, candidates[1].Strength, "lowest strength should sort first among same-reason candidates")
}

func TestPrune_EmptyIDsIsNoop(t *testing.T) {
	store := newMockMemoryStore()
	p := NewPruningService(store, zap.NewNop())
	result, err := p.Prune(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DeletedCount)
}

func TestPruneAllCandidates_DeletesEverythingBelowThreshold(t *testing.T) {
	store := newMockMemoryStore()
	p := NewPruningService(store, zap.NewNop())
	userID := uuid.New()

	weak := &domain.Memory{UserID: userID, Strength: 0.01, Content: "stale note"}
	store.put(weak)
	strong := &domain.Memory{UserID: userID, Strength: 0.9, Content: "still relevant"}
	store.put(strong)

	result, err := p.PruneAllCandidates(context.Background(), userID, domain.PruneCriteria{MinStrength: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedCount)

	_, err = store.GetByID(context.Background(), weak.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetByID(context.Background(), strong.ID)
	assert.NoError(t, err)
}

func TestPreviewPruning_SumsContentBytesWithoutMutating(t *testing.T) {
	store := newMockMemoryStore()
	p := NewPruningService(store, zap.NewNop())
	m := &domain.Memory{UserID: uuid.New(), Content: "twelve bytes!"}
	store.put(m)

	result, err := p.PreviewPruning(context.Background(), m.UserID, []uuid.UUID{m.ID})
	require.NoError(t, err)
	assert.Greater(t, result.FreedBytes, int64(0))

	_, err = store.GetByID(context.Background(), m.ID)
	assert.NoError(t, err, "PreviewPruning must not actually delete anything")
}
