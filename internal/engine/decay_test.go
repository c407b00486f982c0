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
	"github.com/Harshitk-cp/engram/internal/sectorconfig"
)

func newTestDecayEngine(t *testing.T) (*DecayEngine, *mockMemoryStore) {
	t.Helper()
	cfg, err := sectorconfig.New(domain.DefaultDecayConfig())
	require.NoError(t, err)
	store := newMockMemoryStore()
	return NewDecayEngine(store, cfg, zap.NewNop()), store
}

func TestDecayedStrength_DecaysTowardFloorOverTime(t *testing.T) {
	engine, _ := newTestDecayEngine(t)
	m := domain.Memory{
		Strength:       1.0,
		PrimarySector:  domain.SectorEpisodic,
		LastAccessedAt: time.Now().Add(-30 * 24 * time.Hour),
	}

	decayed, err := engine.DecayedStrength(m, time.Now())
	require.NoError(t, err)
	assert.Less(t, decayed, m.Strength, "strength should decay after 30 days untouched")
	assert.GreaterOrEqual(t, decayed, domain.DefaultDecayConfig().MinimumStrength)
}

func TestDecayedStrength_ClampsOnFutureLastAccessed(t *testing.T) {
	engine, _ := newTestDecayEngine(t)
	m := domain.Memory{
		Strength:       0.7,
		PrimarySector:  domain.SectorEpisodic,
		LastAccessedAt: time.Now().Add(time.Hour),
	}

	decayed, err := engine.DecayedStrength(m, time.Now())
	require.NoError(t, err)
	assert.Equal(t, m.Strength, decayed, "a last-accessed time in the future should not project negative age")
}

func TestReinforceByType_IncreasesStrengthAndRecordsHistory(t *testing.T) {
	engine, store := newTestDecayEngine(t)
	m := &domain.Memory{
		UserID:         uuid.New(),
		Strength:       0.3,
		PrimarySector:  domain.SectorEpisodic,
		LastAccessedAt: time.Now(),
	}
	store.put(m)

	boost := 0.2
	newStrength, err := engine.ReinforceByType(context.Background(), m.ID, domain.ReinforcementExplicit, &boost)
	require.NoError(t, err)
	assert.Greater(t, newStrength, 0.3)
	require.Len(t, store.history, 1)
	assert.Equal(t, domain.ReinforcementExplicit, store.history[0].Type)
}

func TestReinforceByType_ClipsAtOne(t *testing.T) {
	engine, store := newTestDecayEngine(t)
	m := &domain.Memory{UserID: uuid.New(), Strength: 0.95, PrimarySector: domain.SectorEpisodic, LastAccessedAt: time.Now()}
	store.put(m)

	boost := 0.5
	newStrength, err := engine.ReinforceByType(context.Background(), m.ID, domain.ReinforcementExplicit, &boost)
	require.NoError(t, err)
	assert.LessOrEqual(t, newStrength, 1.0)
}

func TestRunMaintenance_DecaysEveryMemoryForUser(t *testing.T) {
	engine, store := newTestDecayEngine(t)
	userID := uuid.New()
	store.put(&domain.Memory{UserID: userID, Strength: 1.0, PrimarySector: domain.SectorEpisodic, LastAccessedAt: time.Now().Add(-60 * 24 * time.Hour)})
	store.put(&domain.Memory{UserID: userID, Strength: 1.0, PrimarySector: domain.SectorEpisodic, LastAccessedAt: time.Now().Add(-10 * 24 * time.Hour)})

	result, err := engine.RunMaintenance(context.Background(), userID, MaintenanceOptions{PruneCriteria: domain.DefaultPruneCriteria()})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Empty(t, result.Errors)
}
