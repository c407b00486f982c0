package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/engram/internal/domain"
)

func TestGetHealth_AggregatesStorageUsage(t *testing.T) {
	store := newMockMemoryStore()
	userID := uuid.New()
	store.put(&domain.Memory{UserID: userID, Content: "0123456789"}) // 10 bytes

	monitor := NewHealthMonitor(store, nil, 100)
	health, err := monitor.GetHealth(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), health.Storage.BytesUsed)
	assert.Equal(t, int64(100), health.Storage.QuotaBytes)
	assert.Equal(t, 10.0, health.Storage.UsagePercent)
	assert.False(t, health.ActiveConsolidation.Running, "no scheduler configured means no active consolidation")
}

func TestGetHealth_ClampsUsagePercentAt100(t *testing.T) {
	store := newMockMemoryStore()
	userID := uuid.New()
	store.put(&domain.Memory{UserID: userID, Content: "this content is much larger than the tiny quota"})

	monitor := NewHealthMonitor(store, nil, 5)
	health, err := monitor.GetHealth(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, health.Storage.UsagePercent)
}

func TestNewHealthMonitor_FallsBackToDefaultQuotaWhenNonPositive(t *testing.T) {
	store := newMockMemoryStore()
	monitor := NewHealthMonitor(store, nil, 0)
	assert.Equal(t, defaultQuotaBytes, monitor.quotaBytes)
}

func TestBuildRecommendations_FlagsHighStorageAndBackedUpEpisodicMemories(t *testing.T) {
	h := Health{
		Storage:              StorageMetrics{UsagePercent: 95},
		ForgettingCandidates: ForgettingCandidates{Total: 600},
		CountsByAge:          AgeBuckets{Older: 10},
		CountsBySector:       map[domain.Sector]int{domain.SectorEpisodic: 250},
	}
	recs := buildRecommendations(h)

	categories := make(map[string]string)
	for _, r := range recs {
		categories[r.Category] = r.Priority
	}
	assert.Equal(t, "high", categories["optimization"])
	assert.Equal(t, "high", categories["pruning"])
	assert.Equal(t, "medium", categories["consolidation"])
	_, archived := categories["archiving"]
	assert.False(t, archived, "only 10 old memories should not trigger an archiving recommendation")
}

func TestBuildRecommendations_EmptyHealthProducesNoRecommendations(t *testing.T) {
	assert.Empty(t, buildRecommendations(Health{}))
}
