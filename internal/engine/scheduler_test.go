package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/domain"
)

func TestParseCron_RejectsWrongFieldCount(t *testing.T) {
	_, err := ParseCron("0 3 * *")
	assert.Error(t, err)
}

func TestCronSchedule_MatchesWildcardsAndExactFields(t *testing.T) {
	schedule, err := ParseCron("0 3 * * *")
	require.NoError(t, err)

	at3am := time.Date(2026, 1, 5, 3, 0, 0, 0, time.UTC)
	atNoon := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	assert.True(t, schedule.Matches(at3am))
	assert.False(t, schedule.Matches(atNoon))
}

func TestCronSchedule_NextRunFindsTheFollowingMatch(t *testing.T) {
	schedule, err := ParseCron("0 3 * * *")
	require.NoError(t, err)

	after := time.Date(2026, 1, 5, 4, 0, 0, 0, time.UTC)
	next := schedule.NextRun(after)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 6, next.Day(), "3am already passed today, so the next run is tomorrow")
}

type fixedLoadMonitor struct {
	load float64
}

func (m fixedLoadMonitor) SystemLoad(ctx context.Context) (float64, error) {
	return m.load, nil
}

type failingLLM struct{}

func (failingLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	return "", errors.New("llm unavailable")
}

func newTestScheduler(t *testing.T, cfg SchedulerConfig, monitor domain.SystemLoadMonitor) (*ConsolidationScheduler, *consolidatingMockStore) {
	t.Helper()
	store := newConsolidatingMockStore()
	consolidation := NewConsolidationEngine(store, &mockEmbeddingStore{vectors: make(map[uuid.UUID][]float32)}, stubLLM{response: "summary"}, zap.NewNop())
	if cfg.CronExpression == "" {
		cfg = DefaultSchedulerConfig()
	}
	cfg.BaseRetryDelay = time.Millisecond
	sched, err := NewConsolidationScheduler(cfg, consolidation, monitor, zap.NewNop())
	require.NoError(t, err)
	return sched, store
}

func TestTriggerNow_SucceedsWithNoClustersToConsolidate(t *testing.T) {
	sched, _ := newTestScheduler(t, SchedulerConfig{}, nil)
	err := sched.TriggerNow(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, PhaseComplete, sched.GetProgress().Phase)
}

func TestTriggerNow_RejectsConcurrentRun(t *testing.T) {
	sched, _ := newTestScheduler(t, SchedulerConfig{}, nil)
	sched.running = true
	err := sched.TriggerNow(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrJobInProgress)
}

func TestSetBatchSize_RejectsNonPositive(t *testing.T) {
	sched, _ := newTestScheduler(t, SchedulerConfig{}, nil)
	assert.Error(t, sched.SetBatchSize(0))
	assert.NoError(t, sched.SetBatchSize(50))
}

func TestRunScheduledIfDue_SkipsWhenSystemLoadTooHigh(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.MaxSystemLoad = 0.5
	sched, _ := newTestScheduler(t, cfg, fixedLoadMonitor{load: 0.9})
	sched.nextRun = time.Now().Add(-time.Minute)

	called := false
	sched.cfg.ActiveUsers = func(ctx context.Context) ([]uuid.UUID, error) {
		called = true
		return nil, nil
	}

	sched.runScheduledIfDue(context.Background())
	assert.False(t, called, "active users should not be consulted when load exceeds the threshold")
	assert.Contains(t, sched.GetProgress().LastError, "high system load")
}
