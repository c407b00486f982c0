package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemLoad_NoStatsFuncReturnsZero(t *testing.T) {
	m := NewWeightedLoadMonitor(nil)
	load, err := m.SystemLoad(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, load)
}

func TestSystemLoad_WeightsMemoryHigherThanCPU(t *testing.T) {
	m := NewWeightedLoadMonitor(func(ctx context.Context) (ProcessStats, error) {
		return ProcessStats{MemoryUtilization: 1.0, CPUUtilization: 0.0}, nil
	})
	load, err := m.SystemLoad(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.6, load)
}

func TestSystemLoad_ClampsAboveOne(t *testing.T) {
	m := NewWeightedLoadMonitor(func(ctx context.Context) (ProcessStats, error) {
		return ProcessStats{MemoryUtilization: 2.0, CPUUtilization: 2.0}, nil
	})
	load, err := m.SystemLoad(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, load)
}

func TestSystemLoad_PropagatesStatsError(t *testing.T) {
	m := NewWeightedLoadMonitor(func(ctx context.Context) (ProcessStats, error) {
		return ProcessStats{}, errors.New("sampler unavailable")
	})
	_, err := m.SystemLoad(context.Background())
	assert.Error(t, err)
}
