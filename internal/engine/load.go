package engine

import "context"

// ProcessStats is the minimal resource reading WeightedLoadMonitor needs;
// an implementation may source this from runtime.MemStats and a
// platform-specific CPU sampler, or a test may stub it directly.
type ProcessStats struct {
	MemoryUtilization float64 // [0,1]
	CPUUtilization    float64 // [0,1]
}

// StatsFunc produces a ProcessStats reading on demand.
type StatsFunc func(ctx context.Context) (ProcessStats, error)

// WeightedLoadMonitor combines process memory and CPU utilization into a
// single [0,1] figure using the weights named in the component spec
// (0.6 memory / 0.4 CPU).
type WeightedLoadMonitor struct {
	stats StatsFunc
}

func NewWeightedLoadMonitor(stats StatsFunc) *WeightedLoadMonitor {
	return &WeightedLoadMonitor{stats: stats}
}

const (
	memoryWeight = 0.6
	cpuWeight    = 0.4
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SystemLoad returns the weighted load; an implementation may stub this with
// an injected function, and callers must tolerate 0 during tests.
func (m *WeightedLoadMonitor) SystemLoad(ctx context.Context) (float64, error) {
	if m.stats == nil {
		return 0, nil
	}
	stats, err := m.stats(ctx)
	if err != nil {
		return 0, err
	}
	load := memoryWeight*stats.MemoryUtilization + cpuWeight*stats.CPUUtilization
	return clamp01(load), nil
}
