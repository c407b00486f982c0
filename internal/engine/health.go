package engine

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Harshitk-cp/engram/internal/domain"
)

const defaultQuotaBytes int64 = 1 << 30 // 1 GiB

// StorageMetrics reports byte usage against quota.
type StorageMetrics struct {
	BytesUsed     int64
	QuotaBytes    int64
	UsagePercent  float64
}

// AgeBuckets counts memories by how long ago they were created.
type AgeBuckets struct {
	LastDay   int
	LastWeek  int
	LastMonth int
	Older     int
}

// ForgettingCandidates summarizes how many memories qualify for pruning
// along each reason, plus the distinct-memory union total.
type ForgettingCandidates struct {
	LowStrength int
	Old         int
	LowAccess   int
	Total       int
}

// ConsolidationQueue reports how much consolidation work is pending.
type ConsolidationQueue struct {
	Count            int
	EstimatedTimeMs  int64
}

// Recommendation is a rule-derived suggestion for the operator.
type Recommendation struct {
	Category string // optimization | pruning | archiving | consolidation
	Priority string // low | medium | high
	Message  string
}

// Health is the full result of HealthMonitor.GetHealth.
type Health struct {
	Storage              StorageMetrics
	CountsBySector       map[domain.Sector]int
	CountsByAge          AgeBuckets
	ForgettingCandidates ForgettingCandidates
	ConsolidationQueue   ConsolidationQueue
	ActiveConsolidation  Progress
	Recommendations      []Recommendation
}

// HealthMonitor fans out to the store and the scheduler to build an
// aggregate health snapshot for a user.
type HealthMonitor struct {
	store      domain.MemoryStore
	scheduler  *ConsolidationScheduler
	quotaBytes int64
}

func NewHealthMonitor(store domain.MemoryStore, scheduler *ConsolidationScheduler, quotaBytes int64) *HealthMonitor {
	if quotaBytes <= 0 {
		quotaBytes = defaultQuotaBytes
	}
	return &HealthMonitor{store: store, scheduler: scheduler, quotaBytes: quotaBytes}
}

// classifyStoreError maps a low-level store error to the taxonomy named for
// HealthMonitor in the component spec.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation"):
		return domain.WrapError(domain.CodeSchemaNotInitialized, "required table missing", err)
	case strings.Contains(msg, "column") && strings.Contains(msg, "does not exist"):
		return domain.WrapError(domain.CodeSchemaOutdated, "required column missing", err)
	case strings.Contains(msg, "connection") || strings.Contains(msg, "timeout"):
		return domain.WrapError(domain.CodeConnectionError, "store connection failure", err)
	default:
		return domain.WrapError(domain.CodeGetHealthError, "failed to read health metrics", err)
	}
}

// GetHealth fans out in parallel to every metric source named in the
// component spec.
func (h *HealthMonitor) GetHealth(ctx context.Context, userID uuid.UUID) (Health, error) {
	var health Health
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		memories, err := h.store.ListByUser(gctx, userID)
		if err != nil {
			return classifyStoreError(err)
		}
		var contentBytes, embeddingBytes int64
		ids := make([]uuid.UUID, len(memories))
		for i, m := range memories {
			contentBytes += m.ContentBytes()
			ids[i] = m.ID
		}
		_, embeddingBytes, _ = h.store.SizeOf(gctx, ids)
		used := contentBytes + embeddingBytes
		pct := math.Round(float64(used)/float64(h.quotaBytes)*10000) / 100
		if pct > 100 {
			pct = 100
		}
		health.Storage = StorageMetrics{BytesUsed: used, QuotaBytes: h.quotaBytes, UsagePercent: pct}
		return nil
	})

	g.Go(func() error {
		counts, err := h.store.CountBySector(gctx, userID)
		if err != nil {
			return classifyStoreError(err)
		}
		health.CountsBySector = counts
		return nil
	})

	g.Go(func() error {
		recent, week, month, older, err := h.store.CountByAgeBuckets(gctx, userID, time.Now())
		if err != nil {
			return classifyStoreError(err)
		}
		health.CountsByAge = AgeBuckets{LastDay: recent, LastWeek: week, LastMonth: month, Older: older}
		return nil
	})

	g.Go(func() error {
		low, old, lowAccess, union, err := h.store.CountForgetting(gctx, userID, time.Now())
		if err != nil {
			return classifyStoreError(err)
		}
		health.ForgettingCandidates = ForgettingCandidates{
			LowStrength: low,
			Old:         old,
			LowAccess:   lowAccess,
			Total:       union,
		}
		return nil
	})

	g.Go(func() error {
		pending, err := h.store.ListEpisodicUnconsolidated(gctx, userID, math.MaxInt32)
		if err != nil {
			return classifyStoreError(err)
		}
		health.ConsolidationQueue = ConsolidationQueue{Count: len(pending), EstimatedTimeMs: int64(len(pending)) * 100}
		return nil
	})

	if h.scheduler != nil {
		health.ActiveConsolidation = h.scheduler.GetProgress()
	} else {
		health.ActiveConsolidation = Progress{Running: false}
	}

	if err := g.Wait(); err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return Health{}, derr
		}
		return Health{}, err
	}

	health.Recommendations = buildRecommendations(health)
	return health, nil
}

func buildRecommendations(h Health) []Recommendation {
	var recs []Recommendation

	if h.Storage.UsagePercent >= 90 {
		recs = append(recs, Recommendation{Category: "optimization", Priority: "high", Message: "storage usage is critically high; archive or prune to free space"})
	} else if h.Storage.UsagePercent >= 80 {
		recs = append(recs, Recommendation{Category: "optimization", Priority: "medium", Message: "storage usage is high"})
	}

	if h.ForgettingCandidates.Total > 500 {
		recs = append(recs, Recommendation{Category: "pruning", Priority: "high", Message: "large number of low-value memories accumulated"})
	} else if h.ForgettingCandidates.Total > 100 {
		recs = append(recs, Recommendation{Category: "pruning", Priority: "medium", Message: "consider pruning low-value memories"})
	}

	if h.CountsByAge.Older > 500 {
		recs = append(recs, Recommendation{Category: "archiving", Priority: "medium", Message: "many memories are old; consider archiving"})
	} else if h.CountsByAge.Older > 100 {
		recs = append(recs, Recommendation{Category: "archiving", Priority: "low", Message: "some memories are old; archiving may help"})
	}

	if episodic := h.CountsBySector[domain.SectorEpisodic]; episodic > 200 {
		recs = append(recs, Recommendation{Category: "consolidation", Priority: "medium", Message: "episodic memories are backing up; run consolidation"})
	} else if episodic > 50 {
		recs = append(recs, Recommendation{Category: "consolidation", Priority: "low", Message: "episodic memories could be consolidated"})
	}

	return recs
}
