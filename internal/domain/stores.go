package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PruneCriteria parameterizes PruningService.ListCandidates.
type PruneCriteria struct {
	MinStrength   float64
	MaxAgeDays    int
	MinAccessCount int
}

// DefaultPruneCriteria matches the defaults named in scenario S3.
func DefaultPruneCriteria() PruneCriteria {
	return PruneCriteria{MinStrength: 0.1, MaxAgeDays: 180, MinAccessCount: 0}
}

// PruneReason is the single precedence-ordered reason a memory is a pruning
// candidate: low_strength > old_age > low_access.
type PruneReason string

const (
	ReasonLowStrength PruneReason = "low_strength"
	ReasonOldAge      PruneReason = "old_age"
	ReasonLowAccess   PruneReason = "low_access"
)

// PruneCandidate is one memory identified for pruning, with its precedence
// reason.
type PruneCandidate struct {
	MemoryID  uuid.UUID
	Reason    PruneReason
	Strength  float64
	CreatedAt time.Time
}

// PruneResult is the common shape PreviewPruning and Prune both return.
type PruneResult struct {
	DeletedCount        int
	FreedBytes          int64
	OrphanedLinksRemoved int
}

// ArchiveResult is returned by ArchiveMemories/ArchiveOld.
type ArchiveResult struct {
	ArchivedCount int
	FreedBytes    int64
	Timestamp     time.Time
}

// RestoreResult is returned by Restore.
type RestoreResult struct {
	RestoredCount int
	MemoryID      uuid.UUID
	Timestamp     time.Time
}

// ArchiveStats is returned by GetArchiveStats.
type ArchiveStats struct {
	Count     int
	BytesUsed int64
}

// MemoryStore is the persistence boundary for active memories, their
// embeddings, links, and metadata. Implementations must serialize
// decay/reinforcement updates to a single memory id by a row-level
// transaction.
type MemoryStore interface {
	Create(ctx context.Context, m *Memory) error
	GetByID(ctx context.Context, id uuid.UUID) (*Memory, error)
	Update(ctx context.Context, m *Memory) error
	Delete(ctx context.Context, id uuid.UUID) error

	ListByUser(ctx context.Context, userID uuid.UUID) ([]Memory, error)
	ListBySector(ctx context.Context, userID uuid.UUID, sector Sector, limit int) ([]Memory, error)
	ListEpisodicUnconsolidated(ctx context.Context, userID uuid.UUID, limit int) ([]Memory, error)
	CountBySector(ctx context.Context, userID uuid.UUID) (map[Sector]int, error)
	CountByAgeBuckets(ctx context.Context, userID uuid.UUID, now time.Time) (recent, week, month, older int, err error)

	ListForgettingCandidates(ctx context.Context, userID uuid.UUID, criteria PruneCriteria, now time.Time) ([]PruneCandidate, error)
	SizeOf(ctx context.Context, ids []uuid.UUID) (contentBytes int64, embeddingBytes int64, err error)

	// CountForgetting reports the fixed-threshold counts HealthMonitor uses:
	// strength < 0.1, age > 180 days, access count <= 0, plus the distinct
	// union of all three.
	CountForgetting(ctx context.Context, userID uuid.UUID, now time.Time) (lowStrength, old, lowAccess, union int, err error)

	// Prune deletes memories, their links, embeddings, metadata, and tag
	// associations, scoped to userID, inside a single transaction. Empty ids
	// is a precondition violation the caller must avoid (PruningService
	// short-circuits before calling).
	Prune(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (PruneResult, error)

	UpdateReinforcement(ctx context.Context, id uuid.UUID, strength float64, accessCount int, lastAccessedAt time.Time) error
	AppendReinforcementHistory(ctx context.Context, entry ReinforcementHistoryEntry) error

	// Consolidate performs the full transactional commit described in
	// ConsolidationEngine.Consolidate: summary insert, bidirectional links,
	// strength reduction, ConsolidatedInto updates, and the history record.
	Consolidate(ctx context.Context, summary Memory, cluster MemoryCluster, reductionFactor float64, record ConsolidationRecord) error

	ArchiveMemories(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, cfg ArchiveConfig) (ArchiveResult, error)
	Restore(ctx context.Context, userID uuid.UUID, memoryID uuid.UUID) (RestoreResult, error)
	GetArchiveStats(ctx context.Context, userID uuid.UUID) (ArchiveStats, error)
	SearchArchive(ctx context.Context, userID uuid.UUID, query string) ([]ArchivedMemory, error)
	GetArchived(ctx context.Context, userID uuid.UUID, memoryID uuid.UUID) (*ArchivedMemory, error)

	ListDistinctUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// EmbeddingStore is the boundary for per-memory embedding vectors, kept
// separate from MemoryStore because pgvector columns live in their own
// table per spec.md's schema obligations.
type EmbeddingStore interface {
	Upsert(ctx context.Context, e Embedding) error
	Get(ctx context.Context, memoryID uuid.UUID, sector Sector) (*Embedding, error)
	FindSimilar(ctx context.Context, userID uuid.UUID, vector []float32, sector Sector, limit int) ([]uuid.UUID, []float64, error)
}

// LinkStore is the boundary for memory_links rows. CreateLink is named to
// avoid colliding with MemoryStore.Create on implementations (like the
// postgres Store) that satisfy both interfaces on one type.
type LinkStore interface {
	CreateLink(ctx context.Context, link MemoryLink) error
	CountTouching(ctx context.Context, ids []uuid.UUID) (int, error)
	DeleteTouching(ctx context.Context, ids []uuid.UUID) (int, error)
}

// EmbeddingProvider is the opaque external collaborator that turns text into
// a fixed-dimension vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLMProvider is the opaque external collaborator used for summary
// generation and (optionally) reasoning streams.
type LLMProvider interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// SystemLoadMonitor reports a [0,1] load figure the scheduler gates on.
type SystemLoadMonitor interface {
	SystemLoad(ctx context.Context) (float64, error)
}
