package domain

import (
	"time"

	"github.com/google/uuid"
)

// MinClusterSizeForSummary is the minimum number of episodic memories a
// cluster must contain before it can be consolidated into a summary.
const MinClusterSizeForSummary = 5

// MemoryCluster is a group of memories found similar enough to consolidate.
type MemoryCluster struct {
	MemberIDs     []uuid.UUID
	CentroidID    uuid.UUID
	Centroid      []float32
	AvgSimilarity float64
	Topic         string
}

// ConsolidationRecord is the audit row written when a cluster is folded into
// a summary memory.
type ConsolidationRecord struct {
	SummaryID uuid.UUID
	SourceIDs []uuid.UUID
	CreatedAt time.Time
	Topic     string
}

// ConsolidationConfig parameterizes clustering and consolidation.
type ConsolidationConfig struct {
	SimilarityThreshold    float64
	MinClusterSize         int
	BatchSize              int
	StrengthReductionFactor float64
}

// DefaultConsolidationConfig matches the values named in the component spec.
func DefaultConsolidationConfig() ConsolidationConfig {
	return ConsolidationConfig{
		SimilarityThreshold:     0.75,
		MinClusterSize:          MinClusterSizeForSummary,
		BatchSize:               100,
		StrengthReductionFactor: 0.5,
	}
}
