package domain

import "github.com/google/uuid"

// LinkKind names the relation a MemoryLink represents.
type LinkKind string

const (
	LinkKindConsolidation LinkKind = "consolidation"
	LinkKindSimilarity    LinkKind = "similarity"
)

// MemoryLink is a waypoint edge between two memories. Deleting either
// endpoint deletes the link; this is enforced by PruningService and by
// consolidation-cascade rules rather than a database foreign key, since the
// store contract does not guarantee cascading deletes.
type MemoryLink struct {
	SourceID uuid.UUID
	TargetID uuid.UUID
	Kind     LinkKind
	Weight   float64
}
