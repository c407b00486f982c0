package domain

import "github.com/google/uuid"

// Embedding is the vector representation of a memory in one sector.
// A memory has at most one semantic-slot embedding and zero or more
// secondary-sector embeddings.
type Embedding struct {
	MemoryID  uuid.UUID
	Sector    Sector
	Vector    []float32
	Dimension int
}

// Bytes returns the storage footprint used for quota accounting: four bytes
// per float32 component.
func (e Embedding) Bytes() int64 {
	return int64(e.Dimension) * 4
}
