// Package domain holds the core entity types for the memory lifecycle and
// reasoning subsystems. It has no dependency on storage or transport.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sector classifies memory content and determines its decay multiplier.
type Sector string

const (
	SectorEpisodic   Sector = "episodic"
	SectorSemantic   Sector = "semantic"
	SectorProcedural Sector = "procedural"
	SectorEmotional  Sector = "emotional"
	SectorReflective Sector = "reflective"
)

// AllSectors lists every valid sector, in a stable order.
var AllSectors = []Sector{SectorEpisodic, SectorSemantic, SectorProcedural, SectorEmotional, SectorReflective}

// ValidSector reports whether s is a recognized sector.
func ValidSector(s Sector) bool {
	switch s {
	case SectorEpisodic, SectorSemantic, SectorProcedural, SectorEmotional, SectorReflective:
		return true
	default:
		return false
	}
}

// EmbeddingStatus tracks whether a memory's vector representation is ready.
type EmbeddingStatus string

const (
	EmbeddingPending  EmbeddingStatus = "pending"
	EmbeddingComplete EmbeddingStatus = "complete"
	EmbeddingFailed   EmbeddingStatus = "failed"
)

// Memory is a single persisted unit of text with decayable strength.
type Memory struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	SessionID        *uuid.UUID
	Content          string
	PrimarySector    Sector
	Salience         float64
	Strength         float64
	DecayRate        *float64 // per-memory override; nil means use sector config
	AccessCount      int
	CreatedAt        time.Time
	LastAccessedAt   time.Time
	ConsolidatedInto *uuid.UUID
	EmbeddingStatus  EmbeddingStatus
}

// Consolidated reports whether this memory has been folded into a summary.
func (m Memory) Consolidated() bool {
	return m.ConsolidatedInto != nil
}

// ContentBytes is the byte size counted toward storage quota and free-bytes
// accounting, matching the freedBytes formula (content length in bytes).
func (m Memory) ContentBytes() int64 {
	return int64(len(m.Content))
}
