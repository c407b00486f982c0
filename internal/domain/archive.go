package domain

import (
	"time"

	"github.com/google/uuid"
)

// ArchivedMemory is a memory moved out of the active set. It carries enough
// of the original fields to restore an active Memory on demand.
type ArchivedMemory struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	SessionID         *uuid.UUID
	Content           string
	PrimarySector     Sector
	Salience          float64
	Strength          float64
	AccessCount       int
	OriginalCreatedAt time.Time
	ArchivedAt        time.Time
	Embedding         []float32 // nil unless retained at archive time
}

// ArchiveConfig controls what ArchiveMemories/ArchiveOld retain.
type ArchiveConfig struct {
	RetainEmbeddings bool
	AgeThresholdDays int
}
