package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReinforcementType distinguishes why a memory's strength was boosted.
type ReinforcementType string

const (
	ReinforcementAccess     ReinforcementType = "access"
	ReinforcementExplicit   ReinforcementType = "explicit"
	ReinforcementImportance ReinforcementType = "importance"
)

func ValidReinforcementType(t ReinforcementType) bool {
	switch t {
	case ReinforcementAccess, ReinforcementExplicit, ReinforcementImportance:
		return true
	default:
		return false
	}
}

// ReinforcementHistoryEntry records one strength boost for audit and for the
// DecayEngine's resistance bookkeeping.
type ReinforcementHistoryEntry struct {
	MemoryID       uuid.UUID
	Timestamp      time.Time
	Type           ReinforcementType
	Boost          float64
	StrengthBefore float64
	StrengthAfter  float64
}
