package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConflictType classifies the kind of disagreement between two streams.
type ConflictType string

const (
	ConflictFactual       ConflictType = "factual"
	ConflictLogical       ConflictType = "logical"
	ConflictMethodological ConflictType = "methodological"
	ConflictEvaluative    ConflictType = "evaluative"
	ConflictPredictive    ConflictType = "predictive"
)

// Severity ranks how urgently a conflict needs resolution.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank gives Severity a total order so AssessSeverity's monotonicity
// property (non-decreasing in mean evidence confidence) can be checked and
// compared.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Less reports whether s ranks below other.
func (s Severity) Less(other Severity) bool {
	return severityRank[s] < severityRank[other]
}

// Evidence cites one stream's claim supporting a conflict.
type Evidence struct {
	Stream     StreamType
	Claim      string
	Reasoning  string
	Confidence float64
}

// ResolutionFramework is the actionable guidance ConflictResolutionEngine
// generates for a conflict.
type ResolutionFramework struct {
	Approach          string
	Steps             []string
	Considerations    []string
	RecommendedAction string
}

// Conflict is a recorded disagreement between two or more stream outputs.
type Conflict struct {
	ID                  uuid.UUID
	Type                ConflictType
	Severity            Severity
	SourceStreams       []StreamType
	Description         string
	Evidence            []Evidence
	ResolutionFramework *ResolutionFramework
	DetectedAt          time.Time
}

// ConflictPattern tracks recurrence of a (type, source-stream-pair) shape
// across sessions, for TrackConflictPattern.
type ConflictPattern struct {
	Type              ConflictType
	Frequency         int
	CommonSources     []StreamType
	ResolutionSuccess float64
	resolvedCount     int
	totalTracked      int
}

// TotalTrackedIncrement records that one more outcome was reported for this
// pattern, regardless of whether it resolved successfully.
func (p *ConflictPattern) TotalTrackedIncrement() {
	p.totalTracked++
}

// ResolvedCountIncrement records a successful resolution outcome.
func (p *ConflictPattern) ResolvedCountIncrement() {
	p.resolvedCount++
}

// ResolvedRate returns the running resolution-success rate, 0 if nothing has
// been tracked yet.
func (p *ConflictPattern) ResolvedRate() float64 {
	if p.totalTracked == 0 {
		return 0
	}
	return float64(p.resolvedCount) / float64(p.totalTracked)
}
