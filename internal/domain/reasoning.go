package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReasoningProblem is the input to a reasoning session: the question plus
// whatever context/constraints/goals the caller supplied.
type ReasoningProblem struct {
	ID             uuid.UUID
	Description    string
	Context        string
	Constraints    []string
	Goals          []string
	ComplexityHint string
}

// StreamType names one of the four reasoning modes a ReasoningStream
// implementation embodies.
type StreamType string

const (
	StreamAnalytical StreamType = "analytical"
	StreamCreative   StreamType = "creative"
	StreamCritical   StreamType = "critical"
	StreamSynthetic  StreamType = "synthetic"
)

func ValidStreamType(t StreamType) bool {
	switch t {
	case StreamAnalytical, StreamCreative, StreamCritical, StreamSynthetic:
		return true
	default:
		return false
	}
}

// StreamStatus is the terminal state of one stream's execution.
type StreamStatus string

const (
	StreamCompleted StreamStatus = "completed"
	StreamTimedOut  StreamStatus = "timed_out"
	StreamFailed    StreamStatus = "failed"
	StreamCancelled StreamStatus = "cancelled"
)

// Insight is one atomic observation a stream contributes.
type Insight struct {
	Content    string
	Confidence float64
	Importance float64
	Source     StreamType
}

// StreamResult is what a single ReasoningStream.Execute call produces.
type StreamResult struct {
	StreamID       string
	StreamType     StreamType
	Conclusion     string
	Reasoning      []string
	Insights       []Insight
	Confidence     float64
	ProcessingTime time.Duration
	Status         StreamStatus
}

// Recommendation is an actionable suggestion derived from synthesized
// insights, with priority clamped to [1,10].
type Recommendation struct {
	Text       string
	Priority   int
	Confidence float64
}

// Quality scores the synthesis along three axes plus their mean.
type Quality struct {
	Coherence    float64
	Completeness float64
	Consistency  float64
	Overall      float64
}

// AttributedInsight is an Insight merged across streams, tracking every
// stream that contributed an equivalent insight.
type AttributedInsight struct {
	Content    string
	Confidence float64
	Importance float64
	Sources    []StreamType
}

// SynthesizedResult is the final output of a reasoning session: one merged
// conclusion, deduplicated insights, prioritized recommendations, detected
// conflicts, and per-stream results retained for traceability.
type SynthesizedResult struct {
	Conclusion      string
	Insights        []AttributedInsight
	Recommendations []Recommendation
	Confidence      float64
	Quality         Quality
	Conflicts       []Conflict
	StreamResults   []StreamResult
}

// CoordinationMetrics reports how much of the wall-clock budget the
// Coordinator itself spent on synchronization versus stream work.
type CoordinationMetrics struct {
	Sync25              time.Duration
	Sync50              time.Duration
	Sync75              time.Duration
	TotalCoordination   time.Duration
	TotalTime           time.Duration
	OverheadPercentage  float64
}
