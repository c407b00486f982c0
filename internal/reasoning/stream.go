// Package reasoning implements the parallel reasoning orchestrator: stream
// variants, the coordinator that runs them concurrently with checkpoint
// synchronization, the synthesizer that merges their output, and the
// conflict-resolution engine that classifies and scores disagreements
// between them.
//
// Grounded on the teacher's background-worker idiom generalized to a
// request-scoped concurrent fan-out (golang.org/x/sync/errgroup, pack:
// other_examples ashita-ai/akashi conflicts scorer), since the teacher
// itself has no multi-stream reasoning concept.
package reasoning

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// Stream is the narrow capability every reasoning mode satisfies. Per the
// "no inheritance" redesign note, variants are small structs implementing
// this interface rather than a class hierarchy.
type Stream interface {
	Type() domain.StreamType
	Execute(ctx context.Context, problem domain.ReasoningProblem, deadline time.Time, checkpoints CheckpointReporter) domain.StreamResult
}

// CheckpointReporter lets a stream publish progress ticks and intermediate
// insights without knowing about the Coordinator or SSE.
type CheckpointReporter interface {
	PublishCheckpoint(fraction float64)
	PublishInsight(insight domain.Insight)
}

// noopReporter is used when a stream runs without a coordinator (e.g. unit
// tests of a single stream).
type noopReporter struct{}

func (noopReporter) PublishCheckpoint(float64)       {}
func (noopReporter) PublishInsight(domain.Insight) {}

// NoopReporter is exported for tests that exercise a Stream in isolation.
var NoopReporter CheckpointReporter = noopReporter{}

func newStreamID() string {
	return uuid.NewString()
}
