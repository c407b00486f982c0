package reasoning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// checkpointFractions are the synchronization points every stream is
// expected to report progress at, expressed as a fraction of the overall
// timeout (the "timeout * fraction" model chosen for the pinned checkpoint
// open question; see DESIGN.md).
var checkpointFractions = []float64{0.25, 0.5, 0.75}

// liveInsights is a concurrency-safe append-only log of insights published
// by any stream during a single ExecuteStreams call. It is not handed to any
// stream: a SyntheticStream's Upstream hook is whatever its caller set.
type liveInsights struct {
	mu   sync.Mutex
	data []domain.Insight
}

func (l *liveInsights) add(i domain.Insight) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = append(l.data, i)
}

func (l *liveInsights) snapshot() []domain.Insight {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Insight, len(l.data))
	copy(out, l.data)
	return out
}

// checkpointTracker records, per stream, which of the three synchronization
// fractions have been reported, for CoordinationMetrics.
type checkpointTracker struct {
	mu   sync.Mutex
	hit  map[domain.StreamType]map[float64]time.Time
}

func newCheckpointTracker() *checkpointTracker {
	return &checkpointTracker{hit: make(map[domain.StreamType]map[float64]time.Time)}
}

func (c *checkpointTracker) record(st domain.StreamType, fraction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.hit[st]
	if !ok {
		m = make(map[float64]time.Time)
		c.hit[st] = m
	}
	nearest := nearestFraction(fraction)
	if _, already := m[nearest]; !already {
		m[nearest] = time.Now()
	}
}

func nearestFraction(f float64) float64 {
	best := checkpointFractions[0]
	bestDelta := abs(f - best)
	for _, cf := range checkpointFractions[1:] {
		if d := abs(f - cf); d < bestDelta {
			best, bestDelta = cf, d
		}
	}
	return best
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// LiveEvent is a checkpoint or insight published by a stream while it is
// still running, forwarded to an EventSink so a caller (the SSE handlers)
// can relay it immediately instead of waiting for ExecuteStreams to return.
type LiveEvent struct {
	StreamID   string
	StreamType domain.StreamType
	Kind       string // "checkpoint" or "insight"
	Fraction   float64
	Insight    *domain.Insight
}

// EventSink receives LiveEvents as streams publish them. Called from
// whichever goroutine is running the stream; implementations must be
// concurrency-safe.
type EventSink func(LiveEvent)

// reporter is the per-stream CheckpointReporter the Coordinator hands to
// Stream.Execute, wiring checkpoint/insight callbacks back into the shared
// bookkeeping and, if set, out to a live EventSink.
type reporter struct {
	streamID   string
	streamType domain.StreamType
	insights   *liveInsights
	tracker    *checkpointTracker
	sink       EventSink
}

func (r *reporter) PublishCheckpoint(fraction float64) {
	r.tracker.record(r.streamType, fraction)
	if r.sink != nil {
		r.sink(LiveEvent{StreamID: r.streamID, StreamType: r.streamType, Kind: "checkpoint", Fraction: fraction})
	}
}

func (r *reporter) PublishInsight(insight domain.Insight) {
	r.insights.add(insight)
	if r.sink != nil {
		ins := insight
		r.sink(LiveEvent{StreamID: r.streamID, StreamType: r.streamType, Kind: "insight", Insight: &ins})
	}
}

// StreamCoordinator runs a set of reasoning streams concurrently against a
// shared deadline, propagating cancellation to stragglers once the deadline
// passes and measuring how much of the total wall-clock time went to
// coordination overhead versus stream work.
type StreamCoordinator struct {
	synthesizer *Synthesizer
	conflicts   *ConflictResolutionEngine
}

func NewStreamCoordinator(synthesizer *Synthesizer, conflicts *ConflictResolutionEngine) *StreamCoordinator {
	return &StreamCoordinator{synthesizer: synthesizer, conflicts: conflicts}
}

// ExecuteStreams runs every stream concurrently, bounded by timeout, then
// synthesizes their results and detects conflicts between them. sink, if
// non-nil, receives every checkpoint/insight as streams publish them, for a
// caller relaying true real-time progress (e.g. over SSE); pass nil for a
// purely synchronous call.
func (c *StreamCoordinator) ExecuteStreams(ctx context.Context, problem domain.ReasoningProblem, streams []Stream, timeout time.Duration, sink EventSink) (domain.SynthesizedResult, domain.CoordinationMetrics, error) {
	totalStart := time.Now()
	deadline := totalStart.Add(timeout)

	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	insights := &liveInsights{}
	tracker := newCheckpointTracker()

	g, gctx := errgroup.WithContext(runCtx)
	results := make([]domain.StreamResult, len(streams))

	for i, s := range streams {
		i, s := i, s
		streamID := newStreamID()
		g.Go(func() error {
			rep := &reporter{streamID: streamID, streamType: s.Type(), insights: insights, tracker: tracker, sink: sink}
			select {
			case <-gctx.Done():
				results[i] = domain.StreamResult{
					StreamID:   streamID,
					StreamType: s.Type(),
					Status:     domain.StreamTimedOut,
				}
				return nil
			default:
			}
			results[i] = runStreamSafely(s, runCtx, problem, deadline, rep, streamID)
			return nil
		})
	}
	_ = g.Wait()

	coordinationStart := time.Now()

	completed := make([]domain.StreamResult, 0, len(results))
	for _, r := range results {
		if r.Status == domain.StreamCompleted {
			completed = append(completed, r)
		} else {
			completed = append(completed, r) // timed-out/error results still feed synthesis with zero weight
		}
	}

	var conflicts []domain.Conflict
	if c.conflicts != nil {
		conflicts, _ = c.conflicts.DetectConflicts(runCtx, completed)
	}

	var synthesized domain.SynthesizedResult
	var err error
	if c.synthesizer != nil {
		synthesized, err = c.synthesizer.Synthesize(problem, completed, conflicts)
		if err != nil {
			return domain.SynthesizedResult{}, domain.CoordinationMetrics{}, err
		}
	} else {
		synthesized = domain.SynthesizedResult{StreamResults: completed, Conflicts: conflicts}
	}

	totalTime := time.Since(totalStart)
	coordinationTime := time.Since(coordinationStart)
	metrics := domain.CoordinationMetrics{
		TotalCoordination: coordinationTime,
		TotalTime:         totalTime,
	}
	if totalTime > 0 {
		metrics.OverheadPercentage = float64(coordinationTime) / float64(totalTime) * 100
	}
	metrics.Sync25 = syncDuration(tracker, streams, 0.25, totalStart, totalTime)
	metrics.Sync50 = syncDuration(tracker, streams, 0.5, totalStart, totalTime)
	metrics.Sync75 = syncDuration(tracker, streams, 0.75, totalStart, totalTime)

	_ = insights.snapshot() // the log is not returned; live consumers receive insights through sink

	return synthesized, metrics, nil
}

// runStreamSafely calls s.Execute, converting a panic into a Failed result
// instead of crashing the whole ExecuteStreams call — one stream's bug must
// never abort the others.
func runStreamSafely(s Stream, ctx context.Context, problem domain.ReasoningProblem, deadline time.Time, rep CheckpointReporter, streamID string) (result domain.StreamResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = domain.StreamResult{
				StreamID:   streamID,
				StreamType: s.Type(),
				Conclusion: fmt.Sprintf("stream panicked: %v", rec),
				Status:     domain.StreamFailed,
			}
		}
	}()
	result = s.Execute(ctx, problem, deadline, rep)
	result.StreamID = streamID
	return result
}

// syncDuration returns how long it took every stream to report the given
// checkpoint fraction, measured from totalStart. If any stream never
// reported it (timed out or failed before reaching it), the full elapsed
// time is returned instead, since the checkpoint was never actually
// synchronized.
func syncDuration(t *checkpointTracker, streams []Stream, fraction float64, totalStart time.Time, elapsed time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var latest time.Time
	for _, s := range streams {
		m, ok := t.hit[s.Type()]
		if !ok {
			return elapsed
		}
		ts, ok := m[fraction]
		if !ok {
			return elapsed
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	if latest.IsZero() {
		return elapsed
	}
	return latest.Sub(totalStart)
}
