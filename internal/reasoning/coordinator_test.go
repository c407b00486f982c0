package reasoning

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// fakeStream is a minimal Stream used to drive the coordinator without the
// real variants' LLM/template logic.
type fakeStream struct {
	streamType domain.StreamType
	confidence float64
	insight    string
}

func (s *fakeStream) Type() domain.StreamType { return s.streamType }

func (s *fakeStream) Execute(ctx context.Context, problem domain.ReasoningProblem, deadline time.Time, cp CheckpointReporter) domain.StreamResult {
	cp.PublishCheckpoint(0)
	cp.PublishInsight(domain.Insight{Content: s.insight, Confidence: s.confidence, Importance: 0.5, Source: s.streamType})
	cp.PublishCheckpoint(0.5)
	cp.PublishCheckpoint(1.0)
	return domain.StreamResult{
		StreamType: s.streamType,
		Conclusion: "conclusion from " + string(s.streamType),
		Confidence: s.confidence,
		Status:     domain.StreamCompleted,
	}
}

func TestExecuteStreams_SynthesizesCompletedStreams(t *testing.T) {
	c := NewStreamCoordinator(NewSynthesizer(), NewConflictResolutionEngine())
	streams := []Stream{
		&fakeStream{streamType: domain.StreamAnalytical, confidence: 0.8, insight: "a"},
		&fakeStream{streamType: domain.StreamCreative, confidence: 0.6, insight: "b"},
	}

	result, metrics, err := c.ExecuteStreams(context.Background(), domain.ReasoningProblem{Description: "test problem"}, streams, time.Second, nil)
	require.NoError(t, err)
	assert.Len(t, result.StreamResults, 2)
	assert.Greater(t, metrics.TotalTime, time.Duration(0))
	for _, sr := range result.StreamResults {
		assert.NotEmpty(t, sr.StreamID)
		assert.Equal(t, domain.StreamCompleted, sr.Status)
	}
}

func TestExecuteStreams_SinkReceivesLiveCheckpointsAndInsights(t *testing.T) {
	c := NewStreamCoordinator(NewSynthesizer(), NewConflictResolutionEngine())
	streams := []Stream{
		&fakeStream{streamType: domain.StreamAnalytical, confidence: 0.8, insight: "a"},
	}

	var mu sync.Mutex
	var events []LiveEvent
	sink := func(e LiveEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	result, _, err := c.ExecuteStreams(context.Background(), domain.ReasoningProblem{Description: "test"}, streams, time.Second, sink)
	require.NoError(t, err)
	require.Len(t, result.StreamResults, 1)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)

	streamID := result.StreamResults[0].StreamID
	sawInsight := false
	for _, e := range events {
		assert.Equal(t, streamID, e.StreamID, "every event should be tagged with the coordinator-assigned stream id")
		if e.Kind == "insight" {
			sawInsight = true
			require.NotNil(t, e.Insight)
			assert.Equal(t, "a", e.Insight.Content)
		}
	}
	assert.True(t, sawInsight, "expected at least one insight event forwarded to the sink")
}

func TestExecuteStreams_TimeoutMarksStragglersTimedOut(t *testing.T) {
	c := NewStreamCoordinator(NewSynthesizer(), NewConflictResolutionEngine())
	streams := []Stream{&slowStream{}}

	result, _, err := c.ExecuteStreams(context.Background(), domain.ReasoningProblem{Description: "test"}, streams, 10*time.Millisecond, nil)
	require.NoError(t, err)
	require.Len(t, result.StreamResults, 1)
	assert.Equal(t, domain.StreamTimedOut, result.StreamResults[0].Status)
}

type slowStream struct{}

func (slowStream) Type() domain.StreamType { return domain.StreamAnalytical }

func (slowStream) Execute(ctx context.Context, problem domain.ReasoningProblem, deadline time.Time, cp CheckpointReporter) domain.StreamResult {
	<-ctx.Done()
	return domain.StreamResult{StreamType: domain.StreamAnalytical, Status: domain.StreamTimedOut}
}

type panickingStream struct{}

func (panickingStream) Type() domain.StreamType { return domain.StreamCritical }

func (panickingStream) Execute(ctx context.Context, problem domain.ReasoningProblem, deadline time.Time, cp CheckpointReporter) domain.StreamResult {
	panic("boom")
}

func TestExecuteStreams_PanickingStreamIsMarkedFailedWithoutAbortingOthers(t *testing.T) {
	c := NewStreamCoordinator(NewSynthesizer(), NewConflictResolutionEngine())
	streams := []Stream{
		&panickingStream{},
		&fakeStream{streamType: domain.StreamAnalytical, confidence: 0.7, insight: "a"},
	}

	result, _, err := c.ExecuteStreams(context.Background(), domain.ReasoningProblem{Description: "test"}, streams, time.Second, nil)
	require.NoError(t, err)
	require.Len(t, result.StreamResults, 2)

	var sawFailed, sawCompleted bool
	for _, sr := range result.StreamResults {
		switch sr.Status {
		case domain.StreamFailed:
			sawFailed = true
			assert.Equal(t, domain.StreamCritical, sr.StreamType)
			assert.NotEmpty(t, sr.StreamID, "a failed stream should still get a coordinator-assigned id")
		case domain.StreamCompleted:
			sawCompleted = true
		}
	}
	assert.True(t, sawFailed, "the panicking stream should be reported as Failed, not crash the call")
	assert.True(t, sawCompleted, "the other stream must still complete normally")
}
