package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/engram/internal/domain"
)

func TestSynthesize_RejectsEmptyResults(t *testing.T) {
	s := NewSynthesizer()
	_, err := s.Synthesize(domain.ReasoningProblem{}, nil, nil)
	assert.Error(t, err)
}

func TestSynthesize_PicksHighestConfidenceConclusionAndCreditsOthers(t *testing.T) {
	s := NewSynthesizer()
	results := []domain.StreamResult{
		{StreamID: "a", StreamType: domain.StreamAnalytical, Conclusion: "do it carefully", Confidence: 0.9, Status: domain.StreamCompleted},
		{StreamID: "b", StreamType: domain.StreamCritical, Conclusion: "risky", Confidence: 0.4, Status: domain.StreamCompleted},
	}
	out, err := s.Synthesize(domain.ReasoningProblem{}, results, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Conclusion, "do it carefully")
	assert.Contains(t, out.Conclusion, "critical")
	assert.Len(t, out.StreamResults, 2, "every input result should be preserved for traceability, not just completed ones")
}

func TestSynthesize_IgnoresTimedOutStreamsForConfidenceWeighting(t *testing.T) {
	s := NewSynthesizer()
	results := []domain.StreamResult{
		{StreamID: "a", StreamType: domain.StreamAnalytical, Conclusion: "solid", Confidence: 0.8, Status: domain.StreamCompleted},
		{StreamID: "b", StreamType: domain.StreamCreative, Status: domain.StreamTimedOut},
	}
	out, err := s.Synthesize(domain.ReasoningProblem{}, results, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.8, out.Confidence, "a timed-out stream must not dilute the average confidence")
}

func TestSynthesize_ReducesConfidenceForEachHighSeverityConflict(t *testing.T) {
	s := NewSynthesizer()
	results := []domain.StreamResult{
		{StreamID: "a", StreamType: domain.StreamAnalytical, Conclusion: "solid", Confidence: 0.8, Status: domain.StreamCompleted},
		{StreamID: "b", StreamType: domain.StreamCritical, Conclusion: "also solid", Confidence: 0.8, Status: domain.StreamCompleted},
	}
	conflicts := []domain.Conflict{
		{Severity: domain.SeverityHigh},
		{Severity: domain.SeverityCritical},
		{Severity: domain.SeverityLow}, // below High, must not count
	}
	out, err := s.Synthesize(domain.ReasoningProblem{}, results, conflicts)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, out.Confidence, 1e-9, "two unresolved conflicts at High/Critical should reduce the weighted average by 0.1 each")
	require.Len(t, out.Conflicts, 3, "detected conflicts must be carried through to the synthesized result")
}

func TestSynthesize_MergesNearIdenticalInsightsAcrossStreams(t *testing.T) {
	s := NewSynthesizer()
	results := []domain.StreamResult{
		{
			StreamID: "a", StreamType: domain.StreamAnalytical, Status: domain.StreamCompleted, Confidence: 0.7,
			Insights: []domain.Insight{{Content: "the migration risk is high", Confidence: 0.6, Importance: 0.5, Source: domain.StreamAnalytical}},
		},
		{
			StreamID: "b", StreamType: domain.StreamCritical, Status: domain.StreamCompleted, Confidence: 0.8,
			Insights: []domain.Insight{{Content: "the migration risk is quite high", Confidence: 0.9, Importance: 0.8, Source: domain.StreamCritical}},
		},
	}
	out, err := s.Synthesize(domain.ReasoningProblem{}, results, nil)
	require.NoError(t, err)
	require.Len(t, out.Insights, 1, "near-duplicate insight text should merge into one")
	assert.Equal(t, 0.9, out.Insights[0].Confidence, "merge should keep the higher confidence")
	assert.Len(t, out.Insights[0].Sources, 2)
}

func TestSynthesize_RecommendationPriorityTracksImportance(t *testing.T) {
	s := NewSynthesizer()
	results := []domain.StreamResult{
		{
			StreamID: "a", StreamType: domain.StreamAnalytical, Status: domain.StreamCompleted, Confidence: 0.7,
			Insights: []domain.Insight{{Content: "low importance note", Confidence: 0.5, Importance: 0.05, Source: domain.StreamAnalytical}},
		},
	}
	out, err := s.Synthesize(domain.ReasoningProblem{}, results, nil)
	require.NoError(t, err)
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, 1, out.Recommendations[0].Priority, "priority should clamp to the [1,10] floor")
}

func TestSynthesize_CompletenessTracksAddressedGoals(t *testing.T) {
	s := NewSynthesizer()
	problem := domain.ReasoningProblem{Goals: []string{"reduce migration risk", "ship a fast release"}}
	results := []domain.StreamResult{
		{
			StreamID: "a", StreamType: domain.StreamAnalytical, Status: domain.StreamCompleted, Confidence: 0.7,
			Insights: []domain.Insight{{Content: "the migration risk is manageable", Confidence: 0.7, Importance: 0.5, Source: domain.StreamAnalytical}},
		},
	}
	out, err := s.Synthesize(problem, results, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.Quality.Completeness, 1e-9, "only one of the two goals is addressed by an insight")
}

func TestSynthesize_ConsistencyPenalizesFactuallyContradictingInsights(t *testing.T) {
	s := NewSynthesizer()
	results := []domain.StreamResult{
		{
			StreamID: "a", StreamType: domain.StreamAnalytical, Status: domain.StreamCompleted, Confidence: 0.7,
			Insights: []domain.Insight{{Content: "costs will increase next quarter", Confidence: 0.7, Importance: 0.5, Source: domain.StreamAnalytical}},
		},
		{
			StreamID: "b", StreamType: domain.StreamCritical, Status: domain.StreamCompleted, Confidence: 0.7,
			Insights: []domain.Insight{{Content: "budget impact will decrease substantially", Confidence: 0.7, Importance: 0.5, Source: domain.StreamCritical}},
		},
	}
	out, err := s.Synthesize(domain.ReasoningProblem{}, results, nil)
	require.NoError(t, err)
	require.Len(t, out.Insights, 2, "these two insights should stay distinct, not merge as near-duplicates")
	assert.Equal(t, 0.0, out.Quality.Consistency, "the one insight pair directly contradicts on a concrete property")
}
