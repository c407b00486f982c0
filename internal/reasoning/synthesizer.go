package reasoning

import (
	"math"
	"sort"
	"strings"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// similarInsightThreshold is how much word overlap two insights need before
// they're treated as the same observation and merged.
const similarInsightThreshold = 0.6

// Synthesizer merges a set of completed stream results into one weighted
// conclusion, a deduplicated insight list, and a prioritized recommendation
// set.
type Synthesizer struct{}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize merges results by confidence-weighted vote. Only completed
// streams feed the conclusion, insights, confidence and quality; a stream
// that timed out or failed is left out of them, but its StreamResult is kept
// for traceability. conflicts is the output of ConflictResolutionEngine.
// DetectConflicts over the same results, run by the caller before
// synthesis so confidence and quality can account for what it found.
func (s *Synthesizer) Synthesize(problem domain.ReasoningProblem, results []domain.StreamResult, conflicts []domain.Conflict) (domain.SynthesizedResult, error) {
	if len(results) == 0 {
		return domain.SynthesizedResult{}, domain.NewError(domain.CodeNoMemoryContents, "no stream results to synthesize")
	}

	completed := make([]domain.StreamResult, 0, len(results))
	for _, r := range results {
		if r.Status == domain.StreamCompleted {
			completed = append(completed, r)
		}
	}

	conclusion := weightedConclusion(completed)
	insights := mergeInsights(completed)
	recommendations := deriveRecommendations(insights)
	confidence := weightedConfidence(completed, conflicts)
	quality := computeQuality(problem, completed, insights, conflicts)

	return domain.SynthesizedResult{
		Conclusion:      conclusion,
		Insights:        insights,
		Recommendations: recommendations,
		Confidence:      confidence,
		Quality:         quality,
		Conflicts:       conflicts,
		StreamResults:   results,
	}, nil
}

func weightedConclusion(results []domain.StreamResult) string {
	if len(results) == 0 {
		return "No stream produced a usable conclusion."
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	var others []string
	for _, r := range results {
		if r.StreamID == best.StreamID {
			continue
		}
		others = append(others, string(r.StreamType))
	}
	if len(others) == 0 {
		return best.Conclusion
	}
	return best.Conclusion + " (corroborated by " + strings.Join(others, ", ") + ")"
}

// confidenceReductionPerConflict is how much weightedConfidence is reduced
// for each unresolved conflict of severity High or above, per the "reduced
// proportional to number of unresolved conflicts" rule; a pinned Open
// Question decision recorded in DESIGN.md.
const confidenceReductionPerConflict = 0.1

func weightedConfidence(results []domain.StreamResult, conflicts []domain.Conflict) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Confidence
	}
	avg := sum / float64(len(results))

	severe := 0
	for _, c := range conflicts {
		if !c.Severity.Less(domain.SeverityHigh) {
			severe++
		}
	}
	return clamp01(avg - confidenceReductionPerConflict*float64(severe))
}

// mergeInsights dedups near-identical insights across streams, keeping the
// highest confidence and tracking every contributing stream type.
func mergeInsights(results []domain.StreamResult) []domain.AttributedInsight {
	var merged []domain.AttributedInsight
	for _, r := range results {
		for _, ins := range r.Insights {
			idx := findSimilar(merged, ins.Content)
			if idx == -1 {
				merged = append(merged, domain.AttributedInsight{
					Content:    ins.Content,
					Confidence: ins.Confidence,
					Importance: ins.Importance,
					Sources:    []domain.StreamType{ins.Source},
				})
				continue
			}
			m := &merged[idx]
			if ins.Confidence > m.Confidence {
				m.Confidence = ins.Confidence
			}
			if ins.Importance > m.Importance {
				m.Importance = ins.Importance
			}
			if !containsStream(m.Sources, ins.Source) {
				m.Sources = append(m.Sources, ins.Source)
			}
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Importance > merged[j].Importance
	})
	return merged
}

func findSimilar(existing []domain.AttributedInsight, content string) int {
	for i, e := range existing {
		if wordOverlap(e.Content, content) >= similarInsightThreshold {
			return i
		}
	}
	return -1
}

func wordOverlap(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	common := 0
	for w := range wa {
		if wb[w] {
			common++
		}
	}
	denom := len(wa)
	if len(wb) > denom {
		denom = len(wb)
	}
	return float64(common) / float64(denom)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func containsStream(list []domain.StreamType, t domain.StreamType) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

// deriveRecommendations turns the highest-importance insights into
// actionable recommendations, priority = round(10*importance) clamped
// [1,10].
func deriveRecommendations(insights []domain.AttributedInsight) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, len(insights))
	for _, ins := range insights {
		priority := int(math.Round(10 * ins.Importance))
		if priority < 1 {
			priority = 1
		}
		if priority > 10 {
			priority = 10
		}
		recs = append(recs, domain.Recommendation{
			Text:       ins.Content,
			Priority:   priority,
			Confidence: ins.Confidence,
		})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority > recs[j].Priority
	})
	return recs
}

// goalMatchThreshold is the minimum word overlap between a problem goal and
// an insight's content before the goal counts as "addressed" for
// completeness.
const goalMatchThreshold = 0.2

// computeQuality scores coherence as the inverse of the contradiction rate
// across completed-stream pairs, completeness as the fraction of problem
// goals addressed by at least one insight, and consistency as the fraction
// of insight pairs free of a factual contradiction; overall is their mean.
func computeQuality(problem domain.ReasoningProblem, results []domain.StreamResult, insights []domain.AttributedInsight, conflicts []domain.Conflict) domain.Quality {
	if len(results) == 0 {
		return domain.Quality{}
	}

	coherence := 1.0
	if pairs := len(results) * (len(results) - 1) / 2; pairs > 0 {
		rate := float64(len(conflicts)) / float64(pairs)
		coherence = clamp01(1 - rate)
	}

	completeness := 1.0
	if len(problem.Goals) > 0 {
		addressed := 0
		for _, goal := range problem.Goals {
			for _, ins := range insights {
				if wordOverlap(goal, ins.Content) >= goalMatchThreshold {
					addressed++
					break
				}
			}
		}
		completeness = clamp01(float64(addressed) / float64(len(problem.Goals)))
	}

	consistency := 1.0
	if pairs := len(insights) * (len(insights) - 1) / 2; pairs > 0 {
		contradicting := 0
		for i := 0; i < len(insights); i++ {
			for j := i + 1; j < len(insights); j++ {
				if directlyOpposedOnValue(insights[i].Content, insights[j].Content) {
					contradicting++
				}
			}
		}
		consistency = clamp01(1 - float64(contradicting)/float64(pairs))
	}

	overall := (coherence + completeness + consistency) / 3
	return domain.Quality{
		Coherence:    coherence,
		Completeness: completeness,
		Consistency:  consistency,
		Overall:      overall,
	}
}
