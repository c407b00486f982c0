package reasoning

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// AnalyticalStream decomposes a problem into sub-problems and evaluates the
// evidence cited in its context/constraints. Confidence rises with evidence
// count and the coherence of the goals supplied.
type AnalyticalStream struct {
	LLM domain.LLMProvider
}

func (s *AnalyticalStream) Type() domain.StreamType { return domain.StreamAnalytical }

func (s *AnalyticalStream) Execute(ctx context.Context, problem domain.ReasoningProblem, deadline time.Time, cp CheckpointReporter) domain.StreamResult {
	start := time.Now()
	cp.PublishCheckpoint(0)

	subProblems := splitIntoSubProblems(problem.Description)
	reasoning := make([]string, 0, len(subProblems)+1)
	reasoning = append(reasoning, fmt.Sprintf("decomposed into %d sub-problem(s)", len(subProblems)))
	insights := make([]domain.Insight, 0, len(subProblems))
	for i, sp := range subProblems {
		reasoning = append(reasoning, fmt.Sprintf("evaluated: %s", sp))
		insights = append(insights, domain.Insight{
			Content:    fmt.Sprintf("sub-problem %d: %s", i+1, sp),
			Confidence: 0.6,
			Importance: 0.5,
			Source:     domain.StreamAnalytical,
		})
		cp.PublishInsight(insights[len(insights)-1])
	}
	cp.PublishCheckpoint(0.5)

	evidenceCount := len(problem.Constraints) + len(problem.Goals)
	coherence := coherenceOf(problem.Goals)
	confidence := clamp01(0.4 + 0.05*float64(evidenceCount) + 0.2*coherence)

	conclusion := fmt.Sprintf("Analytical decomposition of %d sub-problem(s) with %d evidence item(s) yields: %s",
		len(subProblems), evidenceCount, summarize(problem.Description))

	if s.LLM != nil {
		if text, err := s.LLM.Generate(ctx, problem.Description, "You are an analytical reasoner. Decompose the problem and evaluate the evidence."); err == nil && strings.TrimSpace(text) != "" {
			conclusion = strings.TrimSpace(text)
			confidence = clamp01(confidence + 0.1)
		}
	}

	cp.PublishCheckpoint(1.0)
	status := domain.StreamCompleted
	if time.Now().After(deadline) {
		status = domain.StreamTimedOut
	}
	return domain.StreamResult{
		StreamID:       newStreamID(),
		StreamType:     domain.StreamAnalytical,
		Conclusion:     conclusion,
		Reasoning:      reasoning,
		Insights:       insights,
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
		Status:         status,
	}
}

// CreativeStream generates alternative framings and analogies. Confidence
// derives from novelty times feasibility.
type CreativeStream struct {
	LLM domain.LLMProvider
}

func (s *CreativeStream) Type() domain.StreamType { return domain.StreamCreative }

func (s *CreativeStream) Execute(ctx context.Context, problem domain.ReasoningProblem, deadline time.Time, cp CheckpointReporter) domain.StreamResult {
	start := time.Now()
	cp.PublishCheckpoint(0)

	framings := []string{
		"Reframe as a resource-allocation problem",
		"Reframe as a communication/coordination problem",
		"Consider the inverse of the stated goal",
	}
	insights := make([]domain.Insight, 0, len(framings))
	for _, f := range framings {
		insights = append(insights, domain.Insight{Content: f, Confidence: 0.5, Importance: 0.4, Source: domain.StreamCreative})
		cp.PublishInsight(insights[len(insights)-1])
	}
	cp.PublishCheckpoint(0.6)

	novelty := 0.6
	feasibility := clamp01(0.5 + 0.1*float64(len(problem.Goals)))
	confidence := clamp01(novelty * feasibility * 1.4)

	conclusion := fmt.Sprintf("Creative exploration of %s surfaced %d alternative framing(s)", summarize(problem.Description), len(framings))
	if s.LLM != nil {
		if text, err := s.LLM.Generate(ctx, problem.Description, "You are a creative reasoner. Propose alternative framings and analogies."); err == nil && strings.TrimSpace(text) != "" {
			conclusion = strings.TrimSpace(text)
		}
	}

	cp.PublishCheckpoint(1.0)
	status := domain.StreamCompleted
	if time.Now().After(deadline) {
		status = domain.StreamTimedOut
	}
	return domain.StreamResult{
		StreamID:       newStreamID(),
		StreamType:     domain.StreamCreative,
		Conclusion:     conclusion,
		Reasoning:      []string{"generated alternative framings", "scored novelty x feasibility"},
		Insights:       insights,
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
		Status:         status,
	}
}

// CriticalStream surfaces assumptions, counter-arguments, and risks.
// Confidence rises with the breadth of challenges considered.
type CriticalStream struct {
	LLM domain.LLMProvider
}

func (s *CriticalStream) Type() domain.StreamType { return domain.StreamCritical }

func (s *CriticalStream) Execute(ctx context.Context, problem domain.ReasoningProblem, deadline time.Time, cp CheckpointReporter) domain.StreamResult {
	start := time.Now()
	cp.PublishCheckpoint(0)

	challenges := []string{
		"Assumption: the stated constraints are exhaustive",
		"Counter-argument: the opposite conclusion may hold under different conditions",
	}
	for _, c := range problem.Constraints {
		challenges = append(challenges, fmt.Sprintf("risk: constraint %q may not hold", c))
	}
	insights := make([]domain.Insight, 0, len(challenges))
	for _, c := range challenges {
		insights = append(insights, domain.Insight{Content: c, Confidence: 0.55, Importance: 0.6, Source: domain.StreamCritical})
		cp.PublishInsight(insights[len(insights)-1])
	}
	cp.PublishCheckpoint(0.7)

	confidence := clamp01(0.3 + 0.07*float64(len(challenges)))

	conclusion := fmt.Sprintf("Critical review of %s raised %d challenge(s)", summarize(problem.Description), len(challenges))
	if s.LLM != nil {
		if text, err := s.LLM.Generate(ctx, problem.Description, "You are a critical reasoner. Surface assumptions, counter-arguments, and risks."); err == nil && strings.TrimSpace(text) != "" {
			conclusion = strings.TrimSpace(text)
		}
	}

	cp.PublishCheckpoint(1.0)
	status := domain.StreamCompleted
	if time.Now().After(deadline) {
		status = domain.StreamTimedOut
	}
	return domain.StreamResult{
		StreamID:       newStreamID(),
		StreamType:     domain.StreamCritical,
		Conclusion:     conclusion,
		Reasoning:      []string{"enumerated assumptions", "enumerated counter-arguments and risks"},
		Insights:       insights,
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
		Status:         status,
	}
}

// SyntheticStream integrates across other streams' public insights when
// available; otherwise it proposes a unifying frame on its own.
type SyntheticStream struct {
	LLM      domain.LLMProvider
	Upstream func() []domain.Insight // optional: insights published so far by sibling streams
}

func (s *SyntheticStream) Type() domain.StreamType { return domain.StreamSynthetic }

func (s *SyntheticStream) Execute(ctx context.Context, problem domain.ReasoningProblem, deadline time.Time, cp CheckpointReporter) domain.StreamResult {
	start := time.Now()
	cp.PublishCheckpoint(0)

	var upstream []domain.Insight
	if s.Upstream != nil {
		upstream = s.Upstream()
	}

	var conclusion string
	var insights []domain.Insight
	if len(upstream) > 0 {
		conclusion = fmt.Sprintf("Integrating %d upstream insight(s) into a unifying frame for: %s", len(upstream), summarize(problem.Description))
		insights = append(insights, domain.Insight{
			Content:    "unifying frame draws on prior streams' insights",
			Confidence: 0.6,
			Importance: 0.5,
			Source:     domain.StreamSynthetic,
		})
	} else {
		conclusion = fmt.Sprintf("Proposing a unifying frame for: %s", summarize(problem.Description))
		insights = append(insights, domain.Insight{
			Content:    "no upstream insights available; proposing an independent unifying frame",
			Confidence: 0.4,
			Importance: 0.4,
			Source:     domain.StreamSynthetic,
		})
	}
	for _, ins := range insights {
		cp.PublishInsight(ins)
	}
	cp.PublishCheckpoint(0.8)

	confidence := clamp01(0.4 + 0.02*float64(len(upstream)))
	if s.LLM != nil {
		if text, err := s.LLM.Generate(ctx, problem.Description, "You are a synthetic reasoner. Integrate other perspectives into one unifying frame."); err == nil && strings.TrimSpace(text) != "" {
			conclusion = strings.TrimSpace(text)
		}
	}

	cp.PublishCheckpoint(1.0)
	status := domain.StreamCompleted
	if time.Now().After(deadline) {
		status = domain.StreamTimedOut
	}
	return domain.StreamResult{
		StreamID:       newStreamID(),
		StreamType:     domain.StreamSynthetic,
		Conclusion:     conclusion,
		Reasoning:      []string{"collected upstream insights", "proposed unifying frame"},
		Insights:       insights,
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
		Status:         status,
	}
}

func splitIntoSubProblems(description string) []string {
	parts := strings.FieldsFunc(description, func(r rune) bool {
		return r == '.' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{description}
	}
	return out
}

func coherenceOf(goals []string) float64 {
	if len(goals) == 0 {
		return 0.5
	}
	return clamp01(0.5 + 0.1*float64(len(goals)))
}

func summarize(s string) string {
	const max = 80
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "..."
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
