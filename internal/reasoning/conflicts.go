package reasoning

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// antonymPairs is the fixed lexical-cue table used to guess whether two
// conclusions disagree outright, per the pinned "lexical cues" open
// question decision recorded in DESIGN.md.
var antonymPairs = [][2]string{
	{"should", "should not"},
	{"increase", "decrease"},
	{"always", "never"},
	{"more", "less"},
	{"safe", "risky"},
	{"safe", "unsafe"},
	{"will", "will not"},
	{"effective", "ineffective"},
	{"likely", "unlikely"},
	{"support", "oppose"},
	{"beneficial", "harmful"},
}

// factualAntonymPairs is the subset of antonymPairs that name a concrete
// value or property rather than a method, priority, or forecast; a match on
// one of these forces Factual classification regardless of which two
// stream types disagreed, per the rubric's "explicit disagreement on a
// concrete value, measurement, or named property".
var factualAntonymPairs = [][2]string{
	{"safe", "risky"},
	{"safe", "unsafe"},
	{"increase", "decrease"},
	{"more", "less"},
}

// ConflictResolutionEngine detects, classifies, and scores disagreements
// between two streams' conclusions, grounded on the pairwise fan-out
// pattern from the pack's ashita-ai/akashi conflict scorer
// (golang.org/x/sync/errgroup over every stream pair).
type ConflictResolutionEngine struct {
	mu       sync.Mutex
	patterns map[string]*domain.ConflictPattern
}

func NewConflictResolutionEngine() *ConflictResolutionEngine {
	return &ConflictResolutionEngine{patterns: make(map[string]*domain.ConflictPattern)}
}

// DetectConflicts runs every distinct pair of completed stream results
// through ClassifyConflict concurrently.
func (e *ConflictResolutionEngine) DetectConflicts(ctx context.Context, results []domain.StreamResult) ([]domain.Conflict, error) {
	completed := make([]domain.StreamResult, 0, len(results))
	for _, r := range results {
		if r.Status == domain.StreamCompleted {
			completed = append(completed, r)
		}
	}
	if len(completed) < 2 {
		return nil, nil
	}

	type pair struct{ a, b domain.StreamResult }
	var pairs []pair
	for i := 0; i < len(completed); i++ {
		for j := i + 1; j < len(completed); j++ {
			pairs = append(pairs, pair{completed[i], completed[j]})
		}
	}

	g, _ := errgroup.WithContext(ctx)
	conflicts := make([]*domain.Conflict, len(pairs))
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			c := e.ClassifyConflict(p.a, p.b)
			if c != nil {
				c.Severity = e.AssessSeverity(*c, p.a, p.b)
				framework := e.GenerateResolutionFramework(*c)
				c.ResolutionFramework = &framework
				e.TrackConflictPattern(*c)
			}
			conflicts[i] = c
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

// ClassifyConflict reports whether two stream conclusions disagree and, if
// so, what kind. Returns nil when no disagreement is detected.
func (e *ConflictResolutionEngine) ClassifyConflict(a, b domain.StreamResult) *domain.Conflict {
	if a.StreamType == b.StreamType {
		return nil
	}
	if !lexicallyOpposed(a.Conclusion, b.Conclusion) {
		return nil
	}

	ctype := classifyByStreamPair(a.StreamType, b.StreamType)
	if directlyOpposedOnValue(a.Conclusion, b.Conclusion) {
		ctype = domain.ConflictFactual
	}

	return &domain.Conflict{
		ID:            uuid.New(),
		Type:          ctype,
		SourceStreams: []domain.StreamType{a.StreamType, b.StreamType},
		Description:   "conclusions from " + string(a.StreamType) + " and " + string(b.StreamType) + " appear to disagree",
		Evidence: []domain.Evidence{
			{Stream: a.StreamType, Claim: a.Conclusion, Reasoning: strings.Join(a.Reasoning, "; "), Confidence: a.Confidence},
			{Stream: b.StreamType, Claim: b.Conclusion, Reasoning: strings.Join(b.Reasoning, "; "), Confidence: b.Confidence},
		},
		DetectedAt: time.Now(),
	}
}

func lexicallyOpposed(a, b string) bool {
	return matchesAnyPair(a, b, antonymPairs)
}

// directlyOpposedOnValue reports a "direct contradiction" per spec.md
// §4.11's example (S10): lexical opposites naming a concrete property
// (safe/unsafe) rather than a method or priority.
func directlyOpposedOnValue(a, b string) bool {
	return matchesAnyPair(a, b, factualAntonymPairs)
}

func matchesAnyPair(a, b string, pairs [][2]string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, pair := range pairs {
		if (strings.Contains(la, pair[0]) && strings.Contains(lb, pair[1])) ||
			(strings.Contains(la, pair[1]) && strings.Contains(lb, pair[0])) {
			return true
		}
	}
	return false
}

// classifyByStreamPair maps which two stream types disagreed to the most
// likely conflict type: anything involving synthetic tends to be
// methodological, creative-vs-critical evaluative, analytical-vs-critical
// logical, analytical-vs-creative predictive, and the rest defaults to
// factual.
func classifyByStreamPair(a, b domain.StreamType) domain.ConflictType {
	has := func(t domain.StreamType) bool { return a == t || b == t }
	switch {
	case has(domain.StreamSynthetic):
		return domain.ConflictMethodological
	case has(domain.StreamCreative) && has(domain.StreamCritical):
		return domain.ConflictEvaluative
	case has(domain.StreamAnalytical) && has(domain.StreamCritical):
		return domain.ConflictLogical
	case has(domain.StreamAnalytical) && has(domain.StreamCreative):
		return domain.ConflictPredictive
	default:
		return domain.ConflictFactual
	}
}

// typeBaseline ranks conflict types per the component spec's "Factual >
// Logical >= Predictive > Evaluative >= Methodological" ordering. Only
// Factual clears the "baseline >= Factual" bar AssessSeverity checks at the
// top confidence band.
var typeBaseline = map[domain.ConflictType]int{
	domain.ConflictFactual:       4,
	domain.ConflictLogical:       3,
	domain.ConflictPredictive:    3,
	domain.ConflictEvaluative:    2,
	domain.ConflictMethodological: 2,
}

// AssessSeverity bands a conflict's urgency by the mean confidence behind
// the two conflicting claims, with the top band further split by type: a
// Factual conflict both sides are highly confident in is escalated to
// Critical, everything else at that confidence tops out at High. Every
// conflict this engine detects already rests on a lexical direct-contradiction
// match (see ClassifyConflict), so the "direct contradiction never scores
// below the indirect variant at the same confidence" rule holds trivially —
// there is no lower-confidence indirect path in this implementation to fall
// below.
func (e *ConflictResolutionEngine) AssessSeverity(c domain.Conflict, a, b domain.StreamResult) domain.Severity {
	mean := (a.Confidence + b.Confidence) / 2

	switch {
	case mean >= 0.9:
		if typeBaseline[c.Type] >= typeBaseline[domain.ConflictFactual] {
			return domain.SeverityCritical
		}
		return domain.SeverityHigh
	case mean >= 0.8:
		return domain.SeverityHigh
	case mean >= 0.6:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// GenerateResolutionFramework builds type-specific guidance, using more
// urgent language when the conflict is critical.
func (e *ConflictResolutionEngine) GenerateResolutionFramework(c domain.Conflict) domain.ResolutionFramework {
	var approach string
	var steps []string
	var considerations []string

	switch c.Type {
	case domain.ConflictFactual:
		approach = "Verify against source evidence"
		steps = []string{"Re-check the underlying memories or data cited by each stream", "Prefer the claim backed by higher-confidence evidence", "Flag for human review if evidence is equally strong on both sides"}
		considerations = []string{"factual disputes should not be resolved by confidence alone if evidence is thin"}
	case domain.ConflictLogical:
		approach = "Trace the inference chain"
		steps = []string{"Identify where the two reasoning chains diverge", "Check each premise independently", "Adopt the chain with no identified logical gap"}
		considerations = []string{"a valid-seeming chain can still rest on a false premise"}
	case domain.ConflictMethodological:
		approach = "Reconcile differing approaches"
		steps = []string{"Compare the framing each stream used", "Determine whether the approaches are complementary rather than contradictory", "Synthesize a combined approach where possible"}
		considerations = []string{"methodological disagreement is often resolvable by combining approaches rather than picking one"}
	case domain.ConflictEvaluative:
		approach = "Weigh value judgments explicitly"
		steps = []string{"Make the implicit value criteria of each stream explicit", "Check whether the disagreement is about facts or about priorities", "Present both evaluations to the user if priorities genuinely differ"}
		considerations = []string{"evaluative conflicts may not have a single correct resolution"}
	case domain.ConflictPredictive:
		approach = "Bound the uncertainty"
		steps = []string{"Identify the diverging assumptions driving each prediction", "Assign a probability range instead of a single prediction where assumptions conflict", "Revisit once more evidence becomes available"}
		considerations = []string{"predictive disagreement often reflects genuine uncertainty, not error"}
	}

	recommended := "Review before presenting the synthesized result"
	if c.Severity == domain.SeverityCritical {
		recommended = "This is a critical conflict and must be resolved immediately, or surfaced to the user before any conclusion is presented"
	} else if c.Severity == domain.SeverityHigh {
		recommended = "Surface this conflict alongside the synthesized conclusion"
	}

	return domain.ResolutionFramework{
		Approach:          approach,
		Steps:             steps,
		Considerations:    considerations,
		RecommendedAction: recommended,
	}
}

// TrackConflictPattern records the (type, source-pair) shape of a detected
// conflict for recurrence analysis. Frequency counts occurrences across the
// engine's lifetime; ResolutionSuccess is a running rate, updated once a
// caller later reports whether the generated framework was followed (via
// RecordResolutionOutcome).
func (e *ConflictResolutionEngine) TrackConflictPattern(c domain.Conflict) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := patternKey(c)
	p, ok := e.patterns[key]
	if !ok {
		p = &domain.ConflictPattern{Type: c.Type, CommonSources: c.SourceStreams}
		e.patterns[key] = p
	}
	p.Frequency++
}

// RecordResolutionOutcome updates a pattern's rolling resolution-success
// rate once the caller knows whether the generated framework's recommended
// action was actually followed/accepted.
func (e *ConflictResolutionEngine) RecordResolutionOutcome(c domain.Conflict, resolved bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := patternKey(c)
	p, ok := e.patterns[key]
	if !ok {
		p = &domain.ConflictPattern{Type: c.Type, CommonSources: c.SourceStreams}
		e.patterns[key] = p
	}
	p.TotalTrackedIncrement()
	if resolved {
		p.ResolvedCountIncrement()
	}
	p.ResolutionSuccess = p.ResolvedRate()
}

func patternKey(c domain.Conflict) string {
	sources := make([]string, len(c.SourceStreams))
	for i, s := range c.SourceStreams {
		sources[i] = string(s)
	}
	return string(c.Type) + ":" + strings.Join(sources, ",")
}

// Patterns returns a snapshot of every tracked conflict pattern.
func (e *ConflictResolutionEngine) Patterns() []domain.ConflictPattern {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.ConflictPattern, 0, len(e.patterns))
	for _, p := range e.patterns {
		out = append(out, *p)
	}
	return out
}
