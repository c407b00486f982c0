package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Harshitk-cp/engram/internal/domain"
	"github.com/Harshitk-cp/engram/internal/reasoning"
	"github.com/Harshitk-cp/engram/internal/session"
)

// ThinkHandler serves POST /think and GET /think/status/:sessionId. It
// builds the stream set a "mode" maps to, runs them through the same
// StreamCoordinator the parallel-reasoning endpoint uses, and degrades to a
// rule-based fallback when every stream times out or fails.
type ThinkHandler struct {
	LLM            domain.LLMProvider
	Coordinator    *reasoning.StreamCoordinator
	Sessions       *session.Store
	DefaultTimeout time.Duration
}

func NewThinkHandler(llm domain.LLMProvider, coordinator *reasoning.StreamCoordinator, sessions *session.Store, defaultTimeout time.Duration) *ThinkHandler {
	return &ThinkHandler{LLM: llm, Coordinator: coordinator, Sessions: sessions, DefaultTimeout: defaultTimeout}
}

type thinkRequest struct {
	Problem string `json:"problem"`
	Mode    string `json:"mode"`
	Context string `json:"context,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

var thinkModeStreams = map[string][]domain.StreamType{
	"intuitive":     {domain.StreamCreative, domain.StreamSynthetic},
	"deliberative":  {domain.StreamAnalytical, domain.StreamCritical},
	"balanced":      {domain.StreamAnalytical, domain.StreamCreative, domain.StreamCritical, domain.StreamSynthetic},
	"creative":      {domain.StreamCreative, domain.StreamSynthetic},
	"analytical":    {domain.StreamAnalytical, domain.StreamCritical},
}

func (h *ThinkHandler) buildStreams(types []domain.StreamType) []reasoning.Stream {
	streams := make([]reasoning.Stream, 0, len(types))
	for _, t := range types {
		switch t {
		case domain.StreamAnalytical:
			streams = append(streams, &reasoning.AnalyticalStream{LLM: h.LLM})
		case domain.StreamCreative:
			streams = append(streams, &reasoning.CreativeStream{LLM: h.LLM})
		case domain.StreamCritical:
			streams = append(streams, &reasoning.CriticalStream{LLM: h.LLM})
		case domain.StreamSynthetic:
			streams = append(streams, &reasoning.SyntheticStream{LLM: h.LLM})
		}
	}
	return streams
}

// Think handles POST /think.
func (h *ThinkHandler) Think(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req thinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondValidationError(w, "invalid request body")
		return
	}
	if len(req.Problem) == 0 || len(req.Problem) > 10000 {
		RespondValidationError(w, "problem must be 1-10000 characters")
		return
	}
	streamTypes, ok := thinkModeStreams[req.Mode]
	if !ok {
		RespondValidationError(w, "mode must be one of intuitive, deliberative, balanced, creative, analytical")
		return
	}

	sess := h.Sessions.CreateSession(domain.SessionThink)
	h.Sessions.Update(sess.ID, func(s *domain.Session) { s.ActiveStreams = streamTypes })

	streams := h.buildStreams(streamTypes)
	problem := domain.ReasoningProblem{ID: uuid.New(), Description: req.Problem, Context: req.Context}

	timeout := h.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	synthesized, _, err := h.Coordinator.ExecuteStreams(r.Context(), problem, streams, timeout, nil)
	if err != nil {
		h.Sessions.Update(sess.ID, func(s *domain.Session) {
			s.Status = domain.SessionError
			s.Err = asDomainErr(err)
		})
		RespondError(w, err)
		return
	}

	if allStreamsFailed(synthesized.StreamResults) {
		h.Sessions.Update(sess.ID, func(s *domain.Session) {
			s.Status = domain.SessionComplete
			s.Progress = 1
			s.Stage = "fallback"
		})
		if h.LLM != nil && allStreamsTimedOut(synthesized.StreamResults) {
			RespondOK(w, r, started, llmTimeoutFallbackResponse(req.Mode, started))
		} else {
			RespondOK(w, r, started, fallbackThinkResponse(req.Mode, started))
		}
		return
	}

	h.Sessions.Update(sess.ID, func(s *domain.Session) {
		s.Status = domain.SessionComplete
		s.Progress = 1
		s.Stage = "complete"
		s.Result = &synthesized
	})

	RespondOK(w, r, started, thinkResponse(req.Mode, synthesized, time.Since(started)))
}

func allStreamsFailed(results []domain.StreamResult) bool {
	if len(results) == 0 {
		return true
	}
	for _, r := range results {
		if r.Status == domain.StreamCompleted {
			return false
		}
	}
	return true
}

// allStreamsTimedOut reports whether every stream hit the deadline rather
// than failing outright (panicking), the signature of a configured LLM
// that never responded in time rather than a bug in a stream itself.
func allStreamsTimedOut(results []domain.StreamResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Status != domain.StreamTimedOut {
			return false
		}
	}
	return true
}

func asDomainErr(err error) *domain.Error {
	if derr, ok := err.(*domain.Error); ok {
		return derr
	}
	return domain.WrapError(domain.CodeLLMGenerationError, "reasoning failed", err)
}

func fallbackThinkResponse(mode string, started time.Time) map[string]any {
	return map[string]any{
		"thoughts":             []string{},
		"confidence":           0.0,
		"modeUsed":             mode,
		"processingTimeMs":     time.Since(started).Milliseconds(),
		"conclusion":           "Unable to complete reasoning within the configured timeout.",
		"recommendations":      []string{},
		"metacognitiveAssessment": map[string]any{
			"overallConfidence":  0.0,
			"evidenceQuality":    0.0,
			"reasoningCoherence": 0.0,
			"completeness":       0.0,
			"uncertaintyLevel":   1.0,
			"uncertaintyType":    "epistemic",
			"factors":            []string{"every reasoning stream timed out or failed"},
		},
		"_meta": map[string]any{
			"fallbackUsed": true,
			"reason":       "all reasoning streams timed out or failed",
			"suggestion":   "retry with a longer timeout, a narrower problem statement, or a different mode",
		},
	}
}

// llmTimeoutFallbackResponse is the rule-based body returned when every
// stream ran to the deadline without completing and an LLM was configured —
// the language model itself, not a stream bug, is the likely cause.
func llmTimeoutFallbackResponse(mode string, started time.Time) map[string]any {
	recommendations := []map[string]any{
		{"text": "Retry the request with a longer timeout so the language model has time to respond.", "priority": 8, "confidence": 0.5},
		{"text": "Narrow the problem statement so less context needs to be generated per stream.", "priority": 6, "confidence": 0.5},
		{"text": "Use a mode that relies less on the language model, such as analytical or deliberative.", "priority": 5, "confidence": 0.5},
	}
	return map[string]any{
		"thoughts":         []string{},
		"confidence":       0.3,
		"modeUsed":         mode,
		"processingTimeMs": time.Since(started).Milliseconds(),
		"conclusion":       "Unable to complete reasoning because the language model did not respond in time.",
		"recommendations":  recommendations,
		"metacognitiveAssessment": map[string]any{
			"overallConfidence":  0.3,
			"evidenceQuality":    0.0,
			"reasoningCoherence": 0.0,
			"completeness":       0.0,
			"uncertaintyLevel":   0.7,
			"uncertaintyType":    "epistemic",
			"factors":            []string{"the configured language model timed out before any stream completed"},
		},
		"_meta": map[string]any{
			"fallbackUsed": true,
			"reason":       "LLM timeout",
			"suggestion":   "retry with a longer timeout, a narrower problem statement, or a mode that doesn't require an LLM",
		},
	}
}

func thinkResponse(mode string, s domain.SynthesizedResult, elapsed time.Duration) map[string]any {
	thoughts := make([]string, 0, len(s.Insights))
	for _, ins := range s.Insights {
		thoughts = append(thoughts, ins.Content)
	}
	recs := make([]map[string]any, 0, len(s.Recommendations))
	for _, rec := range s.Recommendations {
		recs = append(recs, map[string]any{
			"text":       rec.Text,
			"priority":   rec.Priority,
			"confidence": rec.Confidence,
		})
	}

	return map[string]any{
		"thoughts":                thoughts,
		"confidence":              s.Confidence,
		"modeUsed":                mode,
		"processingTimeMs":        elapsed.Milliseconds(),
		"conclusion":              s.Conclusion,
		"recommendations":         recs,
		"metacognitiveAssessment": metacognitiveAssessment(s),
	}
}

// metacognitiveAssessment derives the §6 /think metacognition block from the
// Synthesizer's Quality scoring and ConflictResolutionEngine's output; there
// is no dedicated domain module for it, so it is assembled here from the
// fields those two components already produce.
func metacognitiveAssessment(s domain.SynthesizedResult) map[string]any {
	overall := s.Confidence
	evidenceQuality := s.Quality.Consistency
	coherence := s.Quality.Coherence
	completeness := s.Quality.Completeness

	var factors []string
	uncertaintyType := "aleatoric"
	switch {
	case len(s.Conflicts) > 0:
		uncertaintyType = "ambiguity"
		factors = append(factors, "conflicting stream conclusions detected")
	case evidenceQuality < 0.5:
		uncertaintyType = "epistemic"
		factors = append(factors, "low agreement in evidence across streams")
	case completeness < 0.75:
		uncertaintyType = "epistemic"
		factors = append(factors, "not all problem goals are addressed by the synthesized insights")
	default:
		factors = append(factors, "residual variance across stream confidence levels")
	}

	return map[string]any{
		"overallConfidence":  overall,
		"evidenceQuality":    evidenceQuality,
		"reasoningCoherence": coherence,
		"completeness":       completeness,
		"uncertaintyLevel":   1 - overall,
		"uncertaintyType":    uncertaintyType,
		"factors":            factors,
	}
}

// Status handles GET /think/status/:sessionId.
func (h *ThinkHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	sess, ok := h.Sessions.Get(id)
	if !ok || sess.Kind != domain.SessionThink {
		RespondNotFound(w, "unknown session")
		return
	}
	RespondOK(w, r, time.Now(), map[string]any{
		"status":        sess.Status,
		"progress":      sess.Progress,
		"currentStage":  sess.Stage,
		"activeStreams": sess.ActiveStreams,
	})
}
