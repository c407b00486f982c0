package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Harshitk-cp/engram/internal/domain"
	"github.com/Harshitk-cp/engram/internal/reasoning"
	"github.com/Harshitk-cp/engram/internal/session"
)

// ReasoningHandler serves the /reasoning/* endpoint group: synchronous and
// async parallel reasoning, its SSE progress stream, a single-stream SSE
// relay, and the minimal reasoning-chain view.
type ReasoningHandler struct {
	LLM            domain.LLMProvider
	Coordinator    *reasoning.StreamCoordinator
	Sessions       *session.Store
	Hub            *session.Hub
	DefaultTimeout time.Duration
}

func NewReasoningHandler(llm domain.LLMProvider, coordinator *reasoning.StreamCoordinator, sessions *session.Store, hub *session.Hub, defaultTimeout time.Duration) *ReasoningHandler {
	return &ReasoningHandler{LLM: llm, Coordinator: coordinator, Sessions: sessions, Hub: hub, DefaultTimeout: defaultTimeout}
}

type parallelRequest struct {
	Problem string   `json:"problem"`
	Streams []string `json:"streams"`
	UserID  string   `json:"userId,omitempty"`
	Context string   `json:"context,omitempty"`
	Timeout *int     `json:"timeout,omitempty"`
	Async   bool     `json:"async,omitempty"`
}

func (h *ReasoningHandler) buildStreams(types []domain.StreamType) []reasoning.Stream {
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

// Parallel handles POST /reasoning/parallel.
func (h *ReasoningHandler) Parallel(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req parallelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondValidationError(w, "invalid request body")
		return
	}
	if len(req.Problem) == 0 {
		RespondValidationError(w, "problem is required")
		return
	}
	if len(req.Streams) == 0 || len(req.Streams) > 4 {
		RespondValidationError(w, "streams must list 1-4 stream types")
		return
	}
	streamTypes := make([]domain.StreamType, 0, len(req.Streams))
	for _, s := range req.Streams {
		t := domain.StreamType(s)
		if !domain.ValidStreamType(t) {
			RespondValidationError(w, "unknown stream type: "+s)
			return
		}
		streamTypes = append(streamTypes, t)
	}

	timeoutMs := 30000
	if req.Timeout != nil {
		if *req.Timeout < 1000 || *req.Timeout > 60000 {
			RespondValidationError(w, "timeout must be between 1000 and 60000 ms")
			return
		}
		timeoutMs = *req.Timeout
	}
	timeout := time.Duration(timeoutMs) * time.Millisecond

	sess := h.Sessions.CreateSession(domain.SessionParallelReasoning)
	h.Sessions.Update(sess.ID, func(s *domain.Session) { s.ActiveStreams = streamTypes })

	problem := domain.ReasoningProblem{ID: uuid.New(), Description: req.Problem, Context: req.Context}
	streams := h.buildStreams(streamTypes)

	if req.Async {
		go h.run(context.Background(), sess.ID, problem, streams, timeout)
		RespondAccepted(w, r, started, map[string]any{
			"sessionId": sess.ID,
			"status":    string(domain.SessionProcessing),
		})
		return
	}

	synthesized, metrics, err := h.run(r.Context(), sess.ID, problem, streams, timeout)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondOK(w, r, started, parallelResponse(sess.ID, synthesized, metrics))
}

// run executes the coordinator with a live EventSink that relays every
// checkpoint/insight onto the Hub as it happens — both under sessionID (for
// /reasoning/parallel/:sessionId/stream) and under the individual stream's
// id (for /reasoning/live/:streamId) — then broadcasts the terminal events
// and records the final Session state.
func (h *ReasoningHandler) run(ctx context.Context, sessionID string, problem domain.ReasoningProblem, streams []reasoning.Stream, timeout time.Duration) (domain.SynthesizedResult, domain.CoordinationMetrics, error) {
	started := make(map[string]bool)
	var startedMu sync.Mutex

	sink := func(evt reasoning.LiveEvent) {
		switch evt.Kind {
		case "checkpoint":
			startedMu.Lock()
			firstSeen := !started[evt.StreamID]
			started[evt.StreamID] = true
			startedMu.Unlock()
			if firstSeen {
				startEvt := session.Event{Type: session.EventStreamStarted, Timestamp: time.Now(), Data: map[string]any{"streamId": evt.StreamID, "streamType": evt.StreamType}}
				h.Hub.Broadcast(sessionID, startEvt)
				h.Hub.Broadcast(evt.StreamID, startEvt)
			}
			progressEvt := session.Event{Type: session.EventStreamProgress, Timestamp: time.Now(), Data: map[string]any{"streamId": evt.StreamID, "streamType": evt.StreamType, "fraction": evt.Fraction}}
			h.Hub.Broadcast(sessionID, progressEvt)
			h.Hub.Broadcast(evt.StreamID, progressEvt)
		case "insight":
			insightEvt := session.Event{Type: session.EventStreamInsight, Timestamp: time.Now(), Data: map[string]any{
				"streamId": evt.StreamID, "streamType": evt.StreamType,
				"content": evt.Insight.Content, "confidence": evt.Insight.Confidence, "importance": evt.Insight.Importance,
			}}
			h.Hub.Broadcast(sessionID, insightEvt)
			h.Hub.Broadcast(evt.StreamID, insightEvt)
		}
	}

	synthesized, metrics, err := h.Coordinator.ExecuteStreams(ctx, problem, streams, timeout, sink)
	if err != nil {
		h.Sessions.Update(sessionID, func(s *domain.Session) {
			s.Status = domain.SessionError
			s.Err = asDomainErr(err)
		})
		h.Hub.Broadcast(sessionID, session.Event{Type: session.EventSessionError, Timestamp: time.Now(), Data: map[string]any{"error": err.Error()}})
		return domain.SynthesizedResult{}, domain.CoordinationMetrics{}, err
	}

	for _, sr := range synthesized.StreamResults {
		completedEvt := session.Event{Type: session.EventStreamCompleted, Timestamp: time.Now(), Data: map[string]any{
			"streamId":   sr.StreamID,
			"streamType": sr.StreamType,
			"status":     sr.Status,
			"confidence": sr.Confidence,
		}}
		h.Hub.Broadcast(sessionID, completedEvt)
		h.Hub.Broadcast(sr.StreamID, completedEvt)
	}
	h.Hub.Broadcast(sessionID, session.Event{Type: session.EventSyncCheckpoint, Timestamp: time.Now(), Data: map[string]any{
		"sync25": metrics.Sync25.Milliseconds(), "sync50": metrics.Sync50.Milliseconds(), "sync75": metrics.Sync75.Milliseconds(),
	}})
	h.Hub.Broadcast(sessionID, session.Event{Type: session.EventSynthesisStarted, Timestamp: time.Now(), Data: map[string]any{}})
	h.Hub.Broadcast(sessionID, session.Event{Type: session.EventSynthesisCompleted, Timestamp: time.Now(), Data: map[string]any{
		"conclusion": synthesized.Conclusion, "confidence": synthesized.Confidence,
	}})

	h.Sessions.Update(sessionID, func(s *domain.Session) {
		s.Status = domain.SessionComplete
		s.Progress = 1
		s.Stage = "complete"
		s.Result = &synthesized
	})
	h.Hub.Broadcast(sessionID, session.Event{Type: session.EventSessionCompleted, Timestamp: time.Now(), Data: map[string]any{
		"conclusion": synthesized.Conclusion,
	}})

	return synthesized, metrics, nil
}

func parallelResponse(sessionID string, s domain.SynthesizedResult, metrics domain.CoordinationMetrics) map[string]any {
	streamsOut := make([]map[string]any, 0, len(s.StreamResults))
	for _, sr := range s.StreamResults {
		streamsOut = append(streamsOut, map[string]any{
			"streamId":   sr.StreamID,
			"streamType": sr.StreamType,
			"conclusion": sr.Conclusion,
			"confidence": sr.Confidence,
			"status":     sr.Status,
		})
	}
	conflictsOut := make([]map[string]any, 0, len(s.Conflicts))
	for _, c := range s.Conflicts {
		conflictsOut = append(conflictsOut, map[string]any{
			"id":            c.ID,
			"type":          c.Type,
			"severity":      c.Severity,
			"sourceStreams": c.SourceStreams,
			"description":   c.Description,
		})
	}
	return map[string]any{
		"sessionId":         sessionID,
		"streams":           streamsOut,
		"synthesis":         thinkSynthesisDTO(s),
		"conflictsResolved": conflictsOut,
		"coordinationMetrics": map[string]any{
			"sync25":             metrics.Sync25.Milliseconds(),
			"sync50":             metrics.Sync50.Milliseconds(),
			"sync75":             metrics.Sync75.Milliseconds(),
			"totalCoordinationTime": metrics.TotalCoordination.Milliseconds(),
			"overheadPercentage": metrics.OverheadPercentage,
		},
	}
}

func thinkSynthesisDTO(s domain.SynthesizedResult) map[string]any {
	insights := make([]map[string]any, 0, len(s.Insights))
	for _, ins := range s.Insights {
		insights = append(insights, map[string]any{
			"content":    ins.Content,
			"confidence": ins.Confidence,
			"importance": ins.Importance,
			"sources":    ins.Sources,
		})
	}
	recs := make([]map[string]any, 0, len(s.Recommendations))
	for _, rec := range s.Recommendations {
		recs = append(recs, map[string]any{"text": rec.Text, "priority": rec.Priority, "confidence": rec.Confidence})
	}
	return map[string]any{
		"conclusion":      s.Conclusion,
		"insights":        insights,
		"recommendations": recs,
		"confidence":      s.Confidence,
		"quality": map[string]any{
			"coherence":    s.Quality.Coherence,
			"completeness": s.Quality.Completeness,
			"consistency":  s.Quality.Consistency,
			"overall":      s.Quality.Overall,
		},
	}
}

// Stream handles GET /reasoning/parallel/:sessionId/stream (SSE).
func (h *ReasoningHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	if _, ok := h.Sessions.Get(id); !ok {
		RespondNotFound(w, "unknown session")
		return
	}
	h.Hub.Subscribe(id, w, r)
}

// Live handles GET /reasoning/live/:streamId (SSE) — a per-stream relay of
// the same event channel, keyed by stream id instead of session id.
func (h *ReasoningHandler) Live(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "streamId")
	h.Hub.Subscribe(id, w, r)
}

// Chain handles GET /reasoning/chain/:sessionId.
func (h *ReasoningHandler) Chain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	sess, ok := h.Sessions.Get(id)
	if !ok {
		RespondNotFound(w, "unknown session")
		return
	}

	steps := make([]map[string]any, 0)
	confidenceEvolution := make([]float64, 0)
	if sess.Result != nil {
		for _, sr := range sess.Result.StreamResults {
			steps = append(steps, map[string]any{
				"streamType": sr.StreamType,
				"reasoning":  sr.Reasoning,
				"conclusion": sr.Conclusion,
				"confidence": sr.Confidence,
			})
			confidenceEvolution = append(confidenceEvolution, sr.Confidence)
		}
	}

	RespondOK(w, r, time.Now(), map[string]any{
		"chainId":             sess.ID,
		"steps":               steps,
		"branches":            []string{},
		"confidenceEvolution": confidenceEvolution,
		"decisionPoints":      []string{},
	})
}
