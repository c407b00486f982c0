package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/llm"
	"github.com/Harshitk-cp/engram/internal/reasoning"
	"github.com/Harshitk-cp/engram/internal/session"
)

func newTestThinkHandler() *ThinkHandler {
	coordinator := reasoning.NewStreamCoordinator(reasoning.NewSynthesizer(), reasoning.NewConflictResolutionEngine())
	sessions := session.NewStore(time.Minute, zap.NewNop())
	return NewThinkHandler(nil, coordinator, sessions, 5*time.Second)
}

func doThink(h *ThinkHandler, body map[string]any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/think", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	h.Think(rec, req)
	return rec
}

func TestThink_RejectsUnknownMode(t *testing.T) {
	h := newTestThinkHandler()
	rec := doThink(h, map[string]any{"problem": "what should we do", "mode": "nonsense"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThink_RejectsEmptyProblem(t *testing.T) {
	h := newTestThinkHandler()
	rec := doThink(h, map[string]any{"problem": "", "mode": "balanced"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThink_ReturnsSynthesizedConclusion(t *testing.T) {
	h := newTestThinkHandler()
	rec := doThink(h, map[string]any{"problem": "should we launch the feature behind a flag", "mode": "balanced"})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope["success"])
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["conclusion"])
	assert.Contains(t, data, "metacognitiveAssessment")
}

func TestThink_LLMTimeoutProducesRuleBasedFallback(t *testing.T) {
	coordinator := reasoning.NewStreamCoordinator(reasoning.NewSynthesizer(), reasoning.NewConflictResolutionEngine())
	sessions := session.NewStore(time.Minute, zap.NewNop())
	h := NewThinkHandler(llm.NewMockClient(), coordinator, sessions, time.Nanosecond)

	rec := doThink(h, map[string]any{"problem": "should we launch the feature behind a flag", "mode": "balanced"})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)

	assert.Equal(t, 0.3, data["confidence"])
	meta, ok := data["_meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "LLM timeout", meta["reason"])
	recs, ok := data["recommendations"].([]any)
	require.True(t, ok)
	assert.Len(t, recs, 3)
}

func TestThink_StatusReportsUnknownSessionAsNotFound(t *testing.T) {
	h := newTestThinkHandler()

	// Think's response body doesn't carry the session id (that isn't part
	// of the §6 shape), so exercise Status against an id that was never
	// created, confirming it 404s via the envelope helpers.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/think/status/does-not-exist", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionId", "does-not-exist")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	statusRec := httptest.NewRecorder()
	h.Status(statusRec, req)
	assert.Equal(t, http.StatusNotFound, statusRec.Code)
}
