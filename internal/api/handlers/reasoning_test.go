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

	"github.com/Harshitk-cp/engram/internal/reasoning"
	"github.com/Harshitk-cp/engram/internal/session"
)

func reqWithRouteCtx(req *http.Request, rctx *chi.Context) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func newTestReasoningHandler() *ReasoningHandler {
	coordinator := reasoning.NewStreamCoordinator(reasoning.NewSynthesizer(), reasoning.NewConflictResolutionEngine())
	sessions := session.NewStore(time.Minute, zap.NewNop())
	hub := session.NewHub(zap.NewNop())
	return NewReasoningHandler(nil, coordinator, sessions, hub, 5*time.Second)
}

func doParallel(h *ReasoningHandler, body map[string]any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reasoning/parallel", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	h.Parallel(rec, req)
	return rec
}

func TestParallel_RejectsTooFewStreams(t *testing.T) {
	h := newTestReasoningHandler()
	rec := doParallel(h, map[string]any{"problem": "what now", "streams": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParallel_RejectsUnknownStreamType(t *testing.T) {
	h := newTestReasoningHandler()
	rec := doParallel(h, map[string]any{"problem": "what now", "streams": []string{"bogus"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParallel_SyncReturnsSynthesizedResult(t *testing.T) {
	h := newTestReasoningHandler()
	rec := doParallel(h, map[string]any{
		"problem": "should we ship the migration this week",
		"streams": []string{"analytical", "critical"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data := envelope["data"].(map[string]any)
	assert.NotEmpty(t, data["sessionId"])
	streams := data["streams"].([]any)
	assert.Len(t, streams, 2)
	assert.Contains(t, data, "coordinationMetrics")
}

func TestParallel_AsyncReturnsAcceptedWithProcessingStatus(t *testing.T) {
	h := newTestReasoningHandler()
	b, _ := json.Marshal(map[string]any{
		"problem": "should we ship the migration this week",
		"streams": []string{"analytical"},
		"async":   true,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reasoning/parallel", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	h.Parallel(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "processing", data["status"])
	assert.NotEmpty(t, data["sessionId"])
}

func TestChain_ReportsNotFoundForUnknownSession(t *testing.T) {
	h := newTestReasoningHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reasoning/chain/does-not-exist", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionId", "does-not-exist")
	req = reqWithRouteCtx(req, rctx)
	rec := httptest.NewRecorder()
	h.Chain(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStream_ReportsNotFoundForUnknownSession(t *testing.T) {
	h := newTestReasoningHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reasoning/parallel/does-not-exist/stream", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionId", "does-not-exist")
	req = reqWithRouteCtx(req, rctx)
	rec := httptest.NewRecorder()
	h.Stream(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
