package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/domain"
	"github.com/Harshitk-cp/engram/internal/engine"
)

// stubArchiveStore embeds the domain.MemoryStore interface (nil) so it only
// needs to implement the handful of methods ArchiveManager actually calls;
// any unimplemented method panics if exercised, which flags a test gap
// rather than silently returning zero values.
type stubArchiveStore struct {
	domain.MemoryStore
	archived []uuid.UUID
	stats    domain.ArchiveStats
}

func (s *stubArchiveStore) ArchiveMemories(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, cfg domain.ArchiveConfig) (domain.ArchiveResult, error) {
	s.archived = append(s.archived, ids...)
	return domain.ArchiveResult{ArchivedCount: len(ids), Timestamp: time.Now()}, nil
}

func (s *stubArchiveStore) GetArchiveStats(ctx context.Context, userID uuid.UUID) (domain.ArchiveStats, error) {
	return s.stats, nil
}

func newTestArchiveHandler(store *stubArchiveStore) *ArchiveHandler {
	return NewArchiveHandler(engine.NewArchiveManager(store, zap.NewNop()))
}

func TestArchive_RejectsMissingUserID(t *testing.T) {
	h := newTestArchiveHandler(&stubArchiveStore{})
	body, _ := json.Marshal(map[string]any{"memoryIds": []string{uuid.New().String()}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/archive", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Archive(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchive_ArchivesGivenMemoryIDs(t *testing.T) {
	store := &stubArchiveStore{}
	h := newTestArchiveHandler(store)
	userID := uuid.New()
	memID := uuid.New()

	body, _ := json.Marshal(map[string]any{"userId": userID, "memoryIds": []uuid.UUID{memID}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/archive", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Archive(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, store.archived, memID)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data := envelope["data"].(map[string]any)
	assert.EqualValues(t, 1, data["archivedCount"])
}

func TestArchiveStats_RequiresValidUserID(t *testing.T) {
	h := newTestArchiveHandler(&stubArchiveStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/memory/archive/stats?userId=not-a-uuid", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchiveStats_ReturnsCountAndBytes(t *testing.T) {
	store := &stubArchiveStore{stats: domain.ArchiveStats{Count: 3, BytesUsed: 4096}}
	h := newTestArchiveHandler(store)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/memory/archive/stats?userId="+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data := envelope["data"].(map[string]any)
	assert.EqualValues(t, 3, data["count"])
	assert.EqualValues(t, 4096, data["bytesUsed"])
}
