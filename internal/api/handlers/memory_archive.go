// Package handlers implements the HTTP request handlers for the memory
// lifecycle and reasoning facade, grounded on the teacher's
// internal/api/handlers package (thin request-decode/service-call/envelope
// structure).
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Harshitk-cp/engram/internal/config"
	"github.com/Harshitk-cp/engram/internal/domain"
	"github.com/Harshitk-cp/engram/internal/engine"
)

// ArchiveHandler serves the /memory/archive endpoint group.
type ArchiveHandler struct {
	Manager *engine.ArchiveManager
}

func NewArchiveHandler(archive *engine.ArchiveManager) *ArchiveHandler {
	return &ArchiveHandler{Manager: archive}
}

type archiveRequest struct {
	UserID           uuid.UUID   `json:"userId"`
	MemoryIDs        []uuid.UUID `json:"memoryIds,omitempty"`
	AgeThresholdDays *int        `json:"ageThresholdDays,omitempty"`
	RetainEmbeddings bool        `json:"retainEmbeddings"`
}

// Archive handles POST /memory/archive.
func (h *ArchiveHandler) Archive(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondValidationError(w, "invalid request body")
		return
	}
	if req.UserID == uuid.Nil {
		RespondValidationError(w, "userId is required")
		return
	}

	cfg := domain.ArchiveConfig{RetainEmbeddings: req.RetainEmbeddings, AgeThresholdDays: config.ArchiveAgeDays()}
	if req.AgeThresholdDays != nil {
		cfg.AgeThresholdDays = *req.AgeThresholdDays
	}

	var (
		result domain.ArchiveResult
		err    error
	)
	if len(req.MemoryIDs) > 0 {
		result, err = h.Manager.ArchiveMemories(r.Context(), req.UserID, req.MemoryIDs, cfg)
	} else {
		result, err = h.Manager.ArchiveOld(r.Context(), req.UserID, cfg)
	}
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondOK(w, r, started, map[string]any{
		"archivedCount": result.ArchivedCount,
		"freedBytes":    result.FreedBytes,
		"timestamp":     result.Timestamp,
	})
}

// Search handles GET /memory/archive/search?userId&query.
func (h *ArchiveHandler) Search(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		RespondValidationError(w, "userId is required and must be a UUID")
		return
	}
	query := r.URL.Query().Get("query")

	memories, err := h.Manager.SearchArchive(r.Context(), userID, query)
	if err != nil {
		RespondError(w, err)
		return
	}

	out := make([]archivedMemoryDTO, 0, len(memories))
	for _, m := range memories {
		out = append(out, archivedMemoryDTO{
			ID:                m.ID,
			UserID:            m.UserID,
			Content:           m.Content,
			PrimarySector:     string(m.PrimarySector),
			Salience:          m.Salience,
			Strength:          m.Strength,
			AccessCount:       m.AccessCount,
			OriginalCreatedAt: m.OriginalCreatedAt,
			ArchivedAt:        m.ArchivedAt,
			IsArchived:        true,
		})
	}

	RespondOK(w, r, started, map[string]any{
		"memories": out,
		"count":    len(out),
		"query":    query,
	})
}

type archivedMemoryDTO struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"userId"`
	Content           string    `json:"content"`
	PrimarySector     string    `json:"primarySector"`
	Salience          float64   `json:"salience"`
	Strength          float64   `json:"strength"`
	AccessCount       int       `json:"accessCount"`
	OriginalCreatedAt time.Time `json:"originalCreatedAt"`
	ArchivedAt        time.Time `json:"archivedAt"`
	IsArchived        bool      `json:"isArchived"`
}

type restoreRequest struct {
	UserID   uuid.UUID `json:"userId"`
	MemoryID uuid.UUID `json:"memoryId"`
}

// Restore handles POST /memory/archive/restore.
func (h *ArchiveHandler) Restore(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondValidationError(w, "invalid request body")
		return
	}
	if req.UserID == uuid.Nil || req.MemoryID == uuid.Nil {
		RespondValidationError(w, "userId and memoryId are required")
		return
	}

	result, err := h.Manager.Restore(r.Context(), req.UserID, req.MemoryID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondOK(w, r, started, map[string]any{
		"restoredCount": result.RestoredCount,
		"timestamp":     result.Timestamp,
		"memoryId":      result.MemoryID,
	})
}

// Stats handles GET /memory/archive/stats?userId.
func (h *ArchiveHandler) Stats(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		RespondValidationError(w, "userId is required and must be a UUID")
		return
	}

	stats, err := h.Manager.GetArchiveStats(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondOK(w, r, started, map[string]any{
		"count":     stats.Count,
		"bytesUsed": stats.BytesUsed,
	})
}
