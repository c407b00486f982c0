package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// PruningService identifies low-value memories and removes them along with
// every link, embedding, metadata row, and tag association that references
// them.
type PruningService struct {
	store  domain.MemoryStore
	logger *zap.Logger
}

func NewPruningService(store domain.MemoryStore, logger *zap.Logger) *PruningService {
	return &PruningService{store: store, logger: logger}
}

func validateCriteria(c domain.PruneCriteria) error {
	if c.MinStrength < 0 || c.MinStrength > 1 {
		return domain.NewError(domain.CodeValidationError, "minStrength must be in [0,1]")
	}
	if c.MaxAgeDays < 0 {
		return domain.NewError(domain.CodeValidationError, "maxAgeDays must be >= 0")
	}
	if c.MinAccessCount < 0 {
		return domain.NewError(domain.CodeValidationError, "minAccessCount must be >= 0")
	}
	return nil
}

// ListCandidates returns pruning candidates ordered by reason precedence
// (low_strength > old_age > low_access), then ascending strength, then
// ascending creation time.
func (p *PruningService) ListCandidates(ctx context.Context, userID uuid.UUID, criteria domain.PruneCriteria) ([]domain.PruneCandidate, error) {
	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}
	candidates, err := p.store.ListForgettingCandidates(ctx, userID, criteria, time.Now())
	if err != nil {
		return nil, err
	}

	precedence := map[domain.PruneReason]int{
		domain.ReasonLowStrength: 0,
		domain.ReasonOldAge:      1,
		domain.ReasonLowAccess:   2,
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if precedence[a.Reason] != precedence[b.Reason] {
			return precedence[a.Reason] < precedence[b.Reason]
		}
		if a.Strength != b.Strength {
			return a.Strength < b.Strength
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return candidates, nil
}

// PreviewPruning computes what Prune would do without mutating anything.
func (p *PruningService) PreviewPruning(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (domain.PruneResult, error) {
	if len(ids) == 0 {
		return domain.PruneResult{}, nil
	}
	contentBytes, embeddingBytes, err := p.store.SizeOf(ctx, ids)
	if err != nil {
		return domain.PruneResult{}, domain.WrapError(domain.CodePreviewPruningError, "failed to size memories", err)
	}
	linkCount, err := p.linkStore().CountTouching(ctx, ids)
	if err != nil {
		return domain.PruneResult{}, domain.WrapError(domain.CodePreviewPruningError, "failed to count links", err)
	}
	return domain.PruneResult{
		DeletedCount:         len(ids),
		FreedBytes:           contentBytes + embeddingBytes,
		OrphanedLinksRemoved: linkCount,
	}, nil
}

// linkStore lets PruningService count links without requiring every
// MemoryStore implementation (including fakes used only for decay tests) to
// also be a LinkStore; the postgres store satisfies both.
func (p *PruningService) linkStore() domain.LinkStore {
	if ls, ok := p.store.(domain.LinkStore); ok {
		return ls
	}
	return noopLinkStore{}
}

type noopLinkStore struct{}

func (noopLinkStore) CreateLink(context.Context, domain.MemoryLink) error { return nil }
func (noopLinkStore) CountTouching(context.Context, []uuid.UUID) (int, error) {
	return 0, nil
}
func (noopLinkStore) DeleteTouching(context.Context, []uuid.UUID) (int, error) {
	return 0, nil
}

// Prune deletes the given memories and all referencing rows inside a single
// transaction at the store layer. Empty ids short-circuits without opening a
// transaction.
func (p *PruningService) Prune(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (domain.PruneResult, error) {
	if len(ids) == 0 {
		return domain.PruneResult{}, nil
	}
	result, err := p.store.Prune(ctx, userID, ids)
	if err != nil {
		return domain.PruneResult{}, domain.WrapError(domain.CodePruneError, "failed to prune memories", err)
	}
	return result, nil
}

// PruneAllCandidates lists candidates under criteria and prunes them in one
// call; an empty candidate list is a no-op.
func (p *PruningService) PruneAllCandidates(ctx context.Context, userID uuid.UUID, criteria domain.PruneCriteria) (domain.PruneResult, error) {
	candidates, err := p.ListCandidates(ctx, userID, criteria)
	if err != nil {
		return domain.PruneResult{}, err
	}
	if len(candidates) == 0 {
		return domain.PruneResult{}, nil
	}
	ids := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.MemoryID
	}
	return p.Prune(ctx, userID, ids)
}
