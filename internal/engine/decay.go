// Package engine implements the memory lifecycle subsystem: decay,
// reinforcement, pruning, archival, consolidation, scheduling, and health
// reporting. It is grounded on the teacher's internal/service package but
// generalized from the teacher's episode/procedure/schema vocabulary to the
// single-Memory-entity model in internal/domain.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/domain"
	"github.com/Harshitk-cp/engram/internal/sectorconfig"
)

const hoursPerDay = 24.0

// DecayEngine owns the pure-math decay/reinforcement formulas and the
// maintenance-run coordinator that applies them in bulk.
type DecayEngine struct {
	store  domain.MemoryStore
	config *sectorconfig.Config
	logger *zap.Logger
}

func NewDecayEngine(store domain.MemoryStore, config *sectorconfig.Config, logger *zap.Logger) *DecayEngine {
	return &DecayEngine{store: store, config: config, logger: logger}
}

// DecayedStrength computes the decayed strength of m as of now, without
// writing anything back. A future LastAccessedAt (clock skew, or a memory
// just created ahead of "now" in a test) clamps to the original strength
// rather than projecting negative age.
func (e *DecayEngine) DecayedStrength(m domain.Memory, now time.Time) (float64, error) {
	if now.Before(m.LastAccessedAt) {
		return m.Strength, nil
	}
	lambda, err := e.effectiveLambda(m)
	if err != nil {
		return 0, err
	}
	cfg := e.config.Get()
	ageDays := now.Sub(m.LastAccessedAt).Hours() / hoursPerDay
	decayed := m.Strength * math.Exp(-lambda*ageDays)
	if decayed < cfg.MinimumStrength {
		decayed = cfg.MinimumStrength
	}
	return decayed, nil
}

func (e *DecayEngine) effectiveLambda(m domain.Memory) (float64, error) {
	if m.DecayRate != nil {
		return *m.DecayRate, nil
	}
	return e.config.EffectiveDecayRate(m.PrimarySector)
}

// ApplyDecay loads, recomputes, and writes back a single memory's strength.
// Recomputing twice within the same wall-clock tick is a no-op because
// DecayedStrength is a pure function of (strength, lastAccessedAt, now).
func (e *DecayEngine) ApplyDecay(ctx context.Context, memoryID uuid.UUID) error {
	m, err := e.store.GetByID(ctx, memoryID)
	if err != nil {
		return err
	}
	now := time.Now()
	decayed, err := e.DecayedStrength(*m, now)
	if err != nil {
		return err
	}
	return e.store.UpdateReinforcement(ctx, memoryID, decayed, m.AccessCount, m.LastAccessedAt)
}

// IDResult is the per-id outcome reported by BatchApplyDecay.
type IDResult struct {
	MemoryID uuid.UUID
	Err      error
}

// BatchApplyDecay recomputes and writes strength for every id, one store
// call per id. A failure on one id is recorded in that id's IDResult and the
// remaining ids still proceed. The writes are not grouped into a
// transaction: strengths already written stay written when a later id fails.
func (e *DecayEngine) BatchApplyDecay(ctx context.Context, ids []uuid.UUID) ([]IDResult, error) {
	results := make([]IDResult, 0, len(ids))
	now := time.Now()
	for _, id := range ids {
		m, err := e.store.GetByID(ctx, id)
		if err != nil {
			results = append(results, IDResult{MemoryID: id, Err: err})
			continue
		}
		decayed, err := e.DecayedStrength(*m, now)
		if err != nil {
			results = append(results, IDResult{MemoryID: id, Err: err})
			continue
		}
		if err := e.store.UpdateReinforcement(ctx, id, decayed, m.AccessCount, m.LastAccessedAt); err != nil {
			results = append(results, IDResult{MemoryID: id, Err: err})
			continue
		}
		results = append(results, IDResult{MemoryID: id})
	}
	return results, nil
}

// Reinforce boosts a memory's strength by an explicit amount and records the
// reinforcement in history. New strength is clipped at 1.
func (e *DecayEngine) Reinforce(ctx context.Context, memoryID uuid.UUID, boost float64) (float64, error) {
	return e.reinforce(ctx, memoryID, domain.ReinforcementExplicit, boost)
}

// AutoReinforceOnAccess applies the sector's default access-boost, but only
// when the memory isn't already at full strength.
func (e *DecayEngine) AutoReinforceOnAccess(ctx context.Context, memoryID uuid.UUID) error {
	m, err := e.store.GetByID(ctx, memoryID)
	if err != nil {
		return err
	}
	if m.Strength >= 1 {
		return e.store.UpdateReinforcement(ctx, memoryID, m.Strength, m.AccessCount+1, time.Now())
	}
	_, err = e.reinforceLoaded(ctx, m, domain.ReinforcementAccess, e.config.Get().ReinforcementBoost, true)
	return err
}

// ReinforceByType dispatches on the reinforcement type: Access uses the
// configured access boost, Explicit requires an explicit boost value,
// Importance uses a larger configured boost (2x the base reinforcement
// boost, matching the "larger" relationship the spec names without pinning
// an exact multiplier).
func (e *DecayEngine) ReinforceByType(ctx context.Context, memoryID uuid.UUID, rt domain.ReinforcementType, boost *float64) (float64, error) {
	cfg := e.config.Get()
	switch rt {
	case domain.ReinforcementAccess:
		return e.reinforce(ctx, memoryID, rt, cfg.ReinforcementBoost)
	case domain.ReinforcementExplicit:
		if boost == nil {
			return 0, domain.NewError(domain.CodeInvalidArgument, "explicit reinforcement requires a boost value")
		}
		return e.reinforce(ctx, memoryID, rt, *boost)
	case domain.ReinforcementImportance:
		return e.reinforce(ctx, memoryID, rt, cfg.ReinforcementBoost*2)
	default:
		return 0, domain.NewError(domain.CodeInvalidArgument, "unknown reinforcement type")
	}
}

func (e *DecayEngine) reinforce(ctx context.Context, memoryID uuid.UUID, rt domain.ReinforcementType, boost float64) (float64, error) {
	m, err := e.store.GetByID(ctx, memoryID)
	if err != nil {
		return 0, err
	}
	return e.reinforceLoaded(ctx, m, rt, boost, rt == domain.ReinforcementAccess)
}

func (e *DecayEngine) reinforceLoaded(ctx context.Context, m *domain.Memory, rt domain.ReinforcementType, boost float64, incrementAccess bool) (float64, error) {
	before := m.Strength
	after := math.Min(1, before+boost)
	accessCount := m.AccessCount
	if incrementAccess {
		accessCount++
	}
	now := time.Now()
	if err := e.store.UpdateReinforcement(ctx, m.ID, after, accessCount, now); err != nil {
		return 0, err
	}
	entry := domain.ReinforcementHistoryEntry{
		MemoryID:       m.ID,
		Timestamp:      now,
		Type:           rt,
		Boost:          boost,
		StrengthBefore: before,
		StrengthAfter:  after,
	}
	if err := e.store.AppendReinforcementHistory(ctx, entry); err != nil {
		e.logger.Warn("failed to append reinforcement history", zap.Error(err), zap.String("memory_id", m.ID.String()))
	}
	return after, nil
}

// MaintenanceResult is returned by RunMaintenance.
type MaintenanceResult struct {
	Processed      int
	Pruned         int
	ProcessingTime time.Duration
	Errors         []error
}

// MaintenanceOptions configures one RunMaintenance call.
type MaintenanceOptions struct {
	Prune  bool
	Pruner interface {
		PruneAllCandidates(ctx context.Context, userID uuid.UUID, criteria domain.PruneCriteria) (domain.PruneResult, error)
	}
	PruneCriteria domain.PruneCriteria
}

// RunMaintenance decays every memory for a user and, if requested, runs the
// pruner over the result. Per-memory errors are collected rather than
// aborting the run; only infrastructure failure (the initial list load)
// surfaces as a returned error.
func (e *DecayEngine) RunMaintenance(ctx context.Context, userID uuid.UUID, opts MaintenanceOptions) (MaintenanceResult, error) {
	start := time.Now()
	memories, err := e.store.ListByUser(ctx, userID)
	if err != nil {
		return MaintenanceResult{}, domain.WrapError(domain.CodeMaintenanceError, "failed to list memories for maintenance", err)
	}

	result := MaintenanceResult{}
	ids := make([]uuid.UUID, 0, len(memories))
	for _, m := range memories {
		ids = append(ids, m.ID)
	}
	decayResults, _ := e.BatchApplyDecay(ctx, ids)
	for _, r := range decayResults {
		result.Processed++
		if r.Err != nil {
			result.Errors = append(result.Errors, r.Err)
		}
	}

	if opts.Prune && opts.Pruner != nil {
		pr, err := opts.Pruner.PruneAllCandidates(ctx, userID, opts.PruneCriteria)
		if err != nil {
			result.Errors = append(result.Errors, err)
		} else {
			result.Pruned = pr.DeletedCount
		}
	}

	result.ProcessingTime = time.Since(start)
	return result, nil
}
