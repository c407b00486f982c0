package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// ListForgettingCandidates applies the precedence-ordered thresholds
// (strength, age, access) a row at a time; PruningService does the final
// sort, this just needs to return the union.
func (s *Store) ListForgettingCandidates(ctx context.Context, userID uuid.UUID, criteria domain.PruneCriteria, now time.Time) ([]domain.PruneCandidate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, strength, created_at,
		        CASE
		          WHEN strength < $2 THEN 'low_strength'
		          WHEN created_at < $4 - ($3 || ' days')::interval THEN 'old_age'
		          ELSE 'low_access'
		        END AS reason
		 FROM memories
		 WHERE user_id = $1 AND consolidated_into IS NULL
		   AND (strength < $2 OR created_at < $4 - ($3 || ' days')::interval OR access_count <= $5)`,
		userID, criteria.MinStrength, criteria.MaxAgeDays, now, criteria.MinAccessCount,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PruneCandidate
	for rows.Next() {
		var c domain.PruneCandidate
		var reason string
		if err := rows.Scan(&c.MemoryID, &c.Strength, &c.CreatedAt, &reason); err != nil {
			return nil, err
		}
		c.Reason = domain.PruneReason(reason)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountForgetting reports the fixed-threshold counts HealthMonitor surfaces.
func (s *Store) CountForgetting(ctx context.Context, userID uuid.UUID, now time.Time) (lowStrength, old, lowAccess, union int, err error) {
	err = s.db.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE strength < 0.1),
		   COUNT(*) FILTER (WHERE created_at < $2 - interval '180 days'),
		   COUNT(*) FILTER (WHERE access_count <= 0),
		   COUNT(*) FILTER (WHERE strength < 0.1 OR created_at < $2 - interval '180 days' OR access_count <= 0)
		 FROM memories WHERE user_id = $1 AND consolidated_into IS NULL`,
		userID, now,
	).Scan(&lowStrength, &old, &lowAccess, &union)
	return
}

// Prune deletes the given memories and every row that references them inside
// a single transaction, grounded on the pack's evolving_memory_store_postgres
// BeginTx/defer-Rollback/Commit pattern.
func (s *Store) Prune(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (domain.PruneResult, error) {
	contentBytes, embeddingBytes, err := s.SizeOf(ctx, ids)
	if err != nil {
		return domain.PruneResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.PruneResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	linkTag, err := tx.Exec(ctx, `DELETE FROM memory_links WHERE source_id = ANY($1) OR target_id = ANY($1)`, ids)
	if err != nil {
		return domain.PruneResult{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM memory_embeddings WHERE memory_id = ANY($1)`, ids); err != nil {
		return domain.PruneResult{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM memory_metadata WHERE memory_id = ANY($1)`, ids); err != nil {
		return domain.PruneResult{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM memory_tag_associations WHERE memory_id = ANY($1)`, ids); err != nil {
		return domain.PruneResult{}, err
	}
	deleteTag, err := tx.Exec(ctx, `DELETE FROM memories WHERE id = ANY($1) AND user_id = $2`, ids, userID)
	if err != nil {
		return domain.PruneResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.PruneResult{}, err
	}

	return domain.PruneResult{
		DeletedCount:         int(deleteTag.RowsAffected()),
		FreedBytes:           contentBytes + embeddingBytes,
		OrphanedLinksRemoved: int(linkTag.RowsAffected()),
	}, nil
}

func (s *Store) UpdateReinforcement(ctx context.Context, id uuid.UUID, strength float64, accessCount int, lastAccessedAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memories SET strength = $1, access_count = $2, last_accessed_at = $3 WHERE id = $4`,
		strength, accessCount, lastAccessedAt, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) AppendReinforcementHistory(ctx context.Context, entry domain.ReinforcementHistoryEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO reinforcement_history (memory_id, occurred_at, type, boost, strength_before, strength_after)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.MemoryID, entry.Timestamp, entry.Type, entry.Boost, entry.StrengthBefore, entry.StrengthAfter,
	)
	return err
}
