package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// Consolidate commits ConsolidationEngine.Consolidate's full transactional
// unit: the summary memory, a bidirectional consolidation link from every
// member to the summary, each member's strength reduction, each member's
// ConsolidatedInto pointer, and the audit row — in one transaction.
func (s *Store) Consolidate(ctx context.Context, summary domain.Memory, cluster domain.MemoryCluster, reductionFactor float64, record domain.ConsolidationRecord) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO memories (id, user_id, session_id, content, primary_sector, salience, strength, access_count, created_at, last_accessed_at, embedding_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $8, $9)`,
		summary.ID, summary.UserID, summary.SessionID, summary.Content, summary.PrimarySector, summary.Salience, summary.Strength, summary.CreatedAt, summary.EmbeddingStatus,
	); err != nil {
		return err
	}

	for _, memberID := range cluster.MemberIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO memory_links (source_id, target_id, kind, weight) VALUES ($1, $2, $3, 1.0) ON CONFLICT DO NOTHING`,
			memberID, summary.ID, domain.LinkKindConsolidation,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO memory_links (source_id, target_id, kind, weight) VALUES ($1, $2, $3, 1.0) ON CONFLICT DO NOTHING`,
			summary.ID, memberID, domain.LinkKindConsolidation,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE memories SET strength = strength * $1, consolidated_into = $2 WHERE id = $3`,
			reductionFactor, summary.ID, memberID,
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO consolidation_history (summary_id, source_ids, topic, created_at)
		 VALUES ($1, $2, $3, $4)`,
		record.SummaryID, record.SourceIDs, record.Topic, record.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
