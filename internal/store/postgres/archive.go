package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// ArchiveMemories moves a batch of active memories into archived_memories,
// optionally carrying their semantic embedding along, then deletes the
// active rows and everything referencing them — one transaction, grounded
// on the pack's BeginTx/defer-Rollback/Commit idiom.
func (s *Store) ArchiveMemories(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, cfg domain.ArchiveConfig) (domain.ArchiveResult, error) {
	if len(ids) == 0 {
		return domain.ArchiveResult{Timestamp: time.Now()}, nil
	}

	contentBytes, embeddingBytes, err := s.SizeOf(ctx, ids)
	if err != nil {
		return domain.ArchiveResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.ArchiveResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if cfg.RetainEmbeddings {
		if _, err := tx.Exec(ctx,
			`INSERT INTO archived_memories (id, user_id, session_id, content, primary_sector, salience, strength, access_count, original_created_at, archived_at, embedding, embedding_dimension)
			 SELECT m.id, m.user_id, m.session_id, m.content, m.primary_sector, m.salience, m.strength, m.access_count, m.created_at, NOW(), e.embedding, e.dimension
			 FROM memories m
			 LEFT JOIN memory_embeddings e ON e.memory_id = m.id AND e.sector = m.primary_sector
			 WHERE m.id = ANY($1) AND m.user_id = $2
			 ON CONFLICT (id) DO NOTHING`,
			ids, userID,
		); err != nil {
			return domain.ArchiveResult{}, err
		}
	} else {
		if _, err := tx.Exec(ctx,
			`INSERT INTO archived_memories (id, user_id, session_id, content, primary_sector, salience, strength, access_count, original_created_at, archived_at)
			 SELECT id, user_id, session_id, content, primary_sector, salience, strength, access_count, created_at, NOW()
			 FROM memories WHERE id = ANY($1) AND user_id = $2
			 ON CONFLICT (id) DO NOTHING`,
			ids, userID,
		); err != nil {
			return domain.ArchiveResult{}, err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM memory_links WHERE source_id = ANY($1) OR target_id = ANY($1)`, ids); err != nil {
		return domain.ArchiveResult{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM memory_embeddings WHERE memory_id = ANY($1)`, ids); err != nil {
		return domain.ArchiveResult{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM memory_metadata WHERE memory_id = ANY($1)`, ids); err != nil {
		return domain.ArchiveResult{}, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM memories WHERE id = ANY($1) AND user_id = $2`, ids, userID)
	if err != nil {
		return domain.ArchiveResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ArchiveResult{}, err
	}

	return domain.ArchiveResult{
		ArchivedCount: int(tag.RowsAffected()),
		FreedBytes:    contentBytes + embeddingBytes,
		Timestamp:     time.Now(),
	}, nil
}

// Restore re-creates an active memory from its archived row and removes the
// archive row, inside one transaction.
func (s *Store) Restore(ctx context.Context, userID uuid.UUID, memoryID uuid.UUID) (domain.RestoreResult, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.RestoreResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		sessionID     *uuid.UUID
		content       string
		sector        domain.Sector
		salience      float64
		strength      float64
		accessCount   int
		createdAt     time.Time
		vec           *pgvector.Vector
		dim           *int
	)
	err = tx.QueryRow(ctx,
		`SELECT session_id, content, primary_sector, salience, strength, access_count, original_created_at, embedding, embedding_dimension
		 FROM archived_memories WHERE id = $1 AND user_id = $2`,
		memoryID, userID,
	).Scan(&sessionID, &content, &sector, &salience, &strength, &accessCount, &createdAt, &vec, &dim)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RestoreResult{}, domain.ErrNotFoundInArchive
		}
		return domain.RestoreResult{}, err
	}

	embStatus := domain.EmbeddingPending
	if vec != nil {
		embStatus = domain.EmbeddingComplete
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO memories (id, user_id, session_id, content, primary_sector, salience, strength, access_count, created_at, last_accessed_at, embedding_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), $10)`,
		memoryID, userID, sessionID, content, sector, salience, strength, accessCount, createdAt, embStatus,
	); err != nil {
		return domain.RestoreResult{}, err
	}
	if vec != nil && dim != nil {
		if _, err := tx.Exec(ctx,
			`INSERT INTO memory_embeddings (memory_id, sector, embedding, dimension) VALUES ($1, $2, $3, $4)`,
			memoryID, sector, *vec, *dim,
		); err != nil {
			return domain.RestoreResult{}, err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM archived_memories WHERE id = $1 AND user_id = $2`, memoryID, userID); err != nil {
		return domain.RestoreResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.RestoreResult{}, err
	}
	return domain.RestoreResult{RestoredCount: 1, MemoryID: memoryID, Timestamp: time.Now()}, nil
}

func (s *Store) GetArchiveStats(ctx context.Context, userID uuid.UUID) (domain.ArchiveStats, error) {
	var stats domain.ArchiveStats
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(octet_length(content) + COALESCE(embedding_dimension, 0) * 4), 0)
		 FROM archived_memories WHERE user_id = $1`,
		userID,
	).Scan(&stats.Count, &stats.BytesUsed)
	return stats, err
}

func (s *Store) SearchArchive(ctx context.Context, userID uuid.UUID, query string) ([]domain.ArchivedMemory, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, session_id, content, primary_sector, salience, strength, access_count, original_created_at, archived_at
		 FROM archived_memories WHERE user_id = $1 AND content ILIKE '%' || $2 || '%'
		 ORDER BY archived_at DESC`,
		userID, query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ArchivedMemory
	for rows.Next() {
		var m domain.ArchivedMemory
		if err := rows.Scan(&m.ID, &m.UserID, &m.SessionID, &m.Content, &m.PrimarySector, &m.Salience, &m.Strength, &m.AccessCount, &m.OriginalCreatedAt, &m.ArchivedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetArchived(ctx context.Context, userID uuid.UUID, memoryID uuid.UUID) (*domain.ArchivedMemory, error) {
	m := &domain.ArchivedMemory{}
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, session_id, content, primary_sector, salience, strength, access_count, original_created_at, archived_at
		 FROM archived_memories WHERE id = $1 AND user_id = $2`,
		memoryID, userID,
	).Scan(&m.ID, &m.UserID, &m.SessionID, &m.Content, &m.PrimarySector, &m.Salience, &m.Strength, &m.AccessCount, &m.OriginalCreatedAt, &m.ArchivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFoundInArchive
		}
		return nil, err
	}
	return m, nil
}
