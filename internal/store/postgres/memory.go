package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Harshitk-cp/engram/internal/domain"
)

func (s *Store) Create(ctx context.Context, m *domain.Memory) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO memories (id, user_id, session_id, content, primary_sector, salience, strength, decay_rate, access_count, created_at, last_accessed_at, consolidated_into, embedding_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), $10, $11)
		 RETURNING created_at, last_accessed_at`,
		m.ID, m.UserID, m.SessionID, m.Content, m.PrimarySector, m.Salience, m.Strength, m.DecayRate, m.AccessCount, m.ConsolidatedInto, m.EmbeddingStatus,
	).Scan(&m.CreatedAt, &m.LastAccessedAt)
}

const memorySelectColumns = `id, user_id, session_id, content, primary_sector, salience, strength, decay_rate, access_count, created_at, last_accessed_at, consolidated_into, embedding_status`

func scanMemory(row pgx.Row) (*domain.Memory, error) {
	m := &domain.Memory{}
	err := row.Scan(&m.ID, &m.UserID, &m.SessionID, &m.Content, &m.PrimarySector, &m.Salience, &m.Strength, &m.DecayRate, &m.AccessCount, &m.CreatedAt, &m.LastAccessedAt, &m.ConsolidatedInto, &m.EmbeddingStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	row := s.db.QueryRow(ctx, `SELECT `+memorySelectColumns+` FROM memories WHERE id = $1`, id)
	return scanMemory(row)
}

func (s *Store) Update(ctx context.Context, m *domain.Memory) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memories SET content = $1, primary_sector = $2, salience = $3, strength = $4, decay_rate = $5,
		 access_count = $6, last_accessed_at = $7, consolidated_into = $8, embedding_status = $9
		 WHERE id = $10`,
		m.Content, m.PrimarySector, m.Salience, m.Strength, m.DecayRate, m.AccessCount, m.LastAccessedAt, m.ConsolidatedInto, m.EmbeddingStatus, m.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Memory, error) {
	rows, err := s.db.Query(ctx, `SELECT `+memorySelectColumns+` FROM memories WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *Store) ListBySector(ctx context.Context, userID uuid.UUID, sector domain.Sector, limit int) ([]domain.Memory, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+memorySelectColumns+` FROM memories WHERE user_id = $1 AND primary_sector = $2 ORDER BY created_at DESC LIMIT $3`,
		userID, sector, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *Store) ListEpisodicUnconsolidated(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Memory, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+memorySelectColumns+` FROM memories
		 WHERE user_id = $1 AND primary_sector = $2 AND consolidated_into IS NULL
		 ORDER BY created_at ASC LIMIT $3`,
		userID, domain.SectorEpisodic, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

func scanMemories(rows pgx.Rows) ([]domain.Memory, error) {
	var out []domain.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *Store) CountBySector(ctx context.Context, userID uuid.UUID) (map[domain.Sector]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT primary_sector, COUNT(*) FROM memories WHERE user_id = $1 GROUP BY primary_sector`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Sector]int)
	for _, sector := range domain.AllSectors {
		counts[sector] = 0
	}
	for rows.Next() {
		var sector domain.Sector
		var n int
		if err := rows.Scan(&sector, &n); err != nil {
			return nil, err
		}
		counts[sector] = n
	}
	return counts, rows.Err()
}

func (s *Store) CountByAgeBuckets(ctx context.Context, userID uuid.UUID, now time.Time) (recent, week, month, older int, err error) {
	err = s.db.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE created_at >= $2 - interval '1 day'),
		   COUNT(*) FILTER (WHERE created_at >= $2 - interval '7 days' AND created_at < $2 - interval '1 day'),
		   COUNT(*) FILTER (WHERE created_at >= $2 - interval '30 days' AND created_at < $2 - interval '7 days'),
		   COUNT(*) FILTER (WHERE created_at < $2 - interval '30 days')
		 FROM memories WHERE user_id = $1`,
		userID, now,
	).Scan(&recent, &week, &month, &older)
	return
}

func (s *Store) SizeOf(ctx context.Context, ids []uuid.UUID) (contentBytes int64, embeddingBytes int64, err error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}
	err = s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(octet_length(content)), 0) FROM memories WHERE id = ANY($1)`,
		ids,
	).Scan(&contentBytes)
	if err != nil {
		return 0, 0, err
	}
	err = s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(dimension * 4), 0) FROM memory_embeddings WHERE memory_id = ANY($1)`,
		ids,
	).Scan(&embeddingBytes)
	return contentBytes, embeddingBytes, err
}

func (s *Store) ListDistinctUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT user_id FROM memories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
