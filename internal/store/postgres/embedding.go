package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// Upsert grounds on the teacher's single-embedding-column Create, split into
// its own table since a memory can carry more than one sector's vector.
func (s *Store) Upsert(ctx context.Context, e domain.Embedding) error {
	vec := pgvector.NewVector(e.Vector)
	_, err := s.db.Exec(ctx,
		`INSERT INTO memory_embeddings (memory_id, sector, embedding, dimension)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (memory_id, sector) DO UPDATE SET embedding = EXCLUDED.embedding, dimension = EXCLUDED.dimension`,
		e.MemoryID, e.Sector, vec, e.Dimension,
	)
	return err
}

func (s *Store) Get(ctx context.Context, memoryID uuid.UUID, sector domain.Sector) (*domain.Embedding, error) {
	var vec pgvector.Vector
	e := &domain.Embedding{MemoryID: memoryID, Sector: sector}
	err := s.db.QueryRow(ctx,
		`SELECT embedding, dimension FROM memory_embeddings WHERE memory_id = $1 AND sector = $2`,
		memoryID, sector,
	).Scan(&vec, &e.Dimension)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	e.Vector = vec.Slice()
	return e, nil
}

// FindSimilar ranks a user's memories in one sector by pgvector's cosine
// distance operator, grounded on the teacher's Recall query.
func (s *Store) FindSimilar(ctx context.Context, userID uuid.UUID, vector []float32, sector domain.Sector, limit int) ([]uuid.UUID, []float64, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(vector)
	rows, err := s.db.Query(ctx,
		`SELECT e.memory_id, 1 - (e.embedding <=> $1) AS score
		 FROM memory_embeddings e
		 JOIN memories m ON m.id = e.memory_id
		 WHERE m.user_id = $2 AND e.sector = $3 AND m.consolidated_into IS NULL
		 ORDER BY e.embedding <=> $1
		 LIMIT $4`,
		vec, userID, sector, limit,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	var scores []float64
	for rows.Next() {
		var id uuid.UUID
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		scores = append(scores, score)
	}
	return ids, scores, rows.Err()
}
