package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// CreateLink implements domain.LinkStore, grounded on the teacher's plain
// INSERT style; a link that already exists is left unchanged.
func (s *Store) CreateLink(ctx context.Context, link domain.MemoryLink) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO memory_links (source_id, target_id, kind, weight)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT DO NOTHING`,
		link.SourceID, link.TargetID, link.Kind, link.Weight,
	)
	return err
}

func (s *Store) CountTouching(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM memory_links WHERE source_id = ANY($1) OR target_id = ANY($1)`,
		ids,
	).Scan(&n)
	return n, err
}

func (s *Store) DeleteTouching(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx,
		`DELETE FROM memory_links WHERE source_id = ANY($1) OR target_id = ANY($1)`,
		ids,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
