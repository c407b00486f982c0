// Package postgres implements every domain store interface against a
// pgx/pgvector-backed Postgres schema: memories, memory_embeddings,
// memory_links, memory_metadata, memory_tag_associations,
// consolidation_history, schema_migrations.
//
// Grounded on the teacher's internal/store/memory.go query style (explicit
// SQL, no query builder, pgx.ErrNoRows -> domain.ErrNotFound translation,
// pgvector's `<=>` cosine-distance operator), extended with pgx.Tx-scoped
// transactional methods (Prune, Consolidate, ArchiveMemories, Restore) the
// teacher's store layer never needed.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements domain.MemoryStore, domain.EmbeddingStore, and
// domain.LinkStore against a single connection pool.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}
