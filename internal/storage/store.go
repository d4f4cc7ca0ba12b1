// Package storage is the relational cache (C1): idempotent upserts,
// windowed reads, and atomic snapshot replacement on top of Postgres.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/snapshot-engine/pkg/logger"
)

// Store wraps a pgxpool.Pool and owns every read/write of the five
// tables in §3 plus the job_log audit table.
// ⭐ SSOT: snapshot 엔진의 영속 계층은 이 패키지에서만
type Store struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// New builds a Store and runs ensureSchema so the tables/columns this
// engine needs exist before any caller reads or writes.
func New(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) (*Store, error) {
	s := &Store{pool: pool, logger: log}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}
