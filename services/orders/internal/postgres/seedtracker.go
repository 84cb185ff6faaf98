package postgres

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt/seed"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedTracker implements seed.Tracker on the applied_seeds table.
type SeedTracker struct {
	pool *pgxpool.Pool
}

func NewSeedTracker(pool *pgxpool.Pool) *SeedTracker {
	return &SeedTracker{pool: pool}
}

func (t *SeedTracker) HasRun(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := t.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM applied_seeds WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("cannot check seed %s: %w", id, err)
	}
	return exists, nil
}

func (t *SeedTracker) MarkRun(ctx context.Context, record seed.Record) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO applied_seeds (id, application, description, applied_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		record.ID, record.Application, record.Description, record.AppliedAt)
	if err != nil {
		return fmt.Errorf("cannot record seed %s: %w", record.ID, err)
	}
	return nil
}
