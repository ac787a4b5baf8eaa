package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pulsetrack-api/internal/aggregate/core/ports"
)

type Row interface {
	Scan(dest ...any) error
}

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) Row
}

// CursorRepository persists named aggregator offsets as single upserted rows.
type CursorRepository struct {
	db DB
}

func NewCursorRepository(db DB) *CursorRepository {
	return &CursorRepository{db: db}
}

var _ ports.CursorStorePort = (*CursorRepository)(nil)

const loadCursorSQL = `
SELECT offset_id FROM aggregator_cursor WHERE name = $1;
`

// Load returns the stored offset, zero for a cursor never saved.
func (r *CursorRepository) Load(ctx context.Context, name string) (int64, error) {
	var offset int64
	err := r.db.QueryRowContext(ctx, loadCursorSQL, name).Scan(&offset)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return offset, nil
}

const saveCursorSQL = `
INSERT INTO aggregator_cursor (name, offset_id, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE
SET offset_id = EXCLUDED.offset_id, updated_at = now();
`

func (r *CursorRepository) Save(ctx context.Context, name string, offset int64) error {
	_, err := r.db.ExecContext(ctx, saveCursorSQL, name, offset)
	return err
}
