package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

type fakeRow struct {
	offset int64
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.offset
	return nil
}

type fakeDB struct {
	ExecFn     func(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowFn func(ctx context.Context, query string, args ...any) Row

	lastQuery string
	lastArgs  []any
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.lastQuery = query
	f.lastArgs = args
	if f.ExecFn != nil {
		return f.ExecFn(ctx, query, args...)
	}
	return nil, nil
}

func (f *fakeDB) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	f.lastQuery = query
	f.lastArgs = args
	return f.QueryRowFn(ctx, query, args...)
}

func TestCursorRepository_LoadExisting(t *testing.T) {
	db := &fakeDB{
		QueryRowFn: func(ctx context.Context, query string, args ...any) Row {
			return &fakeRow{offset: 42}
		},
	}

	repo := NewCursorRepository(db)

	offset, err := repo.Load(context.Background(), "rollups")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offset != 42 {
		t.Fatalf("expected offset 42, got %d", offset)
	}
}

func TestCursorRepository_LoadMissingIsZero(t *testing.T) {
	db := &fakeDB{
		QueryRowFn: func(ctx context.Context, query string, args ...any) Row {
			return &fakeRow{err: sql.ErrNoRows}
		},
	}

	repo := NewCursorRepository(db)

	offset, err := repo.Load(context.Background(), "rollups")
	if err != nil {
		t.Fatalf("expected a missing cursor to read as zero, got error: %v", err)
	}
	if offset != 0 {
		t.Fatalf("expected offset 0, got %d", offset)
	}
}

func TestCursorRepository_LoadError(t *testing.T) {
	db := &fakeDB{
		QueryRowFn: func(ctx context.Context, query string, args ...any) Row {
			return &fakeRow{err: errors.New("db error")}
		},
	}

	repo := NewCursorRepository(db)

	if _, err := repo.Load(context.Background(), "rollups"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestCursorRepository_SaveUpserts(t *testing.T) {
	db := &fakeDB{}

	repo := NewCursorRepository(db)

	if err := repo.Save(context.Background(), "rollups", 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(db.lastQuery, "ON CONFLICT (name) DO UPDATE") {
		t.Fatalf("expected upsert query, got: %s", db.lastQuery)
	}
	if len(db.lastArgs) != 2 || db.lastArgs[1] != int64(99) {
		t.Fatalf("unexpected args: %v", db.lastArgs)
	}
}
