package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophjournal/internal/client/models"
	"github.com/dmitrijs2005/gophjournal/internal/common"
	"github.com/dmitrijs2005/gophjournal/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func toUnix(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.Entry) error {
	query := `INSERT INTO entries (id, owner, envelope, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, e.ID, e.Owner, e.Envelope, toUnix(e.CreatedAt), toUnix(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", e.ID, common.ErrorAlreadyExists)
	}
	return nil
}

// Upsert never moves an entry between owners: a conflicting id that belongs
// to someone else is reported as common.ErrorAlreadyExists.
func (r *SQLiteRepository) Upsert(ctx context.Context, e *models.Entry) error {
	query := `INSERT INTO entries (id, owner, envelope, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			envelope = excluded.envelope,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
		WHERE entries.owner = excluded.owner`

	res, err := r.db.ExecContext(ctx, query, e.ID, e.Owner, e.Envelope, toUnix(e.CreatedAt), toUnix(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %s owned by another identity: %w", e.ID, common.ErrorAlreadyExists)
	}
	return nil
}

func (r *SQLiteRepository) UpdateEnvelope(ctx context.Context, e *models.Entry) error {
	query := `UPDATE entries SET envelope = ?, updated_at = ? WHERE id = ? AND owner = ?`

	res, err := r.db.ExecContext(ctx, query, e.Envelope, toUnix(e.UpdatedAt), e.ID, e.Owner)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return expectOneRow(res, e.ID)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, owner, id string) (*models.Entry, error) {
	query := `SELECT id, owner, envelope, created_at, updated_at FROM entries WHERE id = ? AND owner = ?`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, owner string) ([]*models.Entry, error) {
	query := `SELECT id, owner, envelope, created_at, updated_at FROM entries
		WHERE owner = ? ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	result := []*models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return expectOneRow(res, id)
}

func (r *SQLiteRepository) DeleteByOwner(ctx context.Context, owner string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE owner = ?`, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e                models.Entry
		created, updated int64
	)
	if err := row.Scan(&e.ID, &e.Owner, &e.Envelope, &created, &updated); err != nil {
		return nil, err
	}
	e.CreatedAt = fromUnix(created)
	e.UpdatedAt = fromUnix(updated)
	return &e, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
	}
	return nil
}
