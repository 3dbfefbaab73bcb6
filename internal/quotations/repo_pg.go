package quotations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"quotation-backend/internal/shared/storage/db"
)

const joinedColumns = `q.id, q.user_id, q.service, q.description, q.status, q.admin_observation,
       q.created_at, q.updated_at, u.name, u.email`

type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuotation(row rowScanner) (Quotation, error) {
	var (
		q      Quotation
		status string
		obs    sql.NullString
	)
	if err := row.Scan(
		&q.ID,
		&q.UserID,
		&q.Service,
		&q.Description,
		&status,
		&obs,
		&q.CreatedAt,
		&q.UpdatedAt,
		&q.OwnerName,
		&q.OwnerEmail,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quotation{}, ErrNotFound
		}
		return Quotation{}, err
	}
	q.Status = Status(status)
	if obs.Valid {
		q.AdminObservation = &obs.String
	}
	return q, nil
}

func (r *PGRepo) Create(ctx context.Context, q Quotation) (Quotation, error) {
	const query = `
WITH created AS (
    INSERT INTO quotations (user_id, service, description)
    VALUES ($1, $2, $3)
    RETURNING *
)
SELECT ` + joinedColumns + `
FROM created q JOIN users u ON u.id = q.user_id`
	return scanQuotation(r.DB.QueryRowContext(ctx, query, q.UserID, q.Service, q.Description))
}

func (r *PGRepo) Get(ctx context.Context, id int64) (Quotation, error) {
	const query = `SELECT ` + joinedColumns + `
FROM quotations q JOIN users u ON u.id = q.user_id
WHERE q.id = $1`
	return scanQuotation(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) ListByOwner(ctx context.Context, userID int64) ([]Quotation, error) {
	return r.List(ctx, Filter{OwnerID: userID})
}

func (r *PGRepo) List(ctx context.Context, f Filter) ([]Quotation, error) {
	query, args := buildListQuery(f)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func buildListQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("q.status = $%d", string(f.Status))
	}
	if f.OwnerID != 0 {
		add("q.user_id = $%d", f.OwnerID)
	}
	if f.CreatedFrom != nil {
		add("q.created_at >= $%d", f.CreatedFrom.UTC())
	}
	if f.CreatedTo != nil {
		add("q.created_at < $%d", f.CreatedTo.UTC())
	}

	var b strings.Builder
	b.WriteString("SELECT " + joinedColumns + "\nFROM quotations q JOIN users u ON u.id = q.user_id")
	if len(where) > 0 {
		b.WriteString("\nWHERE " + strings.Join(where, " AND "))
	}
	b.WriteString("\nORDER BY q.created_at DESC, q.id DESC")
	return b.String(), args
}

func (r *PGRepo) UpdateContent(ctx context.Context, id int64, service, description string) (Quotation, error) {
	const query = `
WITH updated AS (
    UPDATE quotations SET service = $2, description = $3, updated_at = now()
    WHERE id = $1 AND status = 'pending'
    RETURNING *
)
SELECT ` + joinedColumns + `
FROM updated q JOIN users u ON u.id = q.user_id`
	q, err := scanQuotation(r.DB.QueryRowContext(ctx, query, id, service, description))
	if errors.Is(err, ErrNotFound) {
		return Quotation{}, r.missOrNotPending(ctx, id)
	}
	return q, err
}

// missOrNotPending explains a guarded write that touched no row.
func (r *PGRepo) missOrNotPending(ctx context.Context, id int64) error {
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM quotations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrNotPending
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id int64, status Status, observation *string) (Quotation, error) {
	const query = `
WITH updated AS (
    UPDATE quotations SET status = $2, admin_observation = $3, updated_at = now()
    WHERE id = $1
    RETURNING *
)
SELECT ` + joinedColumns + `
FROM updated q JOIN users u ON u.id = q.user_id`
	var obs sql.NullString
	if observation != nil {
		obs = sql.NullString{String: *observation, Valid: true}
	}
	return scanQuotation(r.DB.QueryRowContext(ctx, query, id, string(status), obs))
}

func (r *PGRepo) Delete(ctx context.Context, id int64) ([]string, error) {
	var keys []string
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM quotations WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if Status(status) != StatusPending {
			return ErrNotPending
		}

		rows, err := tx.QueryContext(ctx, `SELECT storage_key FROM documents WHERE quotation_id = $1`, id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				rows.Close()
				return err
			}
			keys = append(keys, key)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM quotations WHERE id = $1 AND status = 'pending'`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *PGRepo) Stats(ctx context.Context) (Stats, error) {
	const query = `
SELECT COUNT(*) FILTER (WHERE status = 'pending'),
       COUNT(*) FILTER (WHERE status = 'in_review'),
       COUNT(*) FILTER (WHERE status = 'approved'),
       COUNT(*) FILTER (WHERE status = 'rejected'),
       COUNT(*)
FROM quotations`
	var st Stats
	err := r.DB.QueryRowContext(ctx, query).Scan(&st.Pending, &st.InReview, &st.Approved, &st.Rejected, &st.Total)
	return st, err
}

