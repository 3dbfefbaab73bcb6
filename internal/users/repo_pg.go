package users

import (
	"context"
	"database/sql"
	"errors"

	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/storage/db"
)

const (
	emailConstraint  = "users_email_key"
	handleConstraint = "users_handle_key"

	userColumns = `id, name, email, handle, password_hash, role, created_at`
)

type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var role string
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Handle,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Role = auth.Role(role)
	return user, nil
}

func mapUniqueViolation(err error) error {
	switch {
	case db.IsUniqueViolation(err, emailConstraint):
		return ErrEmailTaken
	case db.IsUniqueViolation(err, handleConstraint):
		return ErrHandleTaken
	}
	return err
}

func (r *PGRepo) Create(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (name, email, handle, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns
	created, err := scanUser(r.DB.QueryRowContext(ctx, query,
		user.Name,
		user.Email,
		user.Handle,
		user.PasswordHash,
		string(user.Role),
	))
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}
	return created, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, email))
}

func (r *PGRepo) GetByHandle(ctx context.Context, handle string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE handle = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, handle))
}

func (r *PGRepo) UpdateProfile(ctx context.Context, id int64, name, email string) (User, error) {
	const query = `
UPDATE users SET name = $2, email = $3
WHERE id = $1
RETURNING ` + userColumns
	updated, err := scanUser(r.DB.QueryRowContext(ctx, query, id, name, email))
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}
	return updated, nil
}

func (r *PGRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	const query = `UPDATE users SET password_hash = $2 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, hash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) List(ctx context.Context) ([]User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (r *PGRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
