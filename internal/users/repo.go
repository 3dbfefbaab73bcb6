package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email already registered")
	ErrHandleTaken = errors.New("handle already in use")
)

type Repo interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByHandle(ctx context.Context, handle string) (User, error)
	UpdateProfile(ctx context.Context, id int64, name, email string) (User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	List(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int64, error)
}
