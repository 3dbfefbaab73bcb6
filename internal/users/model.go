package users

import (
	"time"

	"quotation-backend/internal/shared/auth"
)

// User is the stored account. PasswordHash never leaves this package in a response.
type User struct {
	ID           int64
	Name         string
	Email        string
	Handle       string
	PasswordHash string
	Role         auth.Role
	CreatedAt    time.Time
}

// Profile is the public view of a user.
type Profile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Handle    string    `json:"handle"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Handle:    u.Handle,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func (u User) Identity() auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// Session is returned by register and login.
type Session struct {
	User      Profile   `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Handle   string `json:"handle" validate:"required,min=4,max=50"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
	Role     string `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,maxbytes=72"`
}
