package users

import (
	"context"
	"errors"
	"strings"
	"sync"

	"quotation-backend/internal/policy"
	"quotation-backend/internal/shared/apperr"
	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/metrics"
	"quotation-backend/internal/shared/telemetry"
	"quotation-backend/internal/shared/validation"
)

const invalidCredentials = "invalid email or password"

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(id auth.Identity) (auth.Token, error)
}

type Service struct {
	Repo             Repo
	Tokens           TokenIssuer
	BcryptCost       int
	AllowAdminSignup bool

	initOnce sync.Once
	validate *validation.Validator
	// dummyHash is compared against when the email is unknown so login
	// timing does not reveal which accounts exist.
	dummyHash string
}

func NewService(repo Repo, tokens TokenIssuer, bcryptCost int) *Service {
	return &Service{Repo: repo, Tokens: tokens, BcryptCost: bcryptCost}
}

func (s *Service) lazyInit() {
	s.initOnce.Do(func() {
		s.validate = validation.New()
		s.dummyHash, _ = auth.HashPassword("placeholder-password", s.BcryptCost)
	})
}

func (s *Service) validator() *validation.Validator {
	s.lazyInit()
	return s.validate
}

// Register creates an account and returns a session for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	role := auth.RoleCustomer
	if strings.TrimSpace(in.Role) != "" {
		parsed, err := auth.ParseRole(in.Role)
		if err != nil {
			return Session{}, apperr.WithDetails(apperr.ErrValidation, "role is invalid",
				map[string]string{"role": "must be one of: customer collaborator administrator"})
		}
		role = parsed
	}
	if role.IsAdmin() && !s.AllowAdminSignup {
		return Session{}, apperr.New(apperr.ErrForbidden, "administrator accounts cannot be self-registered")
	}

	user, err := s.create(ctx, in, role)
	if err != nil {
		return Session{}, err
	}
	metrics.IncUserRegistered()
	telemetry.Info("user.registered", map[string]any{"user_id": user.ID, "role": string(user.Role)})
	return s.session(user)
}

// CreateAdmin provisions an administrator outside the public signup path.
func (s *Service) CreateAdmin(ctx context.Context, in RegisterInput) (Profile, error) {
	user, err := s.create(ctx, in, auth.RoleAdministrator)
	if err != nil {
		return Profile{}, err
	}
	telemetry.Info("user.admin_created", map[string]any{"user_id": user.ID})
	return user.Profile(), nil
}

func (s *Service) create(ctx context.Context, in RegisterInput, role auth.Role) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Handle = strings.TrimSpace(in.Handle)
	if err := s.validator().Struct(in); err != nil {
		return User{}, err
	}

	if _, err := s.Repo.GetByEmail(ctx, in.Email); err == nil {
		return User{}, apperr.New(apperr.ErrConflict, ErrEmailTaken.Error())
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, apperr.Internal("users.register", err)
	}
	if _, err := s.Repo.GetByHandle(ctx, in.Handle); err == nil {
		return User{}, apperr.New(apperr.ErrConflict, ErrHandleTaken.Error())
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, apperr.Internal("users.register", err)
	}

	hash, err := auth.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return User{}, apperr.Internal("users.hash", err)
	}
	user, err := s.Repo.Create(ctx, User{
		Name:         in.Name,
		Email:        in.Email,
		Handle:       in.Handle,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return User{}, mapRepoErr("users.create", err)
	}
	return user, nil
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator().Struct(in); err != nil {
		return Session{}, err
	}

	user, err := s.Repo.GetByEmail(ctx, in.Email)
	if errors.Is(err, ErrNotFound) {
		_ = auth.VerifyPassword(s.placeholderHash(), in.Password)
		return Session{}, apperr.New(apperr.ErrUnauthenticated, invalidCredentials)
	}
	if err != nil {
		return Session{}, apperr.Internal("users.login", err)
	}
	if err := auth.VerifyPassword(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return Session{}, apperr.New(apperr.ErrUnauthenticated, invalidCredentials)
		}
		return Session{}, apperr.Internal("users.login", err)
	}
	return s.session(user)
}

func (s *Service) placeholderHash() string {
	s.lazyInit()
	return s.dummyHash
}

func (s *Service) GetProfile(ctx context.Context, actor auth.Identity) (Profile, error) {
	user, err := s.Repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return Profile{}, mapRepoErr("users.profile", err)
	}
	return user.Profile(), nil
}

func (s *Service) UpdateProfile(ctx context.Context, actor auth.Identity, in UpdateProfileInput) (Profile, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.validator().Struct(in); err != nil {
		return Profile{}, err
	}
	existing, err := s.Repo.GetByEmail(ctx, in.Email)
	if err == nil && existing.ID != actor.UserID {
		return Profile{}, apperr.New(apperr.ErrConflict, "email already in use")
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Profile{}, apperr.Internal("users.update", err)
	}
	user, err := s.Repo.UpdateProfile(ctx, actor.UserID, in.Name, in.Email)
	if err != nil {
		return Profile{}, mapRepoErr("users.update", err)
	}
	return user.Profile(), nil
}

func (s *Service) ChangePassword(ctx context.Context, actor auth.Identity, in ChangePasswordInput) error {
	if err := s.validator().Struct(in); err != nil {
		return err
	}
	user, err := s.Repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return mapRepoErr("users.password", err)
	}
	if err := auth.VerifyPassword(user.PasswordHash, in.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperr.WithDetails(apperr.ErrValidation, "current password is incorrect",
				map[string]string{"currentPassword": "is incorrect"})
		}
		return apperr.Internal("users.password", err)
	}
	hash, err := auth.HashPassword(in.NewPassword, s.BcryptCost)
	if err != nil {
		return apperr.Internal("users.hash", err)
	}
	if err := s.Repo.UpdatePassword(ctx, actor.UserID, hash); err != nil {
		return mapRepoErr("users.password", err)
	}
	telemetry.Info("user.password_changed", map[string]any{"user_id": actor.UserID})
	return nil
}

// ListUsers returns every account. Administrators only.
func (s *Service) ListUsers(ctx context.Context, actor auth.Identity) ([]Profile, error) {
	if err := policy.CanListAll(actor); err != nil {
		return nil, err
	}
	list, err := s.Repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("users.list", err)
	}
	out := make([]Profile, 0, len(list))
	for _, u := range list {
		out = append(out, u.Profile())
	}
	return out, nil
}

// GetUser returns one account. Administrators only.
func (s *Service) GetUser(ctx context.Context, actor auth.Identity, id int64) (Profile, error) {
	if err := policy.CanListAll(actor); err != nil {
		return Profile{}, err
	}
	user, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Profile{}, mapRepoErr("users.get", err)
	}
	return user.Profile(), nil
}

// CountUsers backs the admin dashboard.
func (s *Service) CountUsers(ctx context.Context, actor auth.Identity) (int64, error) {
	if err := policy.CanListAll(actor); err != nil {
		return 0, err
	}
	n, err := s.Repo.Count(ctx)
	if err != nil {
		return 0, apperr.Internal("users.count", err)
	}
	return n, nil
}

func (s *Service) session(user User) (Session, error) {
	tok, err := s.Tokens.Issue(user.Identity())
	if err != nil {
		return Session{}, apperr.Internal("users.token", err)
	}
	return Session{User: user.Profile(), Token: tok.Value, ExpiresAt: tok.ExpiresAt}, nil
}

func mapRepoErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.New(apperr.ErrNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrHandleTaken):
		return apperr.New(apperr.ErrConflict, err.Error())
	default:
		return apperr.Internal(op, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
