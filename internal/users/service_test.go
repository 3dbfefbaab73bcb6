package users

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quotation-backend/internal/shared/apperr"
	"quotation-backend/internal/shared/auth"
)

func newTestService(t *testing.T) (*Service, *auth.Issuer) {
	t.Helper()
	iss, err := auth.NewIssuer("users-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return NewService(NewMemoryRepo(), iss, 4), iss
}

func aliceInput() RegisterInput {
	return RegisterInput{Name: "Alice", Email: "alice@x.com", Handle: "alice", Password: "secret1"}
}

func TestRegisterIssuesVerifiableToken(t *testing.T) {
	svc, iss := newTestService(t)
	session, err := svc.Register(context.Background(), aliceInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.User.Role != auth.RoleCustomer {
		t.Fatalf("expected default customer role, got %q", session.User.Role)
	}
	id, err := iss.Verify(session.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != session.User.ID || id.Email != "alice@x.com" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	cases := map[string]RegisterInput{
		"missing name":   {Email: "a@x.com", Handle: "alice", Password: "secret1"},
		"bad email":      {Name: "A", Email: "not-an-email", Handle: "alice", Password: "secret1"},
		"short handle":   {Name: "A", Email: "a@x.com", Handle: "abc", Password: "secret1"},
		"short password": {Name: "A", Email: "a@x.com", Handle: "alice", Password: "12345"},
		"legacy role":    {Name: "A", Email: "a@x.com", Handle: "alice", Password: "secret1", Role: "admin"},
		"password bytes": {Name: "A", Email: "a@x.com", Handle: "alice", Password: strings.Repeat("ñ", 40)},
	}
	for name, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestRegisterDuplicateEmailConflictsRegardlessOfHandle(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), aliceInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	dup := aliceInput()
	dup.Handle = "another"
	dup.Email = "  ALICE@x.com "
	_, err := svc.Register(context.Background(), dup)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if apperr.Message(err, "") != ErrEmailTaken.Error() {
		t.Fatalf("expected email conflict message, got %q", apperr.Message(err, ""))
	}

	dupHandle := aliceInput()
	dupHandle.Email = "other@x.com"
	if _, err := svc.Register(context.Background(), dupHandle); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected handle ErrConflict, got %v", err)
	}
}

func TestRegisterAdministratorRequiresOptIn(t *testing.T) {
	svc, _ := newTestService(t)
	in := aliceInput()
	in.Role = "Administrator"
	if _, err := svc.Register(context.Background(), in); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	svc.AllowAdminSignup = true
	session, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if session.User.Role != auth.RoleAdministrator {
		t.Fatalf("expected administrator, got %q", session.User.Role)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), aliceInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, errWrong := svc.Login(context.Background(), LoginInput{Email: "alice@x.com", Password: "wrong-pass"})
	_, errUnknown := svc.Login(context.Background(), LoginInput{Email: "bob@x.com", Password: "secret1"})
	for _, err := range []error{errWrong, errUnknown} {
		if !errors.Is(err, apperr.ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	}
	if apperr.Message(errWrong, "") != apperr.Message(errUnknown, "") {
		t.Fatalf("expected identical messages")
	}

	session, err := svc.Login(context.Background(), LoginInput{Email: "Alice@X.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("expected token")
	}
}

func TestUpdateProfileAndChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	alice, _ := svc.Register(context.Background(), aliceInput())
	bobIn := aliceInput()
	bobIn.Email, bobIn.Handle = "bob@x.com", "bobby"
	if _, err := svc.Register(context.Background(), bobIn); err != nil {
		t.Fatalf("register bob: %v", err)
	}
	actor := auth.Identity{UserID: alice.User.ID, Email: alice.User.Email, Role: alice.User.Role}

	if _, err := svc.UpdateProfile(context.Background(), actor, UpdateProfileInput{Name: "Alice B", Email: "bob@x.com"}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict for taken email, got %v", err)
	}
	updated, err := svc.UpdateProfile(context.Background(), actor, UpdateProfileInput{Name: "Alice B", Email: "alice@x.com"})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Alice B" {
		t.Fatalf("expected updated name, got %q", updated.Name)
	}

	err = svc.ChangePassword(context.Background(), actor, ChangePasswordInput{CurrentPassword: "nope", NewPassword: "secret2"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation for wrong current password, got %v", err)
	}
	err = svc.ChangePassword(context.Background(), actor, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: strings.Repeat("ñ", 40)})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected ErrValidation for an 80-byte password, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), actor, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "secret2"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: "alice@x.com", Password: "secret2"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAdminUserListing(t *testing.T) {
	svc, _ := newTestService(t)
	alice, _ := svc.Register(context.Background(), aliceInput())
	admin, err := svc.CreateAdmin(context.Background(), RegisterInput{Name: "Root", Email: "root@x.com", Handle: "root", Password: "secret1"})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}

	customer := auth.Identity{UserID: alice.User.ID, Role: auth.RoleCustomer}
	if _, err := svc.ListUsers(context.Background(), customer); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	adminID := auth.Identity{UserID: admin.ID, Role: auth.RoleAdministrator}
	list, err := svc.ListUsers(context.Background(), adminID)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 users, got %d (%v)", len(list), err)
	}
	if _, err := svc.GetUser(context.Background(), adminID, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	n, err := svc.CountUsers(context.Background(), adminID)
	if err != nil || n != 2 {
		t.Fatalf("expected count 2, got %d (%v)", n, err)
	}
}
