package auth

import "testing"

func TestParseRole(t *testing.T) {
	for _, in := range []string{"customer", "Collaborator", " ADMINISTRATOR "} {
		if _, err := ParseRole(in); err != nil {
			t.Fatalf("ParseRole(%q): %v", in, err)
		}
	}
	for _, in := range []string{"", "admin", "administrador", "usuario", "root"} {
		if _, err := ParseRole(in); err == nil {
			t.Fatalf("ParseRole(%q) should fail", in)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret1" {
		t.Fatalf("hash must not equal plaintext")
	}
	if err := VerifyPassword(hash, "secret1"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyPassword(hash, "secret2"); err != ErrPasswordMismatch {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
