package crypto

import (
	"bytes"
	"testing"

	"github.com/and161185/focus-vault/internal/model"
)

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 32
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal", n)
	}
}

func TestHashPassword_DeterministicPerSalt(t *testing.T) {
	t.Parallel()

	pw := []byte("admin")
	salt := []byte("0123456789abcdef")

	h1 := HashPassword(pw, salt)
	h2 := HashPassword(pw, salt)
	if !bytes.Equal(h1, h2) {
		t.Fatalf("hash not deterministic for same input")
	}
	if bytes.Equal(h1, HashPassword(pw, []byte("fedcba9876543210"))) {
		t.Fatalf("hash should differ when salt differs")
	}
	if !VerifyPassword(pw, salt, h1) || VerifyPassword([]byte("admin!"), salt, h1) {
		t.Fatalf("VerifyPassword mismatch")
	}
}

func TestCredential_RoundTrip(t *testing.T) {
	t.Parallel()

	if _, err := NewCredential(""); err == nil {
		t.Fatalf("want error on empty password")
	}

	c, err := NewCredential("correct horse")
	if err != nil {
		t.Fatalf("NewCredential: %v", err)
	}
	if len(c.Salt) != saltLen || len(c.Hash) == 0 {
		t.Fatalf("bad credential: %+v", c)
	}
	if !Matches(c, "correct horse") {
		t.Fatalf("Matches: expected true for correct password")
	}
	if Matches(c, "wrong") {
		t.Fatalf("Matches: expected false for wrong password")
	}
	if Matches(model.Credential{}, "") {
		t.Fatalf("empty credential must never match")
	}
}
