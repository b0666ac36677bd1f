//go:build !integration

package security

import (
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	parts := strings.SplitN(hash, "$", 2)
	if len(parts) != 2 || len(parts[0]) != saltLength*2 || len(parts[1]) != keyLength*2 {
		t.Fatalf("unexpected hash shape %q", hash)
	}

	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordSaltsEveryHash(t *testing.T) {
	t.Parallel()
	a, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	b, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if a == b {
		t.Error("identical hashes for the same password")
	}
	if !VerifyPassword(a, "hunter2") || !VerifyPassword(b, "hunter2") {
		t.Error("salted hash failed to verify")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	t.Parallel()
	if _, err := HashPassword(""); err == nil {
		t.Error("empty password accepted")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	t.Parallel()
	cases := []string{
		"",
		"notahash",
		"deadbeef",           // no separator
		"zz$deadbeef",        // bad salt hex
		"deadbeef$zz",        // bad key hex
		"deadbeef$",          // empty key
		"$deadbeefdeadbeef",  // empty salt still decodes, key mismatch
	}
	for _, stored := range cases {
		if VerifyPassword(stored, "anything") {
			t.Errorf("malformed hash %q verified", stored)
		}
	}
}
