package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Stored hash format: "salthex$keyhex", PBKDF2-HMAC-SHA256. The parameters
// are fixed so hashes produced by earlier deployments keep verifying.
const (
	pbkdf2Iterations = 260000
	saltLength       = 16
	keyLength        = 32
)

// HashPassword derives a storable hash for an admin password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLength, sha256.New)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(key), nil
}

// VerifyPassword checks a provided password against a stored hash in
// constant time. Malformed hashes verify as false, never as an error.
func VerifyPassword(stored, provided string) bool {
	parts := strings.SplitN(stored, "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(provided), salt, pbkdf2Iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(want, got) == 1
}
