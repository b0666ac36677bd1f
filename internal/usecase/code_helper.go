package usecase

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"
)

// generateCodeToken creates a secure, random, display-friendly activation
// code: 8 uppercase hex characters.
func generateCodeToken() (string, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
