package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/google/uuid"
)

// HashToken returns the hex-encoded SHA-256 of a bearer string. Only this value is
// persisted; the raw string stays with the client.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenHashEqual hashes providedToken and compares it to storedHash in constant time.
func TokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}

// NewPlaceholderHash returns the hash of a fresh random nonce. It is unique for all
// practical purposes and never equals the hash of a signed token.
func NewPlaceholderHash() (string, error) {
	nonce, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return HashToken("placeholder:" + nonce.String()), nil
}
