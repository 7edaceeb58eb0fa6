package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid admin token")
	ErrTokenTooLong = errors.New("token exceeds maximum length of 72 bytes")
)

// HashToken creates a bcrypt hash of an admin token.
func HashToken(token string, cost int) (string, error) {
	// bcrypt has a 72-byte limit
	if len(token) > 72 {
		return "", ErrTokenTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckToken compares a presented token with its stored hash.
func CheckToken(token, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

// GenerateToken creates a random admin token and its bcrypt hash.
// The plaintext is shown once; only the hash goes into configuration.
func GenerateToken(cost int) (plaintext string, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}
	plaintext = hex.EncodeToString(bytes)
	hash, err = HashToken(plaintext, cost)
	if err != nil {
		return "", "", err
	}
	return plaintext, hash, nil
}
