package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// SecurityTokenBytes is the entropy of reset and activation tokens. Hex
// encoding doubles it to a 32-character token.
const SecurityTokenBytes = 16

// TokenIssuer issues and checks single-use reset and activation tokens.
// Persisting and clearing them is the caller's job.
type TokenIssuer struct {
	now func() time.Time
}

func NewTokenIssuer() *TokenIssuer {
	return &TokenIssuer{now: time.Now}
}

// NewTokenIssuerWithClock is used by tests that need to move time.
func NewTokenIssuerWithClock(now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{now: now}
}

func (t *TokenIssuer) GenerateResetToken() (string, time.Time, error) {
	token, err := NewRandomHex(SecurityTokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, t.now().UTC(), nil
}

func (t *TokenIssuer) GenerateActivationToken() (string, error) {
	return NewRandomHex(SecurityTokenBytes)
}

// ConsumeToken reports whether provided may consume stored. A nil stored token
// was never issued or is already consumed. When issuedAt is tracked the token
// must be no older than ttl; a non-positive ttl then means expired.
func (t *TokenIssuer) ConsumeToken(provided string, stored *string, issuedAt *time.Time, ttl time.Duration) bool {
	if stored == nil || *stored == "" || provided == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(*stored)) != 1 {
		return false
	}
	if issuedAt == nil {
		return true
	}
	if ttl <= 0 {
		return false
	}
	return t.now().Sub(*issuedAt) <= ttl
}

func NewRandomHex(nBytes int) (string, error) {
	b, err := randomBytes(nBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func NewRandomString(nBytes int) (string, error) {
	b, err := randomBytes(nBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func randomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: random length must be > 0", ErrInvalidInput)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}
