package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService signs and checks HS256 access tokens. The subject claim
// carries the user id; issuing tokens belongs to the identity provider, the
// API only validates them.
type TokenService struct {
	key []byte
	ttl time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{key: []byte(secret), ttl: ttl}
}

// CreateForUser issues a token for userID with the default lifetime.
func (t *TokenService) CreateForUser(userID string) (string, error) {
	return t.CreateWithTTL(userID, t.ttl)
}

func (t *TokenService) CreateWithTTL(userID string, ttl time.Duration) (string, error) {
	issued := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

// Parse verifies signature and expiry and returns the registered claims.
func (t *TokenService) Parse(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Subject returns the user id of a valid token.
func (t *TokenService) Subject(raw string) (string, error) {
	claims, err := t.Parse(raw)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return claims.Subject, nil
}
