package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hanpama/inkgraph/internal/model"
)

// ErrInvalidToken is returned by Verify for any token that cannot be trusted.
var ErrInvalidToken = errors.New("invalid token")

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims are the identity claims carried by a token.
type Claims struct {
	Role  model.Role `json:"role"`
	Email string     `json:"email"`
	jwt.RegisteredClaims
}

// Identity converts verified claims into a caller identity.
func (c *Claims) Identity() *Identity {
	return &Identity{SubjectID: c.Subject, Role: c.Role, Email: c.Email}
}

// Signer issues and verifies tokens.
type Signer interface {
	Sign(id Identity) (string, error)
	Verify(token string) (*Claims, error)
}

// HMACSigner signs HS256 tokens with a shared secret.
type HMACSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewHMACSigner returns a signer for secret. ttl <= 0 selects DefaultTokenTTL.
func NewHMACSigner(secret string, ttl time.Duration) *HMACSigner {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &HMACSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *HMACSigner) Sign(id Identity) (string, error) {
	now := s.now()
	claims := Claims{
		Role:  id.Role,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *HMACSigner) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return claims, nil
}
