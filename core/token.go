package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed token payload: registered claims plus the identity
// fields the original API embeds.
type Claims struct {
	jwt.RegisteredClaims
	UserID      int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	IsSuperuser bool   `json:"is_superuser"`
}

// TokenCodec signs and verifies access tokens with a symmetric HS256 key.
// The secret is injected at construction and never read from globals.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec builds a codec. ttl of zero means issued tokens carry no
// expiry claim and never expire on their own.
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("empty jwt secret")
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl}, nil
}

// Encode issues a signed token for the given user.
func (c *TokenCodec) Encode(u User) (string, error) {
	claims := Claims{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(c.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and returns the claims. Only HS256 is
// accepted; tokens declaring any other algorithm (including "none") fail
// with ErrInvalidToken, as do malformed or expired tokens.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
