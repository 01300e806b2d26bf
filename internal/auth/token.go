// ABOUTME: Bearer tokens for record store callers, signed HS256 with the gateway secret
// ABOUTME: A token's subject is the caller identity; the issuer pins it to this gateway

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/2389/todo-gateway/internal/records"
)

const (
	// MinSecretLength is the shortest JWT secret the gateway accepts.
	MinSecretLength = 32

	// TokenIssuer is the iss claim of every token the gateway mints and accepts.
	TokenIssuer = "todo-gateway"

	// tokenLeeway absorbs clock skew between the minting host and the gateway.
	tokenLeeway = 30 * time.Second
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// TokenVerifier maps a bearer token to the identity it was minted for.
type TokenVerifier interface {
	Verify(token string) (records.Identity, error)
}

// JWTVerifier mints and checks gateway tokens with a shared HMAC secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

var _ TokenVerifier = (*JWTVerifier)(nil)

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(TokenIssuer),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(tokenLeeway),
		),
	}
}

// Verify checks the signature, issuer, and lifetime of token and returns its
// subject. Expiry is reported as ErrExpiredToken, a blank subject as
// ErrMissingClaim, and anything else as ErrInvalidToken.
func (v *JWTVerifier) Verify(token string) (records.Identity, error) {
	var claims jwt.RegisteredClaims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	identity := records.Identity(claims.Subject)
	if identity.IsZero() {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return identity, nil
}

// Generate mints a token for identity that expires after ttl. A negative ttl
// yields an already expired token.
func (v *JWTVerifier) Generate(identity records.Identity, ttl time.Duration) (string, error) {
	if identity.IsZero() {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Subject:   string(identity),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
