// ABOUTME: Tests for minting and verifying gateway bearer tokens
// ABOUTME: Covers the issuer pin, allowed algorithms, expiry, and subject handling

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/todo-gateway/internal/records"
)

var tokenTestSecret = []byte("token-test-secret-for-jwt-signing")

// signClaims signs arbitrary claims with the test secret.
func signClaims(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenTestSecret)
	require.NoError(t, err)
	return token
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier(tokenTestSecret)

	for _, id := range []records.Identity{"alice", "bob", "ssh:abcdef", "*"} {
		token, err := v.Generate(id, time.Hour)
		require.NoError(t, err)

		got, err := v.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestJWTVerifier_GeneratedClaims(t *testing.T) {
	v := NewJWTVerifier(tokenTestSecret)
	first, err := v.Generate("bob", time.Hour)
	require.NoError(t, err)
	second, err := v.Generate("bob", time.Hour)
	require.NoError(t, err)

	var a, b jwt.RegisteredClaims
	_, _, err = jwt.NewParser().ParseUnverified(first, &a)
	require.NoError(t, err)
	_, _, err = jwt.NewParser().ParseUnverified(second, &b)
	require.NoError(t, err)

	assert.Equal(t, TokenIssuer, a.Issuer)
	assert.Equal(t, "bob", a.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), a.ExpiresAt.Time, time.Minute)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "each token gets its own id")
}

func TestJWTVerifier_GenerateRejectsBlankIdentity(t *testing.T) {
	v := NewJWTVerifier(tokenTestSecret)
	for _, id := range []records.Identity{"", "  "} {
		_, err := v.Generate(id, time.Hour)
		assert.ErrorIs(t, err, ErrMissingClaim, "%q", id)
	}
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v := NewJWTVerifier(tokenTestSecret)
	now := time.Now()
	valid := func(sub string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}
	}

	foreign, err := NewJWTVerifier([]byte("another-gateway-secret-0123456789")).Generate("bob", time.Hour)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid("alice")).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, valid("alice")).SignedString(tokenTestSecret)
	require.NoError(t, err)

	otherIssuer := valid("bob")
	otherIssuer.Issuer = "someone-else"
	noIssuer := valid("bob")
	noIssuer.Issuer = ""
	futureIssued := valid("bob")
	futureIssued.IssuedAt = jwt.NewNumericDate(now.Add(time.Hour))
	expired := valid("bob")
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrInvalidToken},
		{"garbage", "not-a-jwt-token", ErrInvalidToken},
		{"three dots of nothing", "header.payload.signature", ErrInvalidToken},
		{"other secret", foreign, ErrInvalidToken},
		{"alg none", unsigned, ErrInvalidToken},
		{"alg HS512", hs512, ErrInvalidToken},
		{"other issuer", signClaims(t, otherIssuer), ErrInvalidToken},
		{"no issuer", signClaims(t, noIssuer), ErrInvalidToken},
		{"issued in the future", signClaims(t, futureIssued), ErrInvalidToken},
		{"expired", signClaims(t, expired), ErrExpiredToken},
		{"no subject", signClaims(t, valid("")), ErrMissingClaim},
		{"blank subject", signClaims(t, valid("   ")), ErrMissingClaim},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestJWTVerifier_ExpiryLeeway(t *testing.T) {
	v := NewJWTVerifier(tokenTestSecret)

	justExpired, err := v.Generate("bob", -5*time.Second)
	require.NoError(t, err)
	got, err := v.Verify(justExpired)
	require.NoError(t, err, "within clock skew leeway")
	assert.Equal(t, records.Identity("bob"), got)

	longExpired, err := v.Generate("bob", -time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(longExpired)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
