package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/labtest-storefront/internal/user"
)

func TestIssueAndParse(t *testing.T) {
	ti := NewTokenIssuer("s3cret", 15*time.Minute)

	tok, exp, err := ti.Issue(&user.User{ID: "u1", Role: user.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	p, err := ti.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u1", Role: user.RoleAdmin}, p)
}

func TestParseRejectsExpired(t *testing.T) {
	ti := NewTokenIssuer("s3cret", time.Minute)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ti.now = func() time.Time { return issued }

	tok, _, err := ti.Issue(&user.User{ID: "u1", Role: user.RoleCustomer})
	require.NoError(t, err)

	ti.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = ti.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsOtherSecretAndAlgorithm(t *testing.T) {
	tok, _, err := NewTokenIssuer("one", time.Minute).Issue(&user.User{ID: "u1"})
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", time.Minute).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokenIssuer("one", time.Minute).Parse(unsigned)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: "u1", Role: user.RoleCustomer})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", p.UserID)
}
