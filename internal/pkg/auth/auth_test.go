package auth_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/auth"
	"dispatch/internal/pkg/errs"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_MintAndParse(t *testing.T) {
	a := auth.NewAuthenticator("secret", "dispatch")
	principal := kernel.Principal{ID: kernel.NewUUID(), Role: kernel.RolePartner}

	token, err := a.Mint(principal, time.Now(), time.Hour)
	require.NoError(t, err)

	got, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, principal, got)
}

func TestAuthenticator_Rejects(t *testing.T) {
	a := auth.NewAuthenticator("secret", "dispatch")
	principal := kernel.Principal{ID: kernel.NewUUID(), Role: kernel.RoleCustomer}

	expired, err := a.Mint(principal, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	otherSecret, err := auth.NewAuthenticator("other", "dispatch").Mint(principal, time.Now(), time.Hour)
	require.NoError(t, err)
	otherIssuer, err := auth.NewAuthenticator("secret", "someone-else").Mint(principal, time.Now(), time.Hour)
	require.NoError(t, err)
	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role:             "courier",
		RegisteredClaims: jwt.RegisteredClaims{Subject: principal.ID.String(), Issuer: "dispatch"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: principal.ID.String(), Issuer: "dispatch"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"expired":      expired,
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"unknown role": badRole,
		"alg none":     noneAlg,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Parse(token)
			require.ErrorIs(t, err, errs.ErrUnauthorized)
		})
	}
}

func TestAuthenticator_Authenticate(t *testing.T) {
	a := auth.NewAuthenticator("secret", "")
	principal := kernel.Principal{ID: kernel.NewUUID(), Role: kernel.RoleAdmin}
	token, err := a.Mint(principal, time.Now(), time.Hour)
	require.NoError(t, err)

	t.Run("header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		got, err := a.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, principal, got)
	})

	t.Run("query with matching role", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token="+token+"&role=admin", nil)
		got, err := a.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, kernel.RoleAdmin, got.Role)
	})

	t.Run("declared role mismatch", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token="+token+"&role=customer", nil)
		_, err := a.Authenticate(r)
		require.ErrorIs(t, err, auth.ErrRoleMismatch)
	})

	t.Run("non bearer header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token="+token, nil)
		r.Header.Set("Authorization", "Basic abc")
		_, err := a.Authenticate(r)
		require.ErrorIs(t, err, auth.ErrMissingToken)
	})
}

func TestAuthenticator_NoSecret(t *testing.T) {
	a := auth.NewAuthenticator("", "")
	_, err := a.Parse("x")
	require.ErrorIs(t, err, auth.ErrSecretMissing)
	_, err = a.Mint(kernel.Principal{ID: kernel.NewUUID(), Role: kernel.RoleAdmin}, time.Now(), time.Minute)
	require.ErrorIs(t, err, auth.ErrSecretMissing)
}
