// Package auth verifies and issues the HS256 bearer tokens used by the REST surface and
// the realtime gateway. The subject claim carries the caller id and the role claim one of
// customer, partner or admin.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/golang-jwt/jwt/v5"
)

var signingMethod = jwt.SigningMethodHS256

var (
	ErrMissingToken  = errs.NewUnauthorizedError("missing bearer token")
	ErrRoleMismatch  = errs.NewUnauthorizedError("declared role does not match token")
	ErrSecretMissing = errs.NewUnauthorizedError("jwt secret is not configured")
)

// Claims are the JWT claims understood by the engine.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator checks bearer tokens against one shared secret and issuer.
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates an Authenticator. An empty issuer disables the issuer check.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Parse validates tokenString and returns the caller it identifies.
func (a *Authenticator) Parse(tokenString string) (kernel.Principal, error) {
	if len(a.secret) == 0 {
		return kernel.Principal{}, ErrSecretMissing
	}
	if tokenString == "" {
		return kernel.Principal{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{signingMethod.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != signingMethod {
			return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return kernel.Principal{}, errs.NewUnauthorizedErrorWithCause("invalid token", err)
	}

	role, err := kernel.ParseRole(claims.Role)
	if err != nil {
		return kernel.Principal{}, errs.NewUnauthorizedErrorWithCause("invalid role claim", err)
	}
	id, err := kernel.UUIDFromString(claims.Subject)
	if err != nil {
		return kernel.Principal{}, errs.NewUnauthorizedErrorWithCause("invalid subject claim", err)
	}

	return kernel.Principal{ID: id, Role: role}, nil
}

// Authenticate reads the token from the Authorization header, or the token query
// parameter when the header is absent. A non-empty role query parameter must equal the
// token's role.
func (a *Authenticator) Authenticate(r *http.Request) (kernel.Principal, error) {
	principal, err := a.Parse(TokenFromRequest(r))
	if err != nil {
		return kernel.Principal{}, err
	}

	if declared := r.URL.Query().Get("role"); declared != "" && kernel.Role(declared) != principal.Role {
		return kernel.Principal{}, ErrRoleMismatch
	}
	return principal, nil
}

// Mint signs a token for principal valid for ttl.
func (a *Authenticator) Mint(principal kernel.Principal, now time.Time, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrSecretMissing
	}
	if _, err := kernel.ParseRole(string(principal.Role)); err != nil {
		return "", err
	}

	claims := Claims{
		Role: string(principal.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID.String(),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// TokenFromRequest extracts the raw bearer token.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
