// Package auth issues and verifies the API keys accepted by the keyring HTTP
// host.
package auth

import (
	"errors"
	"slices"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	Issuer = "AvaProtocol"
	JwtAlg = "HS256"

	// AdminRole may mutate accounts, chain configs and sign operations.
	AdminRole = ApiRole("admin")
	// ReadonlyRole may only list and read accounts.
	ReadonlyRole = ApiRole("readonly")
)

var (
	ErrorUnAuthorized        = errors.New("unauthorized error")
	ErrorInvalidToken        = errors.New("invalid bearer token")
	ErrorMalformedAuthHeader = errors.New("malformed auth header")
	ErrorMissingSubject      = errors.New("missing subject")
	ErrorMissingRole         = errors.New("at least one role is required")
)

type ApiRole string

func (r ApiRole) Valid() bool {
	return r == AdminRole || r == ReadonlyRole
}

type APIClaim struct {
	jwt.RegisteredClaims
	Roles []ApiRole `json:"roles"`
}

func (c *APIClaim) HasRole(role ApiRole) bool {
	return slices.Contains(c.Roles, role)
}

// CanWrite reports whether the key may change keyring state or sign.
func (c *APIClaim) CanWrite() bool {
	return c.HasRole(AdminRole)
}
