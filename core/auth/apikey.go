package auth

import (
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// CreateAPIKey signs a long lived key for subject. A zero ttl never expires.
func CreateAPIKey(secret []byte, subject string, roles []ApiRole, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrorMissingSubject
	}
	if len(roles) < 1 {
		return "", ErrorMissingRole
	}
	for _, r := range roles {
		if !r.Valid() {
			return "", fmt.Errorf("unknown role %q", r)
		}
	}

	now := time.Now()
	claims := &APIClaim{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Roles: roles,
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAPIKey checks the signature, issuer and expiry of key and returns its
// claims.
func VerifyAPIKey(secret []byte, key string) (*APIClaim, error) {
	claims := &APIClaim{}
	_, err := jwt.ParseWithClaims(key, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{JwtAlg}), jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrorUnAuthorized, err)
	}

	if claims.Subject == "" {
		return nil, ErrorMissingSubject
	}
	if len(claims.Roles) == 0 {
		return nil, ErrorMissingRole
	}
	return claims, nil
}

// ParseBearer extracts the token of an "Authorization: Bearer <token>" header.
func ParseBearer(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrorInvalidToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) < 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrorMalformedAuthHeader
	}
	return parts[1], nil
}
