package auth

import (
	"fmt"
	"net/url"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ValidateOperatorToken validates an operator JWT against the JWKS
// published by the configured auth provider and returns its claims.
// baseURL is the provider base URL (from AUTH_BASE_URL).
func ValidateOperatorToken(baseURL, tokenString string) (jwt.MapClaims, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("AUTH_BASE_URL is not set")
	}
	jwksURL := baseURL + "/.well-known/jwks.json"

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	expectedIssuer := u.Scheme + "://" + u.Host

	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, jwks.Keyfunc,
		jwt.WithIssuer(expectedIssuer),
		jwt.WithValidMethods([]string{"EdDSA", "RS256"}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// IsOperator reports whether the claims grant operator privilege:
// a "role" claim of "op"/"operator"/"admin", or such an entry in a
// "roles" list claim.
func IsOperator(claims jwt.MapClaims) bool {
	if role, ok := claims["role"].(string); ok && operatorRole(role) {
		return true
	}
	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if role, ok := r.(string); ok && operatorRole(role) {
				return true
			}
		}
	}
	return false
}

func operatorRole(role string) bool {
	switch role {
	case "op", "operator", "admin":
		return true
	}
	return false
}

// SubjectFromClaims returns the token subject ("sub" or "id").
func SubjectFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
