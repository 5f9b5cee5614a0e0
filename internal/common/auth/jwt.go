// Package auth verifies bearer tokens issued by the identity backend and mints
// the AdminGrant capability required to change an idea's status.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ideaflow/internal/common/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNotAdmin     = errors.New("principal does not hold the admin role")
)

// Principal is the verified identity behind a request.
type Principal struct {
	UserID string
	Roles  []string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AdminGrant proves that an administrator check passed. The zero value is not a grant.
type AdminGrant struct {
	userID    string
	grantedAt time.Time
}

func (g AdminGrant) UserID() string       { return g.userID }
func (g AdminGrant) GrantedAt() time.Time { return g.grantedAt }
func (g AdminGrant) Valid() bool          { return g.userID != "" }

// RequireAdmin mints a grant when the principal holds adminRole.
func (p Principal) RequireAdmin(adminRole string) (AdminGrant, error) {
	if p.UserID == "" || !p.HasRole(adminRole) {
		return AdminGrant{}, ErrNotAdmin
	}
	return AdminGrant{userID: p.UserID, grantedAt: time.Now().UTC()}, nil
}

// Verifier checks HS256 tokens and extracts the subject and role claim.
type Verifier struct {
	secret    []byte
	issuer    string
	roleClaim []string
	adminRole string
}

func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret:    []byte(cfg.JWTSecret),
		issuer:    cfg.Issuer,
		roleClaim: strings.Split(cfg.RoleClaim, "."),
		adminRole: cfg.AdminRole,
	}
}

func (v *Verifier) AdminRole() string { return v.adminRole }

func (v *Verifier) Verify(tokenString string) (Principal, error) {
	if tokenString == "" {
		return Principal{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Principal{UserID: sub, Roles: lookupRoles(claims, v.roleClaim)}, nil
}

// VerifyAdmin verifies the token and requires the configured admin role.
func (v *Verifier) VerifyAdmin(tokenString string) (AdminGrant, error) {
	p, err := v.Verify(tokenString)
	if err != nil {
		return AdminGrant{}, err
	}
	return p.RequireAdmin(v.adminRole)
}

// lookupRoles walks a dotted claim path. The leaf may be a string or a list of strings.
func lookupRoles(claims jwt.MapClaims, path []string) []string {
	var node interface{} = map[string]interface{}(claims)
	for _, key := range path {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil
		}
		node = m[key]
	}

	switch leaf := node.(type) {
	case string:
		return []string{leaf}
	case []interface{}:
		roles := make([]string, 0, len(leaf))
		for _, r := range leaf {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	default:
		return nil
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}
