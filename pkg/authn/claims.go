package authn

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// AccessTokenClaims is the payload of an end-user access token, PASETO
// v4.local-encrypted on the wire.
type AccessTokenClaims struct {
	Sub       string    `json:"sub"`
	ProjectID string    `json:"project_id"`
	EnvID     string    `json:"env_id"`
	Roles     []string  `json:"roles"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
	JTI       string    `json:"jti"`
	KeyID     string    `json:"kid,omitempty"`
}

// NewAccessTokenClaims builds claims for a fresh token valid for ttl from
// now, stamping a fresh ULID as the token's unique ID.
func NewAccessTokenClaims(sub, projectID, envID string, roles []string, ttl time.Duration, now time.Time) AccessTokenClaims {
	return AccessTokenClaims{
		Sub:       sub,
		ProjectID: projectID,
		EnvID:     envID,
		Roles:     roles,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		JTI:       ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
	}
}

// WithKeyID attaches the signing/encryption key identifier. The Validator
// does not read it: it tries every configured key in order.
func (c AccessTokenClaims) WithKeyID(kid string) AccessTokenClaims {
	c.KeyID = kid
	return c
}

// IsExpired reports whether the claims' exp has passed as of now.
func (c AccessTokenClaims) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// MatchesContext reports whether the claims are scoped to projectID/envID.
func (c AccessTokenClaims) MatchesContext(projectID, envID string) bool {
	return c.ProjectID == projectID && c.EnvID == envID
}

// HasRole reports whether the claims carry role.
func (c AccessTokenClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RemainingTTL returns how long the claims remain valid as of now (zero
// or negative once expired).
func (c AccessTokenClaims) RemainingTTL(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// RefreshTokenClaims is the server-side record of an issued refresh
// token. The Bridge's /call surface never mints or redeems these itself
// (that is a Hub-side authentication concern); the type is carried so a
// cookie-session integration can round-trip it without redefining the
// shape.
type RefreshTokenClaims struct {
	ID         string
	EndUserID  string
	ProjectID  string
	EnvID      string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// NewRefreshTokenClaims builds a fresh, unrevoked refresh token record.
func NewRefreshTokenClaims(id, endUserID, projectID, envID string, ttl time.Duration, now time.Time) RefreshTokenClaims {
	return RefreshTokenClaims{
		ID:        id,
		EndUserID: endUserID,
		ProjectID: projectID,
		EnvID:     envID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// IsValid reports whether the token is unrevoked and unexpired as of now.
func (c RefreshTokenClaims) IsValid(now time.Time) bool {
	return c.RevokedAt == nil && now.Before(c.ExpiresAt)
}

// Revoke marks the token revoked as of now.
func (c *RefreshTokenClaims) Revoke(now time.Time) {
	c.RevokedAt = &now
}
