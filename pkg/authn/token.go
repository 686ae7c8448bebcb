package authn

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"aidantwoods.com/go-paseto"
)

// TokenKind is the credential a request presented, resolved from its
// headers: an API key or a bearer access token.
type TokenKind interface {
	isTokenKind()
}

// APIKeyToken is the `X-Api-Key` credential.
type APIKeyToken struct {
	Full Full
}

func (APIKeyToken) isTokenKind() {}

// AccessToken is the `Authorization: Bearer` credential.
type AccessToken struct {
	Raw string
}

func (AccessToken) isTokenKind() {}

// FromHeaders resolves the credential a request presented. The API key
// header takes precedence when both are set.
func FromHeaders(apiKeyHeader, authHeader string) (TokenKind, bool) {
	if apiKeyHeader != "" {
		full, err := ParseHeaderValue(apiKeyHeader)
		if err == nil {
			return APIKeyToken{Full: full}, true
		}
	}

	if bearer, ok := strings.CutPrefix(authHeader, "Bearer "); ok && bearer != "" {
		return AccessToken{Raw: bearer}, true
	}

	return nil, false
}

// PrincipalType distinguishes which kind of identity a validated
// credential resolved to.
type PrincipalType string

const (
	PrincipalAPIKey  PrincipalType = "api_key"
	PrincipalEndUser PrincipalType = "end_user"
)

// Principal is the identity resolved from a validated credential.
type Principal struct {
	Type      PrincipalType
	KeyID     APIKeyID
	UserID    string
	ProjectID string
	EnvID     string
	Roles     []string
}

// Subject returns the identity string the Policy Evaluator's
// request.auth.sub binds to.
func (p Principal) Subject() string {
	if p.Type == PrincipalAPIKey {
		return string(p.KeyID)
	}
	return p.UserID
}

// HasRole reports whether the principal carries role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) IsAPIKey() bool  { return p.Type == PrincipalAPIKey }
func (p Principal) IsEndUser() bool { return p.Type == PrincipalEndUser }

// Validator validates access tokens against the release's configured
// symmetric PASETO keys, trying each in order to support rotation (the
// first key is the current signing key; later ones are retired keys
// still accepted so outstanding tokens don't break mid-rotation).
type Validator struct {
	symmetricKeys []paseto.V4SymmetricKey
}

// NewValidator parses each of keyMaterial (64-hex, base64url, base64, or
// raw 32-byte) into a PASETO v4.local key.
func NewValidator(keyMaterial []string) (*Validator, error) {
	keys := make([]paseto.V4SymmetricKey, 0, len(keyMaterial))
	for i, raw := range keyMaterial {
		key, err := parseKeyMaterial(raw)
		if err != nil {
			return nil, fmt.Errorf("authn: key %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return &Validator{symmetricKeys: keys}, nil
}

// ValidateAccessToken decrypts and verifies raw against projectID/envID,
// trying each configured key. When no keys are configured, it falls back
// to a set of unsigned development encodings (a `json:`-prefixed literal,
// base64url JSON, or base64 JSON) — never used once real keys are set.
func (v *Validator) ValidateAccessToken(raw, projectID, envID string, now time.Time) (Principal, error) {
	if len(v.symmetricKeys) > 0 {
		return v.validatePaseto(raw, projectID, envID, now)
	}
	return validateDevToken(raw, projectID, envID)
}

func (v *Validator) validatePaseto(raw, projectID, envID string, now time.Time) (Principal, error) {
	parser := paseto.NewParser()

	var lastErr error
	for _, key := range v.symmetricKeys {
		token, err := parser.ParseV4Local(key, raw, nil)
		if err != nil {
			lastErr = err
			continue
		}

		claimsJSON, err := token.ClaimsJSON()
		if err != nil {
			return Principal{}, fmt.Errorf("authn: reading token claims: %w", err)
		}
		var claims AccessTokenClaims
		if err := json.Unmarshal(claimsJSON, &claims); err != nil {
			return Principal{}, fmt.Errorf("authn: decoding token claims: %w", err)
		}

		if err := v.verifyContext(claims, projectID, envID, now); err != nil {
			return Principal{}, err
		}

		return Principal{
			Type:      PrincipalEndUser,
			UserID:    claims.Sub,
			ProjectID: claims.ProjectID,
			EnvID:     claims.EnvID,
			Roles:     claims.Roles,
		}, nil
	}

	return Principal{}, fmt.Errorf("authn: token did not validate against any configured key: %w", lastErr)
}

// verifyContext checks token expiry, plus project/env agreement when the
// caller actually supplied a projectID/envID hint. An empty pair means no
// hint was given, so the token's own bound project/env is taken as-is —
// the caller checks agreement against any hint itself, separately.
func (v *Validator) verifyContext(claims AccessTokenClaims, projectID, envID string, now time.Time) error {
	if claims.IsExpired(now) {
		return fmt.Errorf("authn: token expired")
	}
	if (projectID != "" || envID != "") && !claims.MatchesContext(projectID, envID) {
		return fmt.Errorf("authn: token scoped to a different project/env")
	}
	return nil
}

// VerifyAPIKey checks a looked-up key's status and, when projectID/envID
// is non-empty, that it matches the key's bound context. An empty pair
// means no hint was given; the key's own project/env is returned as-is.
func VerifyAPIKey(key APIKey, projectID, envID string) (Principal, error) {
	if !key.IsActive() {
		return Principal{}, fmt.Errorf("authn: api key is revoked")
	}
	if (projectID != "" || envID != "") && !key.MatchesContext(projectID, envID) {
		return Principal{}, fmt.Errorf("authn: api key scoped to a different project/env")
	}
	return Principal{
		Type:      PrincipalAPIKey,
		KeyID:     key.ID,
		ProjectID: key.ProjectID,
		EnvID:     key.EnvID,
		Roles:     key.Roles,
	}, nil
}

// validateDevToken accepts a handful of unsigned encodings so the Bridge
// is usable against a release with no PASETO keys configured (local dev,
// STK_DISABLE_AUTH-adjacent workflows). It is never reachable once
// STK_PASETO_KEYS names at least one key.
func validateDevToken(raw, projectID, envID string) (Principal, error) {
	var payload []byte

	switch {
	case strings.HasPrefix(raw, "json:"):
		payload = []byte(strings.TrimPrefix(raw, "json:"))
	default:
		if decoded, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
			payload = decoded
		} else if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
			payload = decoded
		} else {
			return Principal{}, fmt.Errorf("authn: token is not a recognized development encoding")
		}
	}

	var claims AccessTokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Principal{}, fmt.Errorf("authn: decoding development token: %w", err)
	}
	if (projectID != "" || envID != "") && !claims.MatchesContext(projectID, envID) {
		return Principal{}, fmt.Errorf("authn: token scoped to a different project/env")
	}

	return Principal{
		Type:      PrincipalEndUser,
		UserID:    claims.Sub,
		ProjectID: claims.ProjectID,
		EnvID:     claims.EnvID,
		Roles:     claims.Roles,
	}, nil
}

// parseKeyMaterial accepts a 64-char hex string, base64url, standard
// base64, or a raw 32-byte string, matching every encoding the original
// CLI has ever emitted for STK_PASETO_KEYS.
func parseKeyMaterial(raw string) (paseto.V4SymmetricKey, error) {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil && len(decoded) == 32 {
			return paseto.V4SymmetricKeyFromBytes(decoded)
		}
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(raw); err == nil && len(decoded) == 32 {
		return paseto.V4SymmetricKeyFromBytes(decoded)
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil && len(decoded) == 32 {
		return paseto.V4SymmetricKeyFromBytes(decoded)
	}
	if len(raw) == 32 {
		return paseto.V4SymmetricKeyFromBytes([]byte(raw))
	}
	return paseto.V4SymmetricKey{}, fmt.Errorf("authn: key material is not 32 bytes in any recognized encoding")
}
