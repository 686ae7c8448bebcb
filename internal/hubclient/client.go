// Package hubclient is the Bridge's only outbound dependency on the Hub:
// two plain HTTP endpoints, `POST /internal/verify-api-key` and
// `GET /internal/releases/current`. The Bridge never talks to the Hub's
// database directly.
package hubclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cookieshake/santokit-sub000/pkg/authn"
	"github.com/cookieshake/santokit-sub000/pkg/permissions"
	"github.com/cookieshake/santokit-sub000/pkg/release"
	"github.com/cookieshake/santokit-sub000/pkg/schema"
	"github.com/cookieshake/santokit-sub000/pkg/storage"
)

// releasePayload is the Hub's wire shape for a release: logic files travel
// as their raw "---"-delimited bundle text (front matter + SQL body), not
// pre-parsed, so the Bridge parses them itself with release.ParseLogicFile
// the same way it would a bundle read straight off disk in local dev.
type releasePayload struct {
	ID          string             `json:"id"`
	ProjectID   string             `json:"projectId"`
	EnvID       string             `json:"envId"`
	Schema      schema.SchemaIR    `json:"schema"`
	Permissions permissions.Policy `json:"permissions"`
	Storage     storage.Config     `json:"storage"`
	Logics      map[string]string  `json:"logics"`
	PublishedAt time.Time          `json:"publishedAt"`
}

// Client is a thin HTTP client around the Hub's two endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL with the given per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Ping satisfies httpserver.Pinger for the readiness endpoint: a cheap
// GET against the Hub's own health check.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hubclient: pinging hub: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("hubclient: hub unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}

// verifyAPIKeyRequest is the request body for POST /internal/verify-api-key.
type verifyAPIKeyRequest struct {
	KeyID     string `json:"keyId"`
	Secret    string `json:"secret"`
	ProjectID string `json:"projectId"`
	EnvID     string `json:"envId"`
}

// verifyAPIKeyResponse mirrors authn.APIKey's wire shape. The secret
// comparison itself happens on the Hub, which holds the hashed secret;
// the Bridge only ever sees the outcome.
type verifyAPIKeyResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ProjectID string   `json:"projectId"`
	EnvID     string   `json:"envId"`
	Roles     []string `json:"roles"`
	Status    string   `json:"status"`
}

// VerifyAPIKey posts the caller's key ID and secret to the Hub and
// returns the resolved principal, scoped to the key's own bound
// project/env. projectID/envID are an optional hint forwarded to the Hub
// for logging only — an empty pair means the caller has no hint to
// offer; the Bridge checks agreement against a supplied hint itself,
// after the key's true bound context comes back. Any response status
// other than 200 (invalid secret, revoked key) is surfaced as an error.
func (c *Client) VerifyAPIKey(ctx context.Context, full authn.Full, projectID, envID string) (authn.Principal, error) {
	body, err := json.Marshal(verifyAPIKeyRequest{
		KeyID:     string(full.KeyID),
		Secret:    full.Secret,
		ProjectID: projectID,
		EnvID:     envID,
	})
	if err != nil {
		return authn.Principal{}, fmt.Errorf("hubclient: encoding verify-api-key request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/verify-api-key", bytes.NewReader(body))
	if err != nil {
		return authn.Principal{}, fmt.Errorf("hubclient: building verify-api-key request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return authn.Principal{}, fmt.Errorf("hubclient: calling verify-api-key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return authn.Principal{}, fmt.Errorf("hubclient: verify-api-key rejected the key (status %d)", resp.StatusCode)
	}

	var wire verifyAPIKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return authn.Principal{}, fmt.Errorf("hubclient: decoding verify-api-key response: %w", err)
	}

	status, ok := authn.ParseAPIKeyStatus(wire.Status)
	if !ok {
		return authn.Principal{}, fmt.Errorf("hubclient: unrecognized api key status %q", wire.Status)
	}

	key := authn.APIKey{
		ID:        authn.APIKeyID(wire.ID),
		Name:      wire.Name,
		ProjectID: wire.ProjectID,
		EnvID:     wire.EnvID,
		Roles:     wire.Roles,
		Status:    status,
	}

	return authn.VerifyAPIKey(key, projectID, envID)
}

// Fetch implements release.Fetcher: GET /internal/releases/current for
// the given project/env, decoded straight into a release.Release.
func (c *Client) Fetch(ctx context.Context, key release.Key) (release.Release, error) {
	endpoint := c.baseURL + "/internal/releases/current?" + url.Values{
		"projectId": {key.ProjectID},
		"envId":     {key.EnvID},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return release.Release{}, fmt.Errorf("hubclient: building fetch-current-release request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return release.Release{}, fmt.Errorf("hubclient: calling fetch-current-release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return release.Release{}, fmt.Errorf("hubclient: fetch-current-release returned status %d for %s", resp.StatusCode, key.CacheKey())
	}

	var payload releasePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return release.Release{}, fmt.Errorf("hubclient: decoding release payload: %w", err)
	}

	rel := release.Release{
		ID:          payload.ID,
		ProjectID:   payload.ProjectID,
		EnvID:       payload.EnvID,
		Schema:      payload.Schema,
		Permissions: payload.Permissions,
		Storage:     payload.Storage,
		PublishedAt: payload.PublishedAt,
	}
	if len(payload.Logics) > 0 {
		rel.Logics = make(map[string]release.LogicFile, len(payload.Logics))
		for name, raw := range payload.Logics {
			logic, err := release.ParseLogicFile(name, raw)
			if err != nil {
				return release.Release{}, fmt.Errorf("hubclient: %w", err)
			}
			rel.Logics[name] = logic
		}
	}

	for bucket, cfg := range rel.Storage.Buckets {
		for i := range cfg.Policies {
			if err := cfg.Policies[i].ResolveMaxSize(); err != nil {
				return release.Release{}, fmt.Errorf("hubclient: release %s: %w", bucket, err)
			}
		}
		rel.Storage.Buckets[bucket] = cfg
	}

	return rel, nil
}
