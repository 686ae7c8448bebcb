// Package release holds the Release Cache: the Bridge's in-process (and
// optionally Redis-backed) cache of each project/env's active release,
// fetched from the Hub and held for a configurable TTL so the hot path of
// a /call request never waits on the Hub.
package release

import (
	"time"

	"github.com/cookieshake/santokit-sub000/pkg/permissions"
	"github.com/cookieshake/santokit-sub000/pkg/schema"
	"github.com/cookieshake/santokit-sub000/pkg/storage"
)

// Release is everything the /call pipeline needs about a project/env's
// currently active deployment: its schema, its permission policy, its
// declared logic files, and its storage configuration.
type Release struct {
	ID          string
	ProjectID   string
	EnvID       string
	Schema      schema.SchemaIR
	Permissions permissions.Policy
	Storage     storage.Config
	Logics      map[string]LogicFile
	PublishedAt time.Time
}

// LogicFile is one declared logics/<name> entry: its SQL template (with
// :named parameters) and its own role/condition requirements, parsed
// from the release bundle's YAML front matter.
type LogicFile struct {
	Name      string
	SQL       string
	Roles     []permissions.RoleRequirement
	Condition string
	Params    []LogicParam
}

// LogicParam declares one named parameter a logic file's SQL expects.
// Required and Default are applied when the SQL is rewritten to
// positional placeholders. Type is carried from the front matter, but a
// supplied value is not checked against it.
type LogicParam struct {
	Name     string
	Type     schema.ColumnType
	Required bool
	Default  *string
}

// Key identifies a release by its project/env pair, the cache's lookup
// key and the Hub's addressing scheme for "the active release".
type Key struct {
	ProjectID string
	EnvID     string
}

// CacheKey renders the key the way the cache (and any Redis L2) stores it
// under: "{project}:{env}".
func (k Key) CacheKey() string {
	return k.ProjectID + ":" + k.EnvID
}

// Cached wraps a Release with the time it was fetched, so the cache can
// decide when to refresh it.
type Cached struct {
	Release  Release
	CachedAt time.Time
}

// IsFresh reports whether the cached copy is still within ttl of now.
func (c Cached) IsFresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(c.CachedAt) < ttl
}
