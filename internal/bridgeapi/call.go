package bridgeapi

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cookieshake/santokit-sub000/internal/bridgeerr"
	"github.com/cookieshake/santokit-sub000/pkg/authn"
	"github.com/cookieshake/santokit-sub000/pkg/permissions"
	"github.com/cookieshake/santokit-sub000/pkg/release"
	"github.com/cookieshake/santokit-sub000/pkg/storage"
)

// CallRequest is the decoded body of POST /call.
type CallRequest struct {
	Path   string         `json:"path" validate:"required"`
	Params map[string]any `json:"params"`
}

// CallResponse is the successful wire shape of POST /call.
type CallResponse struct {
	Data any      `json:"data"`
	Meta CallMeta `json:"meta"`
}

// CallMeta carries the row count for list-shaped results (SELECT,
// UPDATE, DELETE); it is omitted (zero value) for a single-row or
// no-row-shaped result (a single INSERT, a storage presign).
type CallMeta struct {
	Count int `json:"count,omitempty"`
}

// RequestContext is everything the pipeline stages after authentication
// carry forward: the caller's identity, the resolved release, and the
// project/env scope the request was authenticated against.
type RequestContext struct {
	Auth      permissions.AuthContext
	Release   release.Release
	ProjectID string
	EnvID     string
}

// Pools resolves a pgxpool.Pool for a connection's db_url, creating and
// caching one per distinct URL on first use.
type Pools interface {
	Get(ctx context.Context, dbURL string) (*pgxpool.Pool, error)
}

// Handler wires together every dependency the /call pipeline needs.
type Handler struct {
	Releases    *release.Cache
	Evaluator   *permissions.Evaluator
	Validator   *authn.Validator
	Pools       Pools
	StorageCfg  func(rel release.Release) storage.Config
	Broker      *storage.Broker
	Logger      *slog.Logger
	DisableAuth bool
}

// Dispatch routes an already-authenticated request to its handling
// surface and returns the response payload.
func (h *Handler) Dispatch(ctx context.Context, reqCtx RequestContext, route Route, params map[string]any) (CallResponse, error) {
	switch route.Kind {
	case RouteKindDB:
		return h.handleAutoCRUD(ctx, reqCtx, route, params)
	case RouteKindLogic:
		return h.handleLogic(ctx, reqCtx, route, params)
	case RouteKindStorage:
		return h.handleStorage(ctx, reqCtx, route, params)
	default:
		return CallResponse{}, bridgeerr.Internal("UNKNOWN_ROUTE", "unrecognized route kind")
	}
}
