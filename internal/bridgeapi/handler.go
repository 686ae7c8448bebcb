package bridgeapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cookieshake/santokit-sub000/internal/bridgeerr"
	"github.com/cookieshake/santokit-sub000/internal/httpserver"
	"github.com/cookieshake/santokit-sub000/internal/ratelimit"
	"github.com/cookieshake/santokit-sub000/internal/telemetry"
	"github.com/cookieshake/santokit-sub000/pkg/authn"
	"github.com/cookieshake/santokit-sub000/pkg/permissions"
	"github.com/cookieshake/santokit-sub000/pkg/release"
)

// APIKeyVerifier verifies an API key's secret against the Hub and
// resolves its principal.
type APIKeyVerifier interface {
	VerifyAPIKey(ctx context.Context, full authn.Full, projectID, envID string) (authn.Principal, error)
}

// Server wires the full POST /call pipeline: rate limiting,
// authentication, release resolution, then Handler.Dispatch. It is
// mounted onto an httpserver.Server's Router by the caller to avoid an
// import cycle between httpserver and bridgeapi.
type Server struct {
	Handler   *Handler
	Limiter   ratelimit.Limiter
	APIKeys   APIKeyVerifier
	Now       func() time.Time
}

// Mount registers POST /call on r.
func (s *Server) Mount(r chi.Router) {
	r.Post("/call", s.handleCall)
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clientIP := ratelimit.ClientIP(r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-Ip"))
	allowed, err := s.Limiter.Allow(ctx, clientIP)
	if err != nil {
		s.Handler.Logger.Error("rate limiter error", "error", err)
		httpserver.RespondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "rate limiter unavailable")
		return
	}
	if !allowed {
		telemetry.RateLimitRejectedTotal.Inc()
		httpserver.RespondError(w, r, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "rate limit exceeded")
		return
	}

	var req CallRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	hintProjectID := r.Header.Get("X-Project")
	hintEnvID := r.Header.Get("X-Env")
	if (hintProjectID == "") != (hintEnvID == "") {
		httpserver.RespondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "X-Project and X-Env headers must be supplied together")
		return
	}

	auth, projectID, envID, err := s.authenticate(ctx, r, hintProjectID, hintEnvID)
	if err != nil {
		s.respondError(w, r, route{}, err)
		return
	}

	rel, err := s.Handler.Releases.Get(ctx, release.Key{ProjectID: projectID, EnvID: envID})
	if err != nil {
		s.respondError(w, r, route{}, bridgeerr.Internal("RELEASE_UNAVAILABLE", err.Error()))
		return
	}

	parsed, err := ParsePath(req.Path)
	if err != nil {
		s.respondError(w, r, route{kind: parsed.Kind}, err)
		return
	}

	reqCtx := RequestContext{Auth: auth, Release: rel, ProjectID: projectID, EnvID: envID}
	resp, err := s.Handler.Dispatch(ctx, reqCtx, parsed, req.Params)
	if err != nil {
		s.respondError(w, r, route{kind: parsed.Kind}, err)
		return
	}

	telemetry.CallRequestsTotal.WithLabelValues(string(parsed.Kind), "ok").Inc()
	httpserver.Respond(w, http.StatusOK, resp)
}

// route is a tiny label carrier for the error path, since a parse
// failure may occur before a full Route is known.
type route struct {
	kind RouteKind
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, rt route, err error) {
	kind := rt.kind
	if kind == "" {
		kind = "unknown"
	}

	if be, ok := bridgeerr.As(err); ok {
		telemetry.CallRequestsTotal.WithLabelValues(string(kind), string(be.Taxon)).Inc()
		httpserver.RespondBridgeError(w, r, be)
		return
	}

	telemetry.CallRequestsTotal.WithLabelValues(string(kind), "internal").Inc()
	httpserver.RespondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}

// authenticate resolves the request's credential, if any, into an
// AuthContext plus the project/env it's scoped to. X-Project/X-Env are
// optional context hints: when a credential is present, project/env are
// derived from the credential's own bound pair (the API key's scope, or
// the access token's claims), and a hint is only used to double-check
// agreement — a mismatch is Forbidden, not a missing-header error. With
// no credential (or DisableAuth), the hint is the only source of context
// and so becomes required.
//
// A request presenting no credential at all proceeds as anonymous — the
// Policy Evaluator's "public" role is what decides whether that's enough.
func (s *Server) authenticate(ctx context.Context, r *http.Request, hintProjectID, hintEnvID string) (permissions.AuthContext, string, string, error) {
	if s.Handler.DisableAuth {
		if hintProjectID == "" || hintEnvID == "" {
			return permissions.AuthContext{}, "", "", bridgeerr.BadRequest("BAD_REQUEST", "X-Project and X-Env headers are required")
		}
		return permissions.FromEndUser("dev", hintProjectID, hintEnvID, []string{"admin"}), hintProjectID, hintEnvID, nil
	}

	cred, ok := authn.FromHeaders(r.Header.Get("X-Api-Key"), r.Header.Get("Authorization"))
	if !ok {
		if hintProjectID == "" || hintEnvID == "" {
			return permissions.AuthContext{}, "", "", bridgeerr.BadRequest("BAD_REQUEST", "X-Project and X-Env headers are required")
		}
		return permissions.AuthContext{ProjectID: hintProjectID, EnvID: hintEnvID}, hintProjectID, hintEnvID, nil
	}

	switch t := cred.(type) {
	case authn.APIKeyToken:
		principal, err := s.APIKeys.VerifyAPIKey(ctx, t.Full, "", "")
		if err != nil {
			return permissions.AuthContext{}, "", "", bridgeerr.Unauthorized("INVALID_API_KEY", err.Error())
		}
		if err := checkContextAgreement(hintProjectID, hintEnvID, principal.ProjectID, principal.EnvID); err != nil {
			return permissions.AuthContext{}, "", "", err
		}
		return permissions.FromAPIKey(string(principal.KeyID), principal.ProjectID, principal.EnvID, principal.Roles), principal.ProjectID, principal.EnvID, nil

	case authn.AccessToken:
		principal, err := s.Handler.Validator.ValidateAccessToken(t.Raw, "", "", s.now())
		if err != nil {
			return permissions.AuthContext{}, "", "", bridgeerr.Unauthorized("INVALID_TOKEN", err.Error())
		}
		if err := checkContextAgreement(hintProjectID, hintEnvID, principal.ProjectID, principal.EnvID); err != nil {
			return permissions.AuthContext{}, "", "", err
		}
		return permissions.FromEndUser(principal.UserID, principal.ProjectID, principal.EnvID, principal.Roles), principal.ProjectID, principal.EnvID, nil

	default:
		if hintProjectID == "" || hintEnvID == "" {
			return permissions.AuthContext{}, "", "", bridgeerr.BadRequest("BAD_REQUEST", "X-Project and X-Env headers are required")
		}
		return permissions.AuthContext{ProjectID: hintProjectID, EnvID: hintEnvID}, hintProjectID, hintEnvID, nil
	}
}

// checkContextAgreement compares an optional X-Project/X-Env hint against
// the project/env actually bound to a verified credential. No hint means
// nothing to check; a hint that disagrees with the credential is rejected
// rather than silently overridden.
func checkContextAgreement(hintProjectID, hintEnvID, actualProjectID, actualEnvID string) error {
	if hintProjectID == "" && hintEnvID == "" {
		return nil
	}
	if hintProjectID != actualProjectID || hintEnvID != actualEnvID {
		return bridgeerr.Forbidden("CONTEXT_MISMATCH", "X-Project/X-Env do not match the credential's bound project/env")
	}
	return nil
}
