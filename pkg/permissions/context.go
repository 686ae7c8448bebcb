package permissions

// PrincipalType distinguishes an API key caller from an end-user caller;
// it changes which claims a token carries and which scopes are available.
type PrincipalType string

const (
	PrincipalEndUser PrincipalType = "end_user"
	PrincipalAPIKey  PrincipalType = "api_key"
)

// AuthContext is the authenticated identity attached to a request, or the
// zero value for an anonymous caller.
type AuthContext struct {
	Sub           string
	Roles         []string
	ProjectID     string
	EnvID         string
	PrincipalType PrincipalType
}

// AnonymousAuth is the AuthContext used when a request carries no
// credentials; Sub is empty and no role other than "public" applies.
func AnonymousAuth() AuthContext {
	return AuthContext{}
}

// FromAPIKey builds the auth context for a request authenticated by an API
// key.
func FromAPIKey(keyID, projectID, envID string, roles []string) AuthContext {
	return AuthContext{
		Sub:           keyID,
		Roles:         roles,
		ProjectID:     projectID,
		EnvID:         envID,
		PrincipalType: PrincipalAPIKey,
	}
}

// FromEndUser builds the auth context for a request authenticated by an
// end-user access token.
func FromEndUser(userID, projectID, envID string, roles []string) AuthContext {
	return AuthContext{
		Sub:           userID,
		Roles:         roles,
		ProjectID:     projectID,
		EnvID:         envID,
		PrincipalType: PrincipalEndUser,
	}
}

// HasRole reports whether the caller carries the named role.
func (a AuthContext) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAuthenticated reports whether the caller presented any credential at
// all (API key or end-user token) — it does not distinguish between the
// two, matching the policy semantics of the "authenticated" role
// requirement.
func (a AuthContext) IsAuthenticated() bool {
	return a.Sub != ""
}

// IsEndUserAuthenticated reports whether the caller is specifically an
// authenticated end user, as opposed to an API key. Not currently
// referenced by policy evaluation (which treats "authenticated" as either
// principal type) but kept for a narrower scope a future policy rule may
// want.
func (a AuthContext) IsEndUserAuthenticated() bool {
	return a.Sub != "" && a.PrincipalType == PrincipalEndUser
}

// EvalContext is the full evaluation environment for one permission check:
// the caller's identity, the request's bound parameters, and an optional
// resource row. The /call pipeline never sets Resource: owner checks are
// pushed into SQL instead of being evaluated against a fetched row.
type EvalContext struct {
	Auth     AuthContext
	Params   map[string]any
	Resource map[string]any
}

// NewEvalContext builds a bare evaluation context for an anonymous caller
// with no bound params.
func NewEvalContext() EvalContext {
	return EvalContext{Params: map[string]any{}}
}

// WithAuth returns a copy of the context with auth replaced.
func (c EvalContext) WithAuth(auth AuthContext) EvalContext {
	c.Auth = auth
	return c
}

// WithParams returns a copy of the context with params replaced.
func (c EvalContext) WithParams(params map[string]any) EvalContext {
	c.Params = params
	return c
}

// WithResource returns a copy of the context with the target row attached,
// bound as `resource` when a condition is evaluated.
func (c EvalContext) WithResource(resource map[string]any) EvalContext {
	c.Resource = resource
	return c
}

// ToCELVariables builds the variable bindings a condition expression is
// evaluated against: request.auth.{sub,roles,project_id,env_id},
// request.params, and top-level resource (an empty map when none is
// attached).
func (c EvalContext) ToCELVariables() map[string]any {
	auth := map[string]any{
		"sub":        c.Auth.Sub,
		"roles":      c.Auth.Roles,
		"project_id": c.Auth.ProjectID,
		"env_id":     c.Auth.EnvID,
	}

	params := c.Params
	if params == nil {
		params = map[string]any{}
	}

	vars := map[string]any{
		"request": map[string]any{
			"auth":   auth,
			"params": params,
		},
	}
	if c.Resource != nil {
		vars["resource"] = c.Resource
	} else {
		vars["resource"] = map[string]any{}
	}
	return vars
}
