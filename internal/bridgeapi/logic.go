package bridgeapi

import (
	"context"
	"strings"

	"github.com/cookieshake/santokit-sub000/internal/bridgeerr"
	"github.com/cookieshake/santokit-sub000/pkg/permissions"
	"github.com/cookieshake/santokit-sub000/pkg/release"
)

// handleLogic executes a declared logics/<name> SQL template: it checks
// the caller's role/condition against the logic file's own requirements
// (independent of any table's permissions), rewrites the template's named
// parameters to positional binds, and runs it with either a row-set
// projection (SELECT, or any statement with a RETURNING clause) or a bare
// exec (everything else).
func (h *Handler) handleLogic(ctx context.Context, reqCtx RequestContext, route Route, params map[string]any) (CallResponse, error) {
	logic, ok := reqCtx.Release.Logics[route.LogicName]
	if !ok {
		return CallResponse{}, bridgeerr.NotFound("LOGIC_NOT_FOUND", "logic \""+route.LogicName+"\" is not declared in this release")
	}

	if !logicRoleMatches(logic.Roles, reqCtx.Auth) {
		return CallResponse{}, bridgeerr.Forbidden("FORBIDDEN", "caller does not hold a role permitted to run this logic")
	}

	evalCtx := permissions.NewEvalContext().WithAuth(reqCtx.Auth).WithParams(params)
	if logic.Condition != "" {
		allowed, err := h.Evaluator.EvaluateCondition(logic.Condition, evalCtx)
		if err != nil {
			return CallResponse{}, bridgeerr.Internal("CONDITION_EVAL_FAILED", err.Error())
		}
		if !allowed {
			return CallResponse{}, bridgeerr.Forbidden("FORBIDDEN", "logic condition denied the request")
		}
	}

	if err := validateLogicParams(logic.Params, params); err != nil {
		return CallResponse{}, err
	}

	sqlText, args, err := rewriteNamedParams(logic.SQL, logic.Params, params)
	if err != nil {
		return CallResponse{}, err
	}

	pool, err := h.poolForDefaultConnection(ctx, reqCtx.Release)
	if err != nil {
		return CallResponse{}, err
	}

	rows, err := pool.Query(ctx, sqlText, args...)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("LOGIC_EXEC_FAILED", err.Error())
	}
	defer rows.Close()

	result, err := projectRows(rows)
	if err != nil {
		return CallResponse{}, bridgeerr.Internal("LOGIC_EXEC_FAILED", err.Error())
	}

	if !returnsRows(sqlText) {
		return CallResponse{Data: map[string]any{"ok": true}}, nil
	}

	return CallResponse{Data: result, Meta: CallMeta{Count: len(result)}}, nil
}

// logicRoleMatches mirrors the permissions.Evaluator's role-matching
// rule, but against a logic file's own Roles list rather than a table's
// OperationPermission — a logic file has no associated table, so it
// can't go through permissions.Evaluator.Evaluate directly.
func logicRoleMatches(roles []permissions.RoleRequirement, auth permissions.AuthContext) bool {
	if len(roles) == 0 {
		return auth.IsAuthenticated()
	}
	for _, req := range roles {
		switch {
		case req.IsPublic():
			return true
		case req.IsAuthenticated():
			if auth.IsAuthenticated() {
				return true
			}
		default:
			if auth.HasRole(req.RoleName()) {
				return true
			}
		}
	}
	return false
}

func validateLogicParams(defs []release.LogicParam, provided map[string]any) error {
	for _, def := range defs {
		if def.Required && def.Default == nil {
			if _, ok := provided[def.Name]; !ok {
				return bridgeerr.BadRequest("MISSING_PARAM", "missing required parameter \""+def.Name+"\"")
			}
		}
	}
	return nil
}

// returnsRows reports whether sqlText's leading statement keyword (or a
// RETURNING clause on a mutation) produces a result set worth projecting.
func returnsRows(sqlText string) bool {
	trimmed := strings.TrimSpace(sqlText)
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
		return true
	}
	return strings.Contains(upper, "RETURNING")
}

// poolForDefaultConnection resolves the pool a logic file runs against.
// Logic files are not scoped to a single table, so they run against the
// release schema's default connection rather than a per-table one.
func (h *Handler) poolForDefaultConnection(ctx context.Context, rel release.Release) (dbExecutor, error) {
	conn, ok := rel.Schema.DefaultConnection()
	if !ok {
		return nil, bridgeerr.Internal("NO_CONNECTION", "release declares no database connection")
	}
	pool, err := h.Pools.Get(ctx, conn.DBURL)
	if err != nil {
		return nil, bridgeerr.Internal("CONNECTION_FAILED", err.Error())
	}
	return pool, nil
}
