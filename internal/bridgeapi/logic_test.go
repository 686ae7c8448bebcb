package bridgeapi

import (
	"testing"

	"github.com/cookieshake/santokit-sub000/pkg/permissions"
	"github.com/cookieshake/santokit-sub000/pkg/release"
)

func TestLogicRoleMatchesNoRolesRequiresAuthentication(t *testing.T) {
	if logicRoleMatches(nil, permissions.AnonymousAuth()) {
		t.Error("expected an anonymous caller to be rejected when no roles are declared")
	}
	if !logicRoleMatches(nil, permissions.FromEndUser("u1", "p", "e", nil)) {
		t.Error("expected an authenticated caller to be allowed when no roles are declared")
	}
}

func TestLogicRoleMatchesPublic(t *testing.T) {
	roles := []permissions.RoleRequirement{permissions.ParseRoleRequirement("public")}
	if !logicRoleMatches(roles, permissions.AnonymousAuth()) {
		t.Error("expected public role to allow an anonymous caller")
	}
}

func TestLogicRoleMatchesAuthenticated(t *testing.T) {
	roles := []permissions.RoleRequirement{permissions.ParseRoleRequirement("authenticated")}
	if logicRoleMatches(roles, permissions.AnonymousAuth()) {
		t.Error("expected authenticated role to reject an anonymous caller")
	}
	if !logicRoleMatches(roles, permissions.FromEndUser("u1", "p", "e", nil)) {
		t.Error("expected authenticated role to allow an authenticated caller")
	}
}

func TestLogicRoleMatchesNamedRole(t *testing.T) {
	roles := []permissions.RoleRequirement{permissions.Role("admin")}
	if logicRoleMatches(roles, permissions.FromEndUser("u1", "p", "e", []string{"member"})) {
		t.Error("expected a caller without the named role to be rejected")
	}
	if !logicRoleMatches(roles, permissions.FromEndUser("u1", "p", "e", []string{"admin"})) {
		t.Error("expected a caller with the named role to be allowed")
	}
}

func TestValidateLogicParamsMissingRequired(t *testing.T) {
	defs := []release.LogicParam{{Name: "author_id", Required: true}}
	if err := validateLogicParams(defs, map[string]any{}); err == nil {
		t.Error("expected an error for a missing required parameter")
	}
}

func TestValidateLogicParamsRequiredWithDefaultIsOptional(t *testing.T) {
	d := "draft"
	defs := []release.LogicParam{{Name: "status", Required: true, Default: &d}}
	if err := validateLogicParams(defs, map[string]any{}); err != nil {
		t.Errorf("expected a required param with a default to not need an explicit value: %v", err)
	}
}

func TestValidateLogicParamsSatisfied(t *testing.T) {
	defs := []release.LogicParam{{Name: "author_id", Required: true}}
	if err := validateLogicParams(defs, map[string]any{"author_id": "u1"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
