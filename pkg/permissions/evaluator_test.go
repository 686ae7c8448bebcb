package permissions

import (
	"errors"
	"testing"
)

func TestExtractOwnerColumn(t *testing.T) {
	col, ok := ExtractOwnerColumn("resource.owner_id == request.auth.sub")
	if !ok || col != "owner_id" {
		t.Fatalf("ExtractOwnerColumn() = (%q, %v), want (owner_id, true)", col, ok)
	}

	if _, ok := ExtractOwnerColumn("resource.owner_id == request.params.id"); ok {
		t.Errorf("expected non-owner condition to not match")
	}
}

func TestEvaluatePublicAllowsAnonymous(t *testing.T) {
	ev, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	policy := &Policy{Tables: map[string]TablePermissions{
		"posts": {Select: &OperationPermission{Roles: []RoleRequirement{RolePublic}}},
	}}

	decision, err := ev.Evaluate(policy, "posts", OpSelect, NewEvalContext())
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("expected public select to be allowed for anonymous caller")
	}
}

func TestEvaluateUndeclaredOperationDeniesAnonymous(t *testing.T) {
	ev, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	policy := &Policy{Tables: map[string]TablePermissions{
		"posts": {Select: &OperationPermission{Roles: []RoleRequirement{RolePublic}}},
	}}

	decision, err := ev.Evaluate(policy, "posts", OpDelete, NewEvalContext())
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if decision.Allowed {
		t.Errorf("expected undeclared delete rule to deny an anonymous caller")
	}
}

func TestEvaluateUndeclaredOperationAllowsAuthenticated(t *testing.T) {
	ev, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	policy := &Policy{Tables: map[string]TablePermissions{
		"posts": {Select: &OperationPermission{Roles: []RoleRequirement{RolePublic}}},
	}}

	ctx := NewEvalContext().WithAuth(FromEndUser("user-1", "p1", "e1", nil))
	decision, err := ev.Evaluate(policy, "posts", OpDelete, ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("expected an authenticated caller to default-allow an undeclared rule")
	}

	decision, err = ev.Evaluate(policy, "comments", OpSelect, ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("expected an authenticated caller to default-allow a table with no declared policy at all")
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	ev, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	policy := &Policy{Tables: map[string]TablePermissions{
		"posts": {Update: &OperationPermission{
			Roles: []RoleRequirement{Role("admin"), RoleAuthenticated},
		}},
	}}

	ctx := NewEvalContext().WithAuth(FromEndUser("user-1", "p1", "e1", []string{"member"}))
	decision, err := ev.Evaluate(policy, "posts", OpUpdate, ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("expected authenticated fallback rule to allow a non-admin authenticated caller")
	}
}

func TestEvaluateOwnerPredicateReturnsColumn(t *testing.T) {
	ev, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	policy := &Policy{Tables: map[string]TablePermissions{
		"posts": {Update: &OperationPermission{
			Roles:     []RoleRequirement{RoleAuthenticated},
			Condition: "resource.owner_id == request.auth.sub",
		}},
	}}

	ctx := NewEvalContext().WithAuth(FromEndUser("user-1", "p1", "e1", nil))
	decision, err := ev.Evaluate(policy, "posts", OpUpdate, ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !decision.Allowed || decision.OwnerColumn != "owner_id" {
		t.Fatalf("decision = %+v, want Allowed=true OwnerColumn=owner_id", decision)
	}
}

func TestEvaluateGeneralResourceConditionRejectedAsUnsupported(t *testing.T) {
	ev, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	policy := &Policy{Tables: map[string]TablePermissions{
		"posts": {Update: &OperationPermission{
			Roles:     []RoleRequirement{RoleAuthenticated},
			Condition: "resource.status != \"locked\"",
		}},
	}}

	ctx := NewEvalContext().WithAuth(FromEndUser("user-1", "p1", "e1", nil))
	_, err = ev.Evaluate(policy, "posts", OpUpdate, ctx)
	if !errors.Is(err, ErrUnsupportedCondition) {
		t.Fatalf("Evaluate() error = %v, want ErrUnsupportedCondition", err)
	}
}

func TestEvaluateRequestOnlyConditionEvaluatedDirectlyOnInsert(t *testing.T) {
	ev, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	policy := &Policy{Tables: map[string]TablePermissions{
		"posts": {Insert: &OperationPermission{
			Roles:     []RoleRequirement{RoleAuthenticated},
			Condition: "request.params.status != \"banned\"",
		}},
	}}

	ctx := NewEvalContext().WithAuth(FromEndUser("user-1", "p1", "e1", nil)).WithParams(map[string]any{"status": "draft"})
	decision, err := ev.Evaluate(policy, "posts", OpInsert, ctx)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !decision.Allowed {
		t.Errorf("expected a request-only condition to be evaluated directly and allow")
	}
}

func TestEvaluatorCachesCompiledPrograms(t *testing.T) {
	ev, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	const cond = "request.auth.roles.exists(r, r == \"admin\")"
	ctx := NewEvalContext().WithAuth(FromEndUser("u1", "p1", "e1", []string{"admin"}))

	first, err := ev.EvaluateCondition(cond, ctx)
	if err != nil {
		t.Fatalf("EvaluateCondition() error: %v", err)
	}
	if !first {
		t.Errorf("expected admin role condition to be true")
	}

	if _, ok := ev.programs[cond]; !ok {
		t.Errorf("expected condition to be cached after first evaluation")
	}

	second, err := ev.EvaluateCondition(cond, ctx)
	if err != nil {
		t.Fatalf("EvaluateCondition() second call error: %v", err)
	}
	if second != first {
		t.Errorf("cached program produced a different result")
	}
}
