package permissions

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// Decision is the outcome of evaluating one operation against a policy.
// When the matched rule's condition is an owner predicate
// ("resource.<col> == request.auth.sub"), OwnerColumn names the column so
// the caller can push the check down into the SQL WHERE clause instead of
// fetching the row first — the common case for scoping a SELECT/UPDATE/
// DELETE to "rows I own" without an extra round trip.
type Decision struct {
	Allowed     bool
	OwnerColumn string
}

// ErrUnsupportedCondition is returned by Evaluate when a matched rule's
// condition references resource.* in some form other than the owner
// predicate, on an operation that targets an existing row
// (select/update/delete). The database cannot filter on an arbitrary
// resource.* expression without a subquery, and evaluating it by
// fetching candidate rows first and filtering them in process risks
// leaking rows the caller was never meant to see; such conditions are
// rejected outright rather than silently approximated.
var ErrUnsupportedCondition = errors.New("permissions: condition is not an owner predicate and cannot be evaluated without fetching the target row")

// ownerPredicate matches a condition of the exact shape
// `resource.<column> == request.auth.sub`, the one condition form the SQL
// Builder can translate into a bound WHERE conjunct instead of evaluating
// via CEL against an already-fetched row.
var ownerPredicate = regexp.MustCompile(`^resource\.([a-zA-Z_][a-zA-Z0-9_]*)\s*==\s*request\.auth\.sub$`)

// ExtractOwnerColumn reports whether condition is an owner predicate and,
// if so, which column it compares against the caller's subject.
func ExtractOwnerColumn(condition string) (string, bool) {
	m := ownerPredicate.FindStringSubmatch(condition)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Evaluator evaluates permission policies, caching compiled CEL programs
// by condition string across calls (condition strings repeat across
// requests for the same release).
type Evaluator struct {
	env      *cel.Env
	mu       sync.Mutex
	programs map[string]cel.Program
}

// NewEvaluator builds an Evaluator with the CEL environment the Policy
// Evaluator exposes to condition expressions: request.auth.*,
// request.params, resource.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("request", cel.DynType),
		cel.Variable("resource", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("permissions: building CEL environment: %w", err)
	}
	return &Evaluator{env: env, programs: map[string]cel.Program{}}, nil
}

// Evaluate decides whether op on table is permitted under policy for ctx,
// evaluating the table's role requirements first-match-wins. Public
// always matches the role check (the operation's condition, if any, still
// applies); an owner-predicate condition is reported via
// Decision.OwnerColumn rather than evaluated here, so the caller pushes it
// into the SQL WHERE clause for SELECT, UPDATE and DELETE alike.
//
// A table/op with no declared rule at all falls back to the default: an
// authenticated caller is allowed, an anonymous one is denied.
func (e *Evaluator) Evaluate(policy *Policy, table string, op Operation, ctx EvalContext) (Decision, error) {
	tp, ok := policy.Tables[table]
	if !ok {
		return Decision{Allowed: ctx.Auth.IsAuthenticated()}, nil
	}

	perm := tp.Get(op)
	if perm == nil {
		return Decision{Allowed: ctx.Auth.IsAuthenticated()}, nil
	}

	roles := perm.Roles
	if len(roles) == 0 {
		roles = []RoleRequirement{RoleAuthenticated}
	}

	for _, req := range roles {
		matched := false
		switch {
		case req.IsPublic():
			matched = true
		case req.IsAuthenticated():
			matched = ctx.Auth.IsAuthenticated()
		default:
			matched = ctx.Auth.HasRole(req.RoleName())
		}
		if !matched {
			continue
		}

		if perm.Condition == "" {
			return Decision{Allowed: true}, nil
		}
		if col, ok := ExtractOwnerColumn(perm.Condition); ok {
			return Decision{Allowed: true, OwnerColumn: col}, nil
		}

		// Select/update/delete target existing rows: a non-owner condition
		// referencing resource.* would need that row bound as `resource` to
		// evaluate, and SQL can't push an arbitrary CEL expression into the
		// WHERE clause, so it's rejected rather than approximated via
		// fetch-then-filter.
		if (op == OpSelect || op == OpUpdate || op == OpDelete) && strings.Contains(perm.Condition, "resource.") {
			return Decision{}, ErrUnsupportedCondition
		}

		allowed, err := e.EvaluateCondition(perm.Condition, ctx)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: allowed}, nil
	}

	return Decision{Allowed: false}, nil
}

// EvaluateCondition runs a non-owner-predicate CEL condition against ctx:
// Evaluate uses it for conditions that do not reference resource.* (or
// that do, on insert), and logic files use it for their own conditions.
func (e *Evaluator) EvaluateCondition(condition string, ctx EvalContext) (bool, error) {
	program, err := e.compile(condition)
	if err != nil {
		return false, err
	}

	out, _, err := program.Eval(ctx.ToCELVariables())
	if err != nil {
		return false, fmt.Errorf("permissions: evaluating condition %q: %w", condition, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("permissions: condition %q did not evaluate to a boolean", condition)
	}
	return result, nil
}

func (e *Evaluator) compile(condition string) (cel.Program, error) {
	e.mu.Lock()
	if p, ok := e.programs[condition]; ok {
		e.mu.Unlock()
		return p, nil
	}
	e.mu.Unlock()

	ast, issues := e.env.Compile(condition)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("permissions: compiling condition %q: %w", condition, issues.Err())
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("permissions: building program for condition %q: %w", condition, err)
	}

	e.mu.Lock()
	e.programs[condition] = program
	e.mu.Unlock()

	return program, nil
}
