// Package permissions implements the Policy Evaluator: first-match-wins
// role selection plus CEL condition evaluation, including the owner-
// predicate-to-WHERE translation that lets an ownership check run as a SQL
// filter instead of a post-fetch check.
package permissions

import (
	"encoding/json"
	"strings"
)

// Policy is the root of a release's permission declarations, keyed by
// table name.
type Policy struct {
	Tables map[string]TablePermissions `json:"tables" yaml:"tables"`
}

// TablePermissions holds the per-operation rule and the column-level
// overrides for one table.
type TablePermissions struct {
	Select  *OperationPermission `json:"select,omitempty" yaml:"select,omitempty"`
	Insert  *OperationPermission `json:"insert,omitempty" yaml:"insert,omitempty"`
	Update  *OperationPermission `json:"update,omitempty" yaml:"update,omitempty"`
	Delete  *OperationPermission `json:"delete,omitempty" yaml:"delete,omitempty"`
	Columns *ColumnPermissions   `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// Operation identifies a CRUD verb.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ParseOperation parses a lowercase CRUD verb.
func ParseOperation(s string) (Operation, bool) {
	switch strings.ToLower(s) {
	case "select":
		return OpSelect, true
	case "insert":
		return OpInsert, true
	case "update":
		return OpUpdate, true
	case "delete":
		return OpDelete, true
	default:
		return "", false
	}
}

// Get returns the rule-list for op, or nil if the table declares none.
func (t *TablePermissions) Get(op Operation) *OperationPermission {
	switch op {
	case OpSelect:
		return t.Select
	case OpInsert:
		return t.Insert
	case OpUpdate:
		return t.Update
	case OpDelete:
		return t.Delete
	default:
		return nil
	}
}

// OperationPermission is an ordered list of role requirements plus an
// optional CEL condition, evaluated first-match-wins.
type OperationPermission struct {
	Roles     []RoleRequirement `json:"roles" yaml:"roles"`
	Condition string            `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// RoleRequirement is one of "public", "authenticated", or a named role.
type RoleRequirement struct {
	kind string // "public" | "authenticated" | "role"
	role string
}

var (
	RolePublic        = RoleRequirement{kind: "public"}
	RoleAuthenticated = RoleRequirement{kind: "authenticated"}
)

// Role constructs a named-role requirement.
func Role(name string) RoleRequirement {
	return RoleRequirement{kind: "role", role: name}
}

// ParseRoleRequirement parses a string from a policy YAML/JSON document.
func ParseRoleRequirement(s string) RoleRequirement {
	switch s {
	case "public":
		return RolePublic
	case "authenticated":
		return RoleAuthenticated
	default:
		return Role(s)
	}
}

func (r RoleRequirement) IsPublic() bool        { return r.kind == "public" }
func (r RoleRequirement) IsAuthenticated() bool { return r.kind == "authenticated" }
func (r RoleRequirement) RoleName() string      { return r.role }

// MarshalYAML/UnmarshalYAML let RoleRequirement round-trip through a
// release's permissions.yaml as a plain string, the way the declarative
// policy file is authored.
func (r RoleRequirement) MarshalYAML() (any, error) {
	if r.kind == "role" {
		return r.role, nil
	}
	return r.kind, nil
}

func (r *RoleRequirement) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*r = ParseRoleRequirement(s)
	return nil
}

// MarshalJSON/UnmarshalJSON give RoleRequirement the same plain-string form
// in the Hub's JSON release payload and in the release cache's Redis copy.
func (r RoleRequirement) MarshalJSON() ([]byte, error) {
	s, _ := r.MarshalYAML()
	return json.Marshal(s)
}

func (r *RoleRequirement) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseRoleRequirement(s)
	return nil
}

// ColumnPermissions lists include/exclude glob rules (a trailing "*" is a
// prefix wildcard, a leading "!" negates) per operation.
type ColumnPermissions struct {
	Select []string `json:"select,omitempty" yaml:"select,omitempty"`
	Insert []string `json:"insert,omitempty" yaml:"insert,omitempty"`
	Update []string `json:"update,omitempty" yaml:"update,omitempty"`
}

func (c *ColumnPermissions) AllowsSelect(column string) bool { return matchesColumnRules(c.Select, column) }
func (c *ColumnPermissions) AllowsInsert(column string) bool { return matchesColumnRules(c.Insert, column) }
func (c *ColumnPermissions) AllowsUpdate(column string) bool { return matchesColumnRules(c.Update, column) }

func matchesColumnRules(rules []string, column string) bool {
	if len(rules) == 0 {
		return true
	}

	allowed := false
	for _, rule := range rules {
		if rule == "*" {
			allowed = true
			continue
		}
		if strings.HasPrefix(rule, "!") {
			if matchesPattern(rule[1:], column) {
				allowed = false
			}
			continue
		}
		if matchesPattern(rule, column) {
			allowed = true
		}
	}
	return allowed
}

func matchesPattern(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(name, prefix)
	}
	return pattern == name
}
