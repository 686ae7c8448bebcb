package permissions

import "testing"

func TestMatchesColumnRules(t *testing.T) {
	cases := []struct {
		name  string
		rules []string
		col   string
		want  bool
	}{
		{"no rules allows everything", nil, "email", true},
		{"wildcard allows everything", []string{"*"}, "email", true},
		{"exact match", []string{"email"}, "email", true},
		{"exact mismatch", []string{"email"}, "phone", false},
		{"prefix wildcard", []string{"s_*"}, "s_token", true},
		{"prefix wildcard mismatch", []string{"s_*"}, "email", false},
		{"negated prefix excludes after wildcard", []string{"*", "!s_*"}, "s_token", false},
		{"negated prefix leaves others allowed", []string{"*", "!s_*"}, "email", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := matchesColumnRules(tc.rules, tc.col); got != tc.want {
				t.Errorf("matchesColumnRules(%v, %q) = %v, want %v", tc.rules, tc.col, got, tc.want)
			}
		})
	}
}

func TestRoleRequirementParsing(t *testing.T) {
	if r := ParseRoleRequirement("public"); !r.IsPublic() {
		t.Errorf("expected public")
	}
	if r := ParseRoleRequirement("authenticated"); !r.IsAuthenticated() {
		t.Errorf("expected authenticated")
	}
	r := ParseRoleRequirement("admin")
	if r.IsPublic() || r.IsAuthenticated() {
		t.Errorf("expected named role")
	}
	if r.RoleName() != "admin" {
		t.Errorf("RoleName() = %q, want admin", r.RoleName())
	}
}

func TestTablePermissionsGet(t *testing.T) {
	selectPerm := &OperationPermission{Roles: []RoleRequirement{RolePublic}}
	tp := TablePermissions{Select: selectPerm}

	if tp.Get(OpSelect) != selectPerm {
		t.Errorf("Get(OpSelect) did not return the declared rule")
	}
	if tp.Get(OpInsert) != nil {
		t.Errorf("Get(OpInsert) should be nil when undeclared")
	}
}
