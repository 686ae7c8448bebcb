package release

import "testing"

func TestParseLogicFileWithFrontMatter(t *testing.T) {
	raw := `---
roles:
  - public
  - admin
condition: "request.params.status != 'banned'"
params:
  - name: author_id
    type: string
    required: true
  - name: status
    type: string
    required: false
    default: "draft"
---
SELECT * FROM posts WHERE author_id = :author_id AND status = :status
`
	logic, err := ParseLogicFile("monthly-report", raw)
	if err != nil {
		t.Fatalf("ParseLogicFile() error: %v", err)
	}
	if logic.Name != "monthly-report" {
		t.Errorf("Name = %q", logic.Name)
	}
	if len(logic.Roles) != 2 || !logic.Roles[0].IsPublic() {
		t.Errorf("Roles = %+v", logic.Roles)
	}
	if logic.Condition != "request.params.status != 'banned'" {
		t.Errorf("Condition = %q", logic.Condition)
	}
	if len(logic.Params) != 2 {
		t.Fatalf("Params = %+v, want 2 entries", logic.Params)
	}
	if logic.Params[0].Name != "author_id" || !logic.Params[0].Required {
		t.Errorf("Params[0] = %+v", logic.Params[0])
	}
	if logic.Params[1].Default == nil || *logic.Params[1].Default != "draft" {
		t.Errorf("Params[1].Default = %v, want \"draft\"", logic.Params[1].Default)
	}
	wantSQL := "SELECT * FROM posts WHERE author_id = :author_id AND status = :status"
	if logic.SQL != wantSQL {
		t.Errorf("SQL = %q, want %q", logic.SQL, wantSQL)
	}
}

func TestParseLogicFileWithoutFrontMatter(t *testing.T) {
	raw := "SELECT 1"
	logic, err := ParseLogicFile("bare", raw)
	if err != nil {
		t.Fatalf("ParseLogicFile() error: %v", err)
	}
	if logic.SQL != "SELECT 1" {
		t.Errorf("SQL = %q", logic.SQL)
	}
	if len(logic.Roles) != 0 || logic.Condition != "" || len(logic.Params) != 0 {
		t.Errorf("expected no role/condition/param declarations, got %+v", logic)
	}
}

func TestParseLogicFileMissingClosingDelimiterErrors(t *testing.T) {
	raw := "---\nroles:\n  - public\nSELECT 1"
	if _, err := ParseLogicFile("broken", raw); err == nil {
		t.Error("expected an error for front matter missing its closing delimiter")
	}
}
