package sqlbuilder

import "testing"

func TestParseWhereOperatorAliases(t *testing.T) {
	cases := map[string]WhereOperator{
		"$eq":      OpEq,
		"$nin":     OpNotIn,
		"$notIn":   OpNotIn,
		"$null":    OpIsNull,
		"$isNull":  OpIsNull,
		"$notNull": OpNotNull,
		"$isNotNull": OpNotNull,
	}
	for key, want := range cases {
		got, ok := ParseWhereOperator(key)
		if !ok || got != want {
			t.Errorf("ParseWhereOperator(%q) = (%v, %v), want (%v, true)", key, got, ok, want)
		}
	}

	if _, ok := ParseWhereOperator("$bogus"); ok {
		t.Errorf("expected unknown operator to fail")
	}
}

func TestValidateOperatorValueNumeric(t *testing.T) {
	if err := ValidateOperatorValue(OpGt, float64(5)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateOperatorValue(OpGt, "5"); err == nil {
		t.Errorf("expected type error for string against $gt")
	}
}

func TestValidateOperatorValueInRequiresNonEmptyScalarArray(t *testing.T) {
	if err := ValidateOperatorValue(OpIn, []any{}); err == nil {
		t.Errorf("expected error for empty $in array")
	}
	if err := ValidateOperatorValue(OpIn, "not-an-array"); err == nil {
		t.Errorf("expected error for non-array $in value")
	}
	if err := ValidateOperatorValue(OpIn, []any{map[string]any{}}); err == nil {
		t.Errorf("expected error for non-scalar $in element")
	}
	if err := ValidateOperatorValue(OpIn, []any{"a", "b"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateOperatorValueIsNullRequiresBool(t *testing.T) {
	if err := ValidateOperatorValue(OpIsNull, true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateOperatorValue(OpIsNull, "true"); err == nil {
		t.Errorf("expected error for non-bool $null value")
	}
}

func TestWhereOperatorSQL(t *testing.T) {
	sql, err := OpGte.SQL()
	if err != nil || sql != ">=" {
		t.Errorf("OpGte.SQL() = (%q, %v), want (>=, nil)", sql, err)
	}
	if _, err := OpIsNull.SQL(); err == nil {
		t.Errorf("expected OpIsNull.SQL() to error (rendered specially by the builder)")
	}
}
