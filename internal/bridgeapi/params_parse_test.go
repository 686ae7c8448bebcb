package bridgeapi

import (
	"testing"

	"github.com/cookieshake/santokit-sub000/pkg/sqlbuilder"
)

func TestParseCrudParamsDefaults(t *testing.T) {
	crud, err := parseCrudParams(map[string]any{})
	if err != nil {
		t.Fatalf("parseCrudParams() error: %v", err)
	}
	if !crud.Select.All {
		t.Error("expected select-all by default")
	}
	if crud.Limit != nil || crud.Offset != nil {
		t.Error("expected no limit/offset by default")
	}
	if crud.Data != nil {
		t.Error("expected no data by default")
	}
}

func TestParseCrudParamsWhere(t *testing.T) {
	crud, err := parseCrudParams(map[string]any{
		"where": map[string]any{"status": "published"},
	})
	if err != nil {
		t.Fatalf("parseCrudParams() error: %v", err)
	}
	if crud.Where["status"] != "published" {
		t.Errorf("where = %v", crud.Where)
	}
}

func TestParseCrudParamsWhereWrongType(t *testing.T) {
	if _, err := parseCrudParams(map[string]any{"where": "not an object"}); err == nil {
		t.Error("expected error for non-object where")
	}
}

func TestParseCrudParamsSelectArray(t *testing.T) {
	crud, err := parseCrudParams(map[string]any{
		"select": []any{"id", "title"},
	})
	if err != nil {
		t.Fatalf("parseCrudParams() error: %v", err)
	}
	if crud.Select.All {
		t.Error("expected select-all to be false when explicit columns given")
	}
	if len(crud.Select.Columns) != 2 || crud.Select.Columns[0] != "id" || crud.Select.Columns[1] != "title" {
		t.Errorf("select columns = %v", crud.Select.Columns)
	}
}

func TestParseCrudParamsSelectStringStar(t *testing.T) {
	crud, err := parseCrudParams(map[string]any{"select": "*"})
	if err != nil {
		t.Fatalf("parseCrudParams() error: %v", err)
	}
	if !crud.Select.All {
		t.Error("expected select-all for \"*\"")
	}
}

func TestParseCrudParamsSelectInvalidString(t *testing.T) {
	if _, err := parseCrudParams(map[string]any{"select": "id"}); err == nil {
		t.Error("expected error for a bare non-\"*\" select string")
	}
}

func TestParseCrudParamsOrderBy(t *testing.T) {
	crud, err := parseCrudParams(map[string]any{
		"orderBy": []any{
			map[string]any{"column": "created_at", "order": "desc"},
			map[string]any{"column": "id"},
		},
	})
	if err != nil {
		t.Fatalf("parseCrudParams() error: %v", err)
	}
	if len(crud.OrderBy) != 2 {
		t.Fatalf("orderBy = %v, want 2 entries", crud.OrderBy)
	}
	if crud.OrderBy[0].Column != "created_at" || crud.OrderBy[0].Order != sqlbuilder.SortDesc {
		t.Errorf("orderBy[0] = %+v", crud.OrderBy[0])
	}
	if crud.OrderBy[1].Column != "id" || crud.OrderBy[1].Order != sqlbuilder.SortAsc {
		t.Errorf("orderBy[1] = %+v, want default ascending order", crud.OrderBy[1])
	}
}

func TestParseCrudParamsOrderByMissingColumn(t *testing.T) {
	if _, err := parseCrudParams(map[string]any{
		"orderBy": []any{map[string]any{"order": "desc"}},
	}); err == nil {
		t.Error("expected error for orderBy entry missing column")
	}
}

func TestParseCrudParamsLimitOffset(t *testing.T) {
	crud, err := parseCrudParams(map[string]any{"limit": float64(10), "offset": float64(5)})
	if err != nil {
		t.Fatalf("parseCrudParams() error: %v", err)
	}
	if crud.Limit == nil || *crud.Limit != 10 {
		t.Errorf("limit = %v, want 10", crud.Limit)
	}
	if crud.Offset == nil || *crud.Offset != 5 {
		t.Errorf("offset = %v, want 5", crud.Offset)
	}
}

func TestParseCrudParamsLimitWrongType(t *testing.T) {
	if _, err := parseCrudParams(map[string]any{"limit": "ten"}); err == nil {
		t.Error("expected error for a non-numeric limit")
	}
}

func TestParseCrudParamsDataAcceptsValuesAlias(t *testing.T) {
	crud, err := parseCrudParams(map[string]any{
		"values": map[string]any{"title": "hello"},
	})
	if err != nil {
		t.Fatalf("parseCrudParams() error: %v", err)
	}
	if crud.Data["title"] != "hello" {
		t.Errorf("data = %v", crud.Data)
	}
}

func TestParseCrudParamsDataTakesPrecedenceOverValues(t *testing.T) {
	crud, err := parseCrudParams(map[string]any{
		"data":   map[string]any{"title": "from-data"},
		"values": map[string]any{"title": "from-values"},
	})
	if err != nil {
		t.Fatalf("parseCrudParams() error: %v", err)
	}
	if crud.Data["title"] != "from-data" {
		t.Errorf("data = %v, want the \"data\" field to win over \"values\"", crud.Data)
	}
}

func TestParseCrudParamsExpand(t *testing.T) {
	crud, err := parseCrudParams(map[string]any{
		"expand": []any{"author", "comments"},
	})
	if err != nil {
		t.Fatalf("parseCrudParams() error: %v", err)
	}
	if len(crud.Expand) != 2 || crud.Expand[0] != "author" || crud.Expand[1] != "comments" {
		t.Errorf("expand = %v", crud.Expand)
	}
}
