package bridgeapi

import (
	"fmt"

	"github.com/cookieshake/santokit-sub000/internal/bridgeerr"
	"github.com/cookieshake/santokit-sub000/pkg/sqlbuilder"
)

// parseCrudParams reads the common db/<table>/<op> request shape out of
// the decoded JSON params map: where, select, expand, order_by (orderBy is
// also accepted), limit, offset, data (values is also accepted). Every
// field is optional; a missing one takes its zero value (empty where,
// select-all, no expansion, no ordering, no limit/offset, no data).
func parseCrudParams(params map[string]any) (sqlbuilder.CrudParams, error) {
	var crud sqlbuilder.CrudParams

	if raw, ok := params["where"]; ok {
		where, ok := raw.(map[string]any)
		if !ok {
			return crud, bridgeerr.BadRequest("INVALID_PARAMS", "where must be an object")
		}
		crud.Where = sqlbuilder.WhereClause(where)
	} else {
		crud.Where = sqlbuilder.WhereClause{}
	}

	crud.Select = sqlbuilder.SelectColumns{All: true}
	if raw, ok := params["select"]; ok {
		switch v := raw.(type) {
		case string:
			if v != "*" {
				return crud, bridgeerr.BadRequest("INVALID_PARAMS", `select must be "*" or an array of column names`)
			}
		case []any:
			cols := make([]string, 0, len(v))
			for _, c := range v {
				s, ok := c.(string)
				if !ok {
					return crud, bridgeerr.BadRequest("INVALID_PARAMS", "select entries must be strings")
				}
				cols = append(cols, s)
			}
			crud.Select = sqlbuilder.SelectColumns{Columns: cols}
		default:
			return crud, bridgeerr.BadRequest("INVALID_PARAMS", "select must be a string or array")
		}
	}

	if raw, ok := params["expand"]; ok {
		arr, ok := raw.([]any)
		if !ok {
			return crud, bridgeerr.BadRequest("INVALID_PARAMS", "expand must be an array")
		}
		for _, e := range arr {
			s, ok := e.(string)
			if !ok {
				return crud, bridgeerr.BadRequest("INVALID_PARAMS", "expand entries must be strings")
			}
			crud.Expand = append(crud.Expand, s)
		}
	}

	rawOrder, ok := params["order_by"]
	if !ok {
		rawOrder, ok = params["orderBy"]
	}
	if ok {
		arr, ok := rawOrder.([]any)
		if !ok {
			return crud, bridgeerr.BadRequest("INVALID_PARAMS", "orderBy must be an array")
		}
		for _, e := range arr {
			obj, ok := e.(map[string]any)
			if !ok {
				return crud, bridgeerr.BadRequest("INVALID_PARAMS", "orderBy entries must be objects")
			}
			col, _ := obj["column"].(string)
			if col == "" {
				return crud, bridgeerr.BadRequest("INVALID_PARAMS", "orderBy entry missing column")
			}
			order := sqlbuilder.SortAsc
			if dir, ok := obj["order"].(string); ok && dir == "desc" {
				order = sqlbuilder.SortDesc
			}
			crud.OrderBy = append(crud.OrderBy, sqlbuilder.OrderBy{Column: col, Order: order})
		}
	}

	if n, err := parseOptionalInt(params, "limit"); err != nil {
		return crud, err
	} else {
		crud.Limit = n
	}
	if n, err := parseOptionalInt(params, "offset"); err != nil {
		return crud, err
	} else {
		crud.Offset = n
	}

	if raw, ok := params["data"]; ok {
		data, ok := raw.(map[string]any)
		if !ok {
			return crud, bridgeerr.BadRequest("INVALID_PARAMS", "data must be an object")
		}
		crud.Data = data
	} else if raw, ok := params["values"]; ok {
		data, ok := raw.(map[string]any)
		if !ok {
			return crud, bridgeerr.BadRequest("INVALID_PARAMS", "values must be an object")
		}
		crud.Data = data
	}

	return crud, nil
}

func parseOptionalInt(params map[string]any, key string) (*int, error) {
	raw, ok := params[key]
	if !ok {
		return nil, nil
	}
	f, ok := raw.(float64)
	if !ok {
		return nil, bridgeerr.BadRequest("INVALID_PARAMS", fmt.Sprintf("%s must be a number", key))
	}
	n := int(f)
	return &n, nil
}
