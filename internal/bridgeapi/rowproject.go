package bridgeapi

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgxRows aliases pgx.Rows so dbExecutor's Query signature matches
// *pgxpool.Pool's without importing pgxpool here.
type pgxRows = pgx.Rows

// projectRows converts the full result set of rows into a slice of
// column-name-keyed maps, in row order. It is a thin layer over pgx's own
// generic scanning; column visibility filtering happens afterward via
// filterColumns so both the SELECT and RETURNING * (insert/update/delete)
// paths can share the same projector regardless of which columns
// permissions allows the caller to see.
func projectRows(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("bridgeapi: reading row values: %w", err)
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			if i < len(names) {
				row[names[i]] = v
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bridgeapi: iterating rows: %w", err)
	}
	return out, nil
}

// filterColumns returns a copy of row containing only the keys named in
// visible, preserving none of row's other keys. Used to enforce the
// Policy Evaluator's column-visibility decision on every row the
// database returns, including RETURNING * from an insert/update.
func filterColumns(row map[string]any, visible []string) map[string]any {
	out := make(map[string]any, len(visible))
	for _, col := range visible {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}

func filterRows(rows []map[string]any, visible []string) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = filterColumns(row, visible)
	}
	return out
}
