package sqlbuilder

import (
	"fmt"
	"strings"
)

// Condition is a single bound filter, used both for the owner-predicate
// conjunct the Policy Evaluator derives and for a logic file's
// extra_where. Representing it as a struct rather than a raw SQL string
// is what lets it bind positionally alongside the caller's own WHERE
// clause instead of being string-interpolated.
type Condition struct {
	Column string
	Op     WhereOperator
	Value  any
}

// Eq builds an equality condition, the shape the owner-predicate
// translation and most extra_where clauses need.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Op: OpEq, Value: value}
}

// binder accumulates positional bind values and hands out their $N
// placeholder text.
type binder struct {
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// BuildSelect renders a SELECT over table, with an optional FOR UPDATE
// suffix left to the caller (not used by this builder — row locking is
// out of scope for the declarative query surface).
func BuildSelect(table string, columns []string, where WhereClause, extra []Condition, order []OrderBy, limit, offset *int) (string, []any, error) {
	b := &binder{}

	cols := "*"
	if len(columns) > 0 {
		cols = strings.Join(quoteIdents(columns), ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", cols, quoteIdent(table))

	whereSQL, err := renderWhere(b, where, extra)
	if err != nil {
		return "", nil, err
	}
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
	}

	if len(order) > 0 {
		sb.WriteString(" ORDER BY ")
		parts := make([]string, len(order))
		for i, o := range order {
			dir := "ASC"
			if o.Order == SortDesc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", quoteIdent(o.Column), dir)
		}
		sb.WriteString(strings.Join(parts, ", "))
	}

	if limit != nil {
		fmt.Fprintf(&sb, " LIMIT %s", b.bind(*limit))
	}
	if offset != nil {
		fmt.Fprintf(&sb, " OFFSET %s", b.bind(*offset))
	}

	return sb.String(), b.args, nil
}

// BuildInsert renders an INSERT of data into table's writable columns,
// returning every column via RETURNING * so the Row Projector can render
// the created row without a second round trip.
func BuildInsert(table string, data map[string]any) (string, []any, error) {
	if len(data) == 0 {
		return "", nil, fmt.Errorf("sqlbuilder: insert requires at least one column")
	}

	columns := make([]string, 0, len(data))
	for col := range data {
		columns = append(columns, col)
	}
	sortStable(columns)

	b := &binder{}
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = b.bind(data[col])
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		quoteIdent(table),
		strings.Join(quoteIdents(columns), ", "),
		strings.Join(placeholders, ", "),
	)
	return sql, b.args, nil
}

// BuildUpdate renders an UPDATE of table's set columns filtered by where
// (plus extra, e.g. an owner-predicate conjunct). An empty combined WHERE
// is refused by the caller before reaching here — this builder will
// otherwise happily emit an unconditional UPDATE, since the empty-filter
// guard is a request-gate concern, not a SQL-rendering one.
func BuildUpdate(table string, set map[string]any, where WhereClause, extra []Condition) (string, []any, error) {
	if len(set) == 0 {
		return "", nil, fmt.Errorf("sqlbuilder: update requires at least one column to set")
	}

	columns := make([]string, 0, len(set))
	for col := range set {
		columns = append(columns, col)
	}
	sortStable(columns)

	b := &binder{}
	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = fmt.Sprintf("%s = %s", quoteIdent(col), b.bind(set[col]))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET %s", quoteIdent(table), strings.Join(assignments, ", "))

	whereSQL, err := renderWhere(b, where, extra)
	if err != nil {
		return "", nil, err
	}
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
	}
	sb.WriteString(" RETURNING *")

	return sb.String(), b.args, nil
}

// BuildDelete renders a DELETE filtered by where (plus extra). Same
// empty-WHERE caveat as BuildUpdate.
func BuildDelete(table string, where WhereClause, extra []Condition) (string, []any, error) {
	b := &binder{}

	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s", quoteIdent(table))

	whereSQL, err := renderWhere(b, where, extra)
	if err != nil {
		return "", nil, err
	}
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
	}
	sb.WriteString(" RETURNING *")

	return sb.String(), b.args, nil
}

func renderWhere(b *binder, where WhereClause, extra []Condition) (string, error) {
	var clauses []string

	columns := make([]string, 0, len(where))
	for col := range where {
		columns = append(columns, col)
	}
	sortStable(columns)

	for _, col := range columns {
		// A top-level "$"-prefixed key is reserved for a future logical
		// combinator ($and/$or over a list of sub-clauses, not a column
		// filter) and is silently skipped rather than rendered as a column
		// named e.g. "$and".
		// TODO: implement $and/$or once the WHERE grammar supports nesting.
		if strings.HasPrefix(col, "$") {
			continue
		}
		clause, err := renderValueClause(b, col, where[col])
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}

	for _, c := range extra {
		clause, err := renderCondition(b, c)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}

	return strings.Join(clauses, " AND "), nil
}

func renderValueClause(b *binder, column string, value any) (string, error) {
	obj, ok := value.(map[string]any)
	if !ok || len(obj) != 1 {
		return renderCondition(b, Eq(column, value))
	}

	for key, v := range obj {
		op, ok := ParseWhereOperator(key)
		if !ok {
			return "", fmt.Errorf("sqlbuilder: column %q: unknown operator %q", column, key)
		}
		return renderCondition(b, Condition{Column: column, Op: op, Value: v})
	}
	return "", fmt.Errorf("sqlbuilder: column %q: empty operator object", column)
}

func renderCondition(b *binder, c Condition) (string, error) {
	if err := ValidateOperatorValue(c.Op, c.Value); err != nil {
		return "", &ValidationError{Column: c.Column, Reason: err.Error()}
	}

	col := quoteIdent(c.Column)

	switch c.Op {
	case OpIsNull:
		if c.Value.(bool) {
			return fmt.Sprintf("%s IS NULL", col), nil
		}
		return fmt.Sprintf("%s IS NOT NULL", col), nil
	case OpNotNull:
		if c.Value.(bool) {
			return fmt.Sprintf("%s IS NOT NULL", col), nil
		}
		return fmt.Sprintf("%s IS NULL", col), nil
	case OpIn, OpNotIn:
		arr := c.Value.([]any)
		placeholders := make([]string, len(arr))
		for i, v := range arr {
			placeholders[i] = b.bind(v)
		}
		sqlOp, _ := c.Op.SQL()
		return fmt.Sprintf("%s %s (%s)", col, sqlOp, strings.Join(placeholders, ", ")), nil
	default:
		sqlOp, err := c.Op.SQL()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", col, sqlOp, b.bind(c.Value)), nil
	}
}

// quoteIdent double-quotes a Postgres identifier, escaping an embedded
// quote. Column and table names come from the release's declared schema,
// never directly from request JSON, but every identifier interpolated
// into SQL text is still quoted defensively.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdents(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n)
	}
	return out
}

// sortStable orders column names so repeated calls with the same data
// render identical SQL text, which keeps query plans cacheable on the
// Postgres side.
func sortStable(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}
