package permissions

import "github.com/cookieshake/santokit-sub000/pkg/schema"

// VisibleColumns filters candidates to the ones a select may return: the
// column's name-prefix class must be select-all-eligible (or explicitly
// allow-listed by the table's column rules, which override the prefix
// default), and the table's columns.select rules — if any — must also
// allow it.
func VisibleColumns(tp *TablePermissions, candidates []string) []string {
	rules := columnRulesFor(tp, "select")
	out := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if !columnAllowed(rules, name, schema.ClassifyColumnName(name).IncludedInSelectAll()) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// WritableColumns filters candidates (insert or update field names) to the
// ones the caller may set: system columns are never writable regardless of
// policy, everything else follows the table's columns.insert/update rules
// when present, or the prefix default otherwise.
func WritableColumns(tp *TablePermissions, op Operation, candidates []string) []string {
	var kind string
	switch op {
	case OpInsert:
		kind = "insert"
	case OpUpdate:
		kind = "update"
	default:
		return nil
	}

	rules := columnRulesFor(tp, kind)
	out := make([]string, 0, len(candidates))
	for _, name := range candidates {
		prefix := schema.ClassifyColumnName(name)
		if !prefix.AllowsWrite() {
			continue
		}
		if !columnAllowed(rules, name, true) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func columnRulesFor(tp *TablePermissions, kind string) []string {
	if tp == nil || tp.Columns == nil {
		return nil
	}
	switch kind {
	case "select":
		return tp.Columns.Select
	case "insert":
		return tp.Columns.Insert
	case "update":
		return tp.Columns.Update
	default:
		return nil
	}
}

func columnAllowed(rules []string, name string, defaultAllowed bool) bool {
	if len(rules) == 0 {
		return defaultAllowed
	}
	return matchesColumnRules(rules, name)
}
