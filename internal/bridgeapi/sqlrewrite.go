package bridgeapi

import (
	"fmt"
	"strings"

	"github.com/cookieshake/santokit-sub000/internal/bridgeerr"
	"github.com/cookieshake/santokit-sub000/pkg/release"
)

// rewriteNamedParams rewrites a logic file's SQL from named parameters
// (`:user_id`) to positional placeholders (`$1`), returning the bound
// argument slice in the order its placeholders were assigned. A `::`
// type-cast is left untouched — it is not followed by an identifier
// character sequence that would otherwise look like a second named
// parameter. Every value comes from either the caller's params or the
// param's declared default; nothing from the SQL text itself is ever
// treated as a literal.
func rewriteNamedParams(sql string, defs []release.LogicParam, provided map[string]any) (string, []any, error) {
	defByName := make(map[string]release.LogicParam, len(defs))
	for _, d := range defs {
		defByName[d.Name] = d
	}

	var sb strings.Builder
	var args []any
	placeholderFor := map[string]string{}

	i := 0
	for i < len(sql) {
		c := sql[i]
		if c != ':' {
			sb.WriteByte(c)
			i++
			continue
		}

		if i+1 < len(sql) && sql[i+1] == ':' {
			sb.WriteString("::")
			i += 2
			continue
		}

		j := i + 1
		for j < len(sql) && isIdentByte(sql[j]) {
			j++
		}
		if j == i+1 {
			sb.WriteByte(c)
			i++
			continue
		}

		name := sql[i+1 : j]
		ph, ok := placeholderFor[name]
		if !ok {
			value, err := resolveParamValue(name, defByName, provided)
			if err != nil {
				return "", nil, err
			}
			args = append(args, value)
			ph = fmt.Sprintf("$%d", len(args))
			placeholderFor[name] = ph
		}
		sb.WriteString(ph)
		i = j
	}

	return sb.String(), args, nil
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func resolveParamValue(name string, defs map[string]release.LogicParam, provided map[string]any) (any, error) {
	if v, ok := provided[name]; ok {
		return v, nil
	}

	def, declared := defs[name]
	if !declared {
		return nil, bridgeerr.BadRequest("UNKNOWN_PARAM", fmt.Sprintf("logic references undeclared parameter %q", name))
	}
	if def.Default != nil {
		return *def.Default, nil
	}
	if def.Required {
		return nil, bridgeerr.BadRequest("MISSING_PARAM", fmt.Sprintf("parameter %q is required", name))
	}
	return nil, nil
}
