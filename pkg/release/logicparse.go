package release

import (
	"fmt"
	"strings"

	"go.yaml.in/yaml/v2"

	"github.com/cookieshake/santokit-sub000/pkg/permissions"
	"github.com/cookieshake/santokit-sub000/pkg/schema"
)

// logicFrontMatter is the YAML header a logics/<name> bundle file carries
// above its SQL body: role/condition requirements and declared
// parameters, in the same front-matter-plus-body shape the Hub stores a
// logic file's source in.
type logicFrontMatter struct {
	Roles     []string         `yaml:"roles"`
	Condition string           `yaml:"condition"`
	Params    []logicParamYAML `yaml:"params"`
}

type logicParamYAML struct {
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"`
	Required bool    `yaml:"required"`
	Default  *string `yaml:"default"`
}

// ParseLogicFile splits a raw logics/<name> bundle into its `---`-delimited
// YAML front matter and SQL body, decoding the former with
// go.yaml.in/yaml/v2 the same way the teacher decodes its own manifest
// front matter. A bundle with no front matter delimiter is treated as a
// bare SQL file with no role/condition/param declarations.
func ParseLogicFile(name, raw string) (LogicFile, error) {
	front, body, err := splitFrontMatter(raw)
	if err != nil {
		return LogicFile{}, fmt.Errorf("release: parsing logic file %q: %w", name, err)
	}

	logic := LogicFile{Name: name, SQL: strings.TrimSpace(body)}
	if front == "" {
		return logic, nil
	}

	var fm logicFrontMatter
	if err := yaml.Unmarshal([]byte(front), &fm); err != nil {
		return LogicFile{}, fmt.Errorf("release: parsing logic file %q front matter: %w", name, err)
	}

	for _, r := range fm.Roles {
		logic.Roles = append(logic.Roles, permissions.ParseRoleRequirement(r))
	}
	logic.Condition = fm.Condition

	for _, p := range fm.Params {
		logic.Params = append(logic.Params, LogicParam{
			Name:     p.Name,
			Type:     schema.ColumnType{Kind: p.Type},
			Required: p.Required,
			Default:  p.Default,
		})
	}

	return logic, nil
}

// splitFrontMatter pulls the "---\n...\n---\n" YAML block off the top of
// raw, returning its contents (without the delimiters) and everything
// after the closing delimiter as the body. A file that doesn't open with
// a delimiter has no front matter; its entire contents are the body.
func splitFrontMatter(raw string) (front string, body string, err error) {
	trimmed := strings.TrimLeft(raw, "\n")
	if !strings.HasPrefix(trimmed, "---\n") && trimmed != "---" {
		return "", raw, nil
	}

	rest := strings.TrimPrefix(trimmed, "---\n")
	idx := strings.Index(rest, "\n---\n")
	if idx == -1 {
		return "", "", fmt.Errorf("missing closing \"---\" delimiter for front matter")
	}

	front = rest[:idx]
	body = rest[idx+len("\n---\n"):]
	return front, body, nil
}
