package schema

import "fmt"

// IDStrategy governs who supplies a table's primary key at INSERT time.
type IDStrategy string

const (
	IDStrategyULID          IDStrategy = "ulid"
	IDStrategyUUIDv4        IDStrategy = "uuid_v4"
	IDStrategyUUIDv7        IDStrategy = "uuid_v7"
	IDStrategyNanoID        IDStrategy = "nanoid"
	IDStrategyAutoIncrement IDStrategy = "auto_increment"
	IDStrategyClient        IDStrategy = "client"
)

// BridgeGenerates reports whether the Bridge itself must generate the PK
// value before INSERT.
func (s IDStrategy) BridgeGenerates() bool {
	switch s {
	case IDStrategyULID, IDStrategyUUIDv4, IDStrategyUUIDv7, IDStrategyNanoID:
		return true
	default:
		return false
	}
}

// ClientProvides reports whether the caller is required to supply the PK.
func (s IDStrategy) ClientProvides() bool {
	return s == IDStrategyClient
}

// DBGenerates reports whether Postgres itself assigns the PK (neither the
// client nor the Bridge supplies it).
func (s IDStrategy) DBGenerates() bool {
	return s == IDStrategyAutoIncrement
}

// DefaultIDStrategy is the strategy assumed when a table declares none.
const DefaultIDStrategy = IDStrategyULID

// TableID describes a table's primary key column and generation strategy.
type TableID struct {
	Name     string     `json:"name"`
	Generate IDStrategy `json:"generate"`
}

// Index describes a secondary index declared on a table. The Bridge does
// not execute DDL; this is carried through purely so a release round-trips
// without loss.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`
}

// Table is one declared table within a connection.
type Table struct {
	Name       string   `json:"name"`
	Connection string   `json:"connection"`
	ID         TableID  `json:"id"`
	Columns    []Column `json:"columns"`
	Indexes    []Index  `json:"indexes,omitempty"`
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// SelectableColumns returns column names included in an unqualified
// "SELECT *" — the primary key plus every column whose prefix class is
// included in select-all, deduplicated and PK-first.
func (t *Table) SelectableColumns() []string {
	var out []string
	seen := map[string]bool{}
	if t.ID.Name != "" {
		out = append(out, t.ID.Name)
		seen[t.ID.Name] = true
	}
	for _, c := range t.Columns {
		if seen[c.Name] {
			continue
		}
		if ClassifyColumnName(c.Name).IncludedInSelectAll() {
			out = append(out, c.Name)
			seen[c.Name] = true
		}
	}
	return out
}

// AllColumnNames returns the PK plus every declared column name, PK first.
func (t *Table) AllColumnNames() []string {
	out := make([]string, 0, len(t.Columns)+1)
	seen := map[string]bool{}
	if t.ID.Name != "" {
		out = append(out, t.ID.Name)
		seen[t.ID.Name] = true
	}
	for _, c := range t.Columns {
		if !seen[c.Name] {
			out = append(out, c.Name)
			seen[c.Name] = true
		}
	}
	return out
}

// Connection describes one database the release's tables live in.
type Connection struct {
	Engine string `json:"engine"`
	DBURL  string `json:"db_url"`
}

// SchemaIR is the schema portion of a release: the set of connections and
// the tables declared within them.
type SchemaIR struct {
	Version     int                   `json:"version"`
	Connections map[string]Connection `json:"connections"`
	Tables      map[string]Table      `json:"tables"`
}

// AddTable registers a table in the schema.
func (s *SchemaIR) AddTable(t Table) {
	if s.Tables == nil {
		s.Tables = map[string]Table{}
	}
	s.Tables[t.Name] = t
}

// DefaultConnection returns the connection named "default" if declared,
// falling back to the sole connection when a schema declares exactly
// one. A logic file has no table to inherit a connection from, so it
// always runs against this one. Ambiguous multi-connection schemas with
// no "default" entry have no sound fallback and report false.
func (s *SchemaIR) DefaultConnection() (Connection, bool) {
	if c, ok := s.Connections["default"]; ok {
		return c, true
	}
	if len(s.Connections) == 1 {
		for _, c := range s.Connections {
			return c, true
		}
	}
	return Connection{}, false
}

// GetTable looks up a table by name.
func (s *SchemaIR) GetTable(name string) (Table, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// HasTable reports whether a table is declared.
func (s *SchemaIR) HasTable(name string) bool {
	_, ok := s.Tables[name]
	return ok
}

// TableNames returns every declared table name.
func (s *SchemaIR) TableNames() []string {
	out := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		out = append(out, name)
	}
	return out
}

// ValidateReferences checks that every column's foreign key target exists
// within the same connection as the referencing table. This bounds the
// schema graph so that Expand (a one-hop FK traversal) never needs to
// cross connections.
func (s *SchemaIR) ValidateReferences() error {
	for _, t := range s.Tables {
		for _, c := range t.Columns {
			if c.References == nil {
				continue
			}
			target, ok := s.Tables[c.References.Table]
			if !ok {
				return fmt.Errorf("table %q: column %q references unknown table %q", t.Name, c.Name, c.References.Table)
			}
			if target.Connection != t.Connection {
				return fmt.Errorf("table %q: column %q references table %q on a different connection", t.Name, c.Name, c.References.Table)
			}
		}
	}
	return nil
}
