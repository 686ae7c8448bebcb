// Package schema defines the shape of a release's declared database
// schema: connections, tables, columns, and the column-type/visibility
// rules the SQL Builder and Row Projector consult.
package schema

// ColumnType names the declared type of a column. It is deserialized from
// a release's schema JSON, tagged on the wire by a "type" field.
type ColumnType struct {
	Kind string `json:"type"`

	// Decimal
	Precision int `json:"precision,omitempty"`
	Scale     int `json:"scale,omitempty"`

	// File
	Bucket         string          `json:"bucket,omitempty"`
	FileOnDelete   FileDeletePolicy `json:"on_delete,omitempty"`

	// Array
	Items *ColumnType `json:"items,omitempty"`
}

const (
	KindString    = "string"
	KindInt       = "int"
	KindBigint    = "bigint"
	KindFloat     = "float"
	KindDecimal   = "decimal"
	KindBoolean   = "boolean"
	KindJSON      = "json"
	KindTimestamp = "timestamp"
	KindBytes     = "bytes"
	KindFile      = "file"
	KindArray     = "array"
)

// FileDeletePolicy governs what happens to the referenced object when the
// owning row is deleted.
type FileDeletePolicy string

const (
	FileDeletePreserve FileDeletePolicy = "preserve"
	FileDeleteCascade  FileDeletePolicy = "cascade"
)

// ToPostgresType maps a declared column type to the Postgres type name the
// schema-owning system would have used to create the column. The Bridge
// itself never issues DDL, and the SQL Builder does not call this.
func (t ColumnType) ToPostgresType() string {
	switch t.Kind {
	case KindString:
		return "text"
	case KindInt:
		return "integer"
	case KindBigint:
		return "bigint"
	case KindFloat:
		return "double precision"
	case KindDecimal:
		return "numeric"
	case KindBoolean:
		return "boolean"
	case KindJSON:
		return "jsonb"
	case KindTimestamp:
		return "timestamptz"
	case KindBytes:
		return "bytea"
	case KindFile:
		return "text"
	case KindArray:
		if t.Items != nil {
			return t.Items.ToPostgresType() + "[]"
		}
		return "text[]"
	default:
		return "text"
	}
}

// ExpectedJSONKind reports the JSON kind ("string", "number", "boolean",
// "array", or "any" for json and unrecognized types) an INSERT/UPDATE value
// for this column should arrive as. The insert/update path does not call
// it; supplied data is bound without this check.
func (t ColumnType) ExpectedJSONKind() string {
	switch t.Kind {
	case KindString, KindFile, KindBytes, KindTimestamp:
		return "string"
	case KindInt, KindBigint, KindFloat, KindDecimal:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindJSON:
		return "any"
	case KindArray:
		return "array"
	default:
		return "any"
	}
}
