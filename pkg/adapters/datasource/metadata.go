package datasource

// SchemaDescription is the discovered layout of the datasource: every user
// table in discovery order. It is the sole schema input to prompt
// construction, so its ordering must be deterministic.
type SchemaDescription struct {
	Tables []TableSchema
}

// TableSchema describes one discovered table.
type TableSchema struct {
	Name        string
	Columns     []string // ordinal position order
	ForeignKeys []ForeignKeyEdge
}

// ForeignKeyEdge is one outgoing foreign key constraint. Columns and
// ReferredColumns are index-aligned so composite keys keep their pairing.
type ForeignKeyEdge struct {
	ConstraintName  string
	Columns         []string
	ReferredTable   string
	ReferredColumns []string
}
