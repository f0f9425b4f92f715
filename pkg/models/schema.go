package models

import "sort"

// KeyRole describes how a column participates in keys.
type KeyRole string

const (
	KeyRoleNone    KeyRole = ""
	KeyRolePrimary KeyRole = "primary"
	KeyRoleForeign KeyRole = "foreign"
)

// ColumnDescriptor describes one column of an introspected table.
type ColumnDescriptor struct {
	Name     string  `json:"name"`
	DataType string  `json:"type"`
	Nullable bool    `json:"nullable"`
	KeyRole  KeyRole `json:"key_role,omitempty"`
}

// SchemaSnapshot is a point-in-time view of table/column metadata for one
// connection. Snapshots are immutable: a refresh builds a new snapshot and
// replaces the old one wholesale.
type SchemaSnapshot struct {
	ConnectionID string
	Tables       map[string][]ColumnDescriptor
}

// TableNames returns the snapshot's table names in sorted order.
func (s *SchemaSnapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTable reports whether the snapshot contains the named table.
func (s *SchemaSnapshot) HasTable(name string) bool {
	_, ok := s.Tables[name]
	return ok
}

// Columns returns the ordered column descriptors for a table, or nil if the
// table is not in the snapshot.
func (s *SchemaSnapshot) Columns(table string) []ColumnDescriptor {
	return s.Tables[table]
}
