package models

import (
	"fmt"
	"strings"
)

// ColumnDef defines a single column for a table.
// Column slices declared next to each model are the single source of truth
// for both CREATE TABLE and INSERT statements.
type ColumnDef struct {
	// Name is the column name
	Name string

	// Type is the ClickHouse data type (e.g., "UInt64", "String", "DateTime")
	Type string

	// Codec is the optional compression codec (e.g., "ZSTD(1)", "Delta, ZSTD(3)")
	Codec string
}

// SQL returns the full column definition for CREATE TABLE statements.
// Example: "phrase String CODEC(ZSTD(1))"
func (c ColumnDef) SQL() string {
	if c.Codec != "" {
		return fmt.Sprintf("%s %s CODEC(%s)", c.Name, c.Type, c.Codec)
	}
	return fmt.Sprintf("%s %s", c.Name, c.Type)
}

// Validate checks if the column definition is valid.
func (c ColumnDef) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if c.Type == "" {
		return fmt.Errorf("column %s: type cannot be empty", c.Name)
	}
	return nil
}

// ColumnsToSchemaSQL converts a list of ColumnDef to a CREATE TABLE schema string.
func ColumnsToSchemaSQL(columns []ColumnDef) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, col.SQL())
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// ColumnsToNameList extracts just the column names, in declaration order.
func ColumnsToNameList(columns []ColumnDef) []string {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		names = append(names, col.Name)
	}
	return names
}

// InsertColumnsSQL renders "(a, b, c)" for an INSERT statement.
func InsertColumnsSQL(columns []ColumnDef) string {
	return "(" + strings.Join(ColumnsToNameList(columns), ", ") + ")"
}

// ValidateColumns returns the first invalid column, if any.
func ValidateColumns(columns []ColumnDef) error {
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if err := col.Validate(); err != nil {
			return err
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("column %s declared twice", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	return nil
}
