package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsToSchemaSQL(t *testing.T) {
	cols := []ColumnDef{
		{Name: "phrase", Type: "String", Codec: "ZSTD(1)"},
		{Name: "views", Type: "UInt64"},
	}
	assert.Equal(t, "phrase String CODEC(ZSTD(1)),\n\t\t\tviews UInt64", ColumnsToSchemaSQL(cols))
	assert.Equal(t, []string{"phrase", "views"}, ColumnsToNameList(cols))
	assert.Equal(t, "(phrase, views)", InsertColumnsSQL(cols))
}

func TestValidateColumns(t *testing.T) {
	require.NoError(t, ValidateColumns([]ColumnDef{{Name: "a", Type: "String"}}))
	require.Error(t, ValidateColumns([]ColumnDef{{Name: "", Type: "String"}}))
	require.Error(t, ValidateColumns([]ColumnDef{{Name: "a"}}))
	require.Error(t, ValidateColumns([]ColumnDef{{Name: "a", Type: "String"}, {Name: "a", Type: "UInt8"}}))
}
