package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Test utils

func RowsEqual(t *testing.T, expected Row, actual Row, colTypes []ColumnType) {
	t.Helper()
	require.Equal(t, expected.ColCount(), actual.ColCount())
	for colIndex := range colTypes {
		ev, av := expected.Value(colIndex), actual.Value(colIndex)
		if ev == nil || av == nil {
			require.Equal(t, ev, av, "column %d", colIndex)
			continue
		}
		require.True(t, ValuesEqual(ev, av), "column %d expected %v got %v", colIndex, ev, av)
	}
}

// ToRows builds typed rows from loosely typed values, failing the test on conversion errors.
func ToRows(t *testing.T, colTypes []ColumnType, values [][]interface{}) []Row {
	t.Helper()
	rows := make([]Row, len(values))
	for i, vals := range values {
		row, err := NewTypedRow(colTypes, vals...)
		require.NoError(t, err)
		rows[i] = row
	}
	return rows
}
