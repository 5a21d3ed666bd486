package common

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Row is an ordered sequence of field values. A nil value is SQL NULL, the other values are int64 (TINYINT, INT,
// BIGINT), float64 (DOUBLE), *apd.Decimal (DECIMAL), string (VARCHAR) and time.Time (TIMESTAMP).
//
// Rows are immutable once produced. A Row returned by a window iterator may be a view over an array that is reused
// on the next call, use Copy to keep it.
type Row struct {
	values []interface{}
}

func NewRow(values ...interface{}) Row {
	return Row{values: values}
}

// RowView wraps values without copying them.
func RowView(values []interface{}) Row {
	return Row{values: values}
}

func (r Row) Copy() Row {
	vals := make([]interface{}, len(r.values))
	copy(vals, r.values)
	return Row{values: vals}
}

func (r Row) ColCount() int {
	return len(r.values)
}

func (r Row) Value(colIndex int) interface{} {
	return r.values[colIndex]
}

func (r Row) Values() []interface{} {
	return r.values
}

func (r Row) IsNull(colIndex int) bool {
	return r.values[colIndex] == nil
}

func (r Row) GetInt64(colIndex int) int64 {
	return r.values[colIndex].(int64)
}

func (r Row) GetFloat64(colIndex int) float64 {
	return r.values[colIndex].(float64)
}

func (r Row) GetDecimal(colIndex int) *apd.Decimal {
	return r.values[colIndex].(*apd.Decimal)
}

func (r Row) GetString(colIndex int) string {
	return r.values[colIndex].(string)
}

func (r Row) GetTimestamp(colIndex int) time.Time {
	return r.values[colIndex].(time.Time)
}
