package common

import (
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/require"
)

func TestRows(t *testing.T) {
	rowCount := 10
	rows := make([]Row, 0, rowCount)
	for i := 0; i < rowCount; i++ {
		vals := []interface{}{i, i * 10, i * 100, float64(i) + 0.5, "str", "1.25", int64(i * 1000)}
		if i%3 == 0 {
			vals = make([]interface{}, len(allColTypes))
		}
		row, err := NewTypedRow(allColTypes, vals...)
		require.NoError(t, err)
		rows = append(rows, row)
	}
	for i := 0; i < rowCount; i++ {
		row := rows[i]
		if i%3 == 0 {
			for c := 0; c < row.ColCount(); c++ {
				require.True(t, row.IsNull(c))
			}
			continue
		}
		require.Equal(t, int64(i), row.GetInt64(0))
		require.Equal(t, int64(i*10), row.GetInt64(1))
		require.Equal(t, int64(i*100), row.GetInt64(2))
		require.Equal(t, float64(i)+0.5, row.GetFloat64(3))
		require.Equal(t, "str", row.GetString(4))
		require.Equal(t, "1.25", row.GetDecimal(5).Text('f'))
		require.Equal(t, time.UnixMilli(int64(i*1000)).UTC(), row.GetTimestamp(6))
	}
}

func TestRowCopyIsDetached(t *testing.T) {
	vals := []interface{}{int64(1), "a"}
	view := RowView(vals)
	cp := view.Copy()
	vals[0] = int64(2)
	require.Equal(t, int64(2), view.GetInt64(0))
	require.Equal(t, int64(1), cp.GetInt64(0))
}

func TestValuesEqual(t *testing.T) {
	d1 := apd.New(10, -1)
	d2 := apd.New(100, -2)
	require.True(t, ValuesEqual(nil, nil))
	require.False(t, ValuesEqual(nil, int64(0)))
	require.False(t, ValuesEqual(int64(0), nil))
	require.True(t, ValuesEqual(int64(3), int64(3)))
	require.False(t, ValuesEqual(int64(3), int64(4)))
	require.True(t, ValuesEqual(math.NaN(), math.NaN()))
	require.True(t, ValuesEqual(d1, d2))
	require.True(t, ValuesEqual(time.UnixMilli(5), time.UnixMilli(5).UTC()))
	require.False(t, ValuesEqual("a", "b"))
	base := time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC)
	require.True(t, ValuesEqual(base.Add(1), base.Add(999)))
	require.False(t, ValuesEqual(base.Add(999), base.Add(1000)))
}

func TestCompareValues(t *testing.T) {
	require.Equal(t, -1, CompareValues(int64(1), int64(2)))
	require.Equal(t, 1, CompareValues("b", "a"))
	require.Equal(t, -1, CompareValues(math.NaN(), -math.MaxFloat64))
	require.Equal(t, 0, CompareValues(apd.New(1, 0), apd.New(10, -1)))
	require.Equal(t, 1, CompareValues(time.UnixMilli(6), time.UnixMilli(5)))
	base := time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC)
	require.Equal(t, 0, CompareValues(base.Add(2), base.Add(1)))
	require.Equal(t, -1, CompareValues(base.Add(999), base.Add(1000)))
}

func TestOrderKey(t *testing.T) {
	k, err := OrderKey(int64(5), BigIntColumnType, false)
	require.NoError(t, err)
	require.Equal(t, int64(5), k)

	k, err = OrderKey(time.UnixMilli(1234), TimestampColumnType, false)
	require.NoError(t, err)
	require.Equal(t, int64(1234), k)

	k, err = OrderKey(nil, BigIntColumnType, true)
	require.NoError(t, err)
	require.Equal(t, NullOrderKey, k)

	// descending keys are non-decreasing along a descending scan
	prev := NullOrderKey
	for _, v := range []int64{math.MaxInt64, 100, 0, -100, math.MinInt64 + 1} {
		k, err := OrderKey(v, BigIntColumnType, true)
		require.NoError(t, err)
		require.Greater(t, k, prev)
		prev = k
	}

	_, err = OrderKey("x", VarcharColumnType, false)
	require.Error(t, err)
	_, err = OrderKey("x", BigIntColumnType, false)
	require.Error(t, err)
}
