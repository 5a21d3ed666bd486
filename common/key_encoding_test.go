package common

import (
	"bytes"
	"math"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/require"
)

func TestKeyEncodeInt64(t *testing.T) {
	vals := []int64{
		math.MinInt64,
		math.MinInt64 + 1,
		-1000,
		-1,
		0,
		1,
		1000,
		math.MaxInt64 - 1,
		math.MaxInt64,
	}
	for i := 0; i < len(vals)-1; i++ {
		checkLessThan(t, KeyEncodeInt64(nil, vals[i]), KeyEncodeInt64(nil, vals[i+1]))
	}
}

func TestKeyEncodeFloat64(t *testing.T) {
	vals := []float64{
		-math.MaxFloat64,
		-1.234e10,
		-1.1,
		-0.5,
		0.0,
		0.5,
		1.1,
		1.234e10,
		math.MaxFloat64,
	}
	for i := 0; i < len(vals)-1; i++ {
		checkLessThan(t, KeyEncodeFloat64(nil, vals[i]), KeyEncodeFloat64(nil, vals[i+1]))
	}
}

func TestKeyEncodeFloat64NormalizesZeroAndNaN(t *testing.T) {
	require.Equal(t, KeyEncodeFloat64(nil, 0), KeyEncodeFloat64(nil, math.Copysign(0, -1)))
	nan2 := math.Float64frombits(math.Float64bits(math.NaN()) | 1)
	require.Equal(t, KeyEncodeFloat64(nil, math.NaN()), KeyEncodeFloat64(nil, nan2))
}

func TestKeyEncodeDecimalEqualValues(t *testing.T) {
	d1, _, err := apd.NewFromString("1.0")
	require.NoError(t, err)
	d2, _, err := apd.NewFromString("1.000")
	require.NoError(t, err)
	require.Equal(t, KeyEncodeDecimal(nil, d1), KeyEncodeDecimal(nil, d2))
}

func TestEncodeKeyColsNullMarker(t *testing.T) {
	colTypes := []ColumnType{VarcharColumnType, BigIntColumnType}
	k1, err := EncodeKeyCols(NewRow(nil, int64(1)), []int{0}, colTypes, nil)
	require.NoError(t, err)
	k2, err := EncodeKeyCols(NewRow("", int64(1)), []int{0}, colTypes, nil)
	require.NoError(t, err)
	require.NotEqual(t, k1, k2)
	k3, err := EncodeKeyCols(NewRow(nil, int64(2)), []int{0}, colTypes, nil)
	require.NoError(t, err)
	require.Equal(t, k1, k3)
}

func TestEncodeKeyColsWrongType(t *testing.T) {
	_, err := EncodeKeyCols(NewRow("x"), []int{0}, []ColumnType{BigIntColumnType}, nil)
	require.Error(t, err)
}

func checkLessThan(t *testing.T, b1 []byte, b2 []byte) {
	t.Helper()
	require.Equal(t, -1, bytes.Compare(b1, b2))
}
