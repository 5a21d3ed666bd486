package common

import (
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/require"
)

var allColTypes = []ColumnType{TinyIntColumnType, IntColumnType, BigIntColumnType, DoubleColumnType, VarcharColumnType,
	NewDecimalColumnType(10, 2), TimestampColumnType}

func TestEncodeDecodeInt(t *testing.T) {
	for _, v := range []int64{0, math.MinInt64, math.MaxInt64, -1, 1, -10, 10} {
		encodeDecodeValue(t, BigIntColumnType, v)
	}
}

func TestEncodeDecodeString(t *testing.T) {
	for _, v := range []string{"", "zxy123", "⌘"} {
		encodeDecodeValue(t, VarcharColumnType, v)
	}
}

func TestEncodeDecodeFloat(t *testing.T) {
	for _, v := range []float64{0, -1234.5678, 1234.5678, math.MaxFloat64} {
		encodeDecodeValue(t, DoubleColumnType, v)
	}
}

func TestEncodeDecodeTimestamp(t *testing.T) {
	ts := time.Date(2021, 3, 14, 15, 9, 26, 535000, time.UTC)
	encodeDecodeValue(t, TimestampColumnType, ts)
}

func TestEncodeDecodeRow(t *testing.T) {
	row, err := NewTypedRow(allColTypes, 127, math.MaxInt32, math.MaxInt64, math.MaxFloat64, "somestringxyz",
		"12345678.32", time.UnixMilli(1600000000123))
	require.NoError(t, err)
	testEncodeDecodeRow(t, row, allColTypes)
}

func TestEncodeDecodeRowWithNulls(t *testing.T) {
	row, err := NewTypedRow(allColTypes, nil, 10, nil, 1.5, nil, nil, nil)
	require.NoError(t, err)
	testEncodeDecodeRow(t, row, allColTypes)
}

func TestEncodeRowTypeMismatch(t *testing.T) {
	row := NewRow(int64(1), "not a double")
	_, err := EncodeRow(row, []ColumnType{BigIntColumnType, DoubleColumnType}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "column 1")
	require.Contains(t, err.Error(), "string")
}

func TestEncodeRowNullInNotNullColumn(t *testing.T) {
	notNull := BigIntColumnType
	notNull.NotNull = true
	_, err := EncodeRow(NewRow(nil), []ColumnType{notNull}, nil)
	require.Error(t, err)
}

func TestDecodeTruncatedBuffer(t *testing.T) {
	buff, err := EncodeRow(NewRow(int64(1), "abc"), []ColumnType{BigIntColumnType, VarcharColumnType}, nil)
	require.NoError(t, err)
	dest := make([]interface{}, 2)
	for l := 0; l < len(buff); l++ {
		err := DecodeRow(buff[:l], []ColumnType{BigIntColumnType, VarcharColumnType}, dest, 0)
		require.Error(t, err, "length %d", l)
	}
}

func TestDecodeDoesNotAliasBuffer(t *testing.T) {
	buff, err := EncodeRow(NewRow("hello"), []ColumnType{VarcharColumnType}, nil)
	require.NoError(t, err)
	dest := make([]interface{}, 1)
	require.NoError(t, DecodeRow(buff, []ColumnType{VarcharColumnType}, dest, 0))
	for i := range buff {
		buff[i] = 'x'
	}
	require.Equal(t, "hello", dest[0])
}

func encodeDecodeValue(t *testing.T, colType ColumnType, val interface{}) {
	t.Helper()
	row, err := NewTypedRow([]ColumnType{colType}, val)
	require.NoError(t, err)
	testEncodeDecodeRow(t, row, []ColumnType{colType})
}

func testEncodeDecodeRow(t *testing.T, row Row, colTypes []ColumnType) {
	t.Helper()
	buffer, err := EncodeRow(row, colTypes, nil)
	require.NoError(t, err)
	dest := make([]interface{}, len(colTypes))
	err = DecodeRow(buffer, colTypes, dest, 0)
	require.NoError(t, err)
	RowsEqual(t, row, RowView(dest), colTypes)
}

func TestConvertValueDecimalFromString(t *testing.T) {
	v, err := ConvertValue("12.50", NewDecimalColumnType(10, 2))
	require.NoError(t, err)
	require.Equal(t, 0, v.(*apd.Decimal).Cmp(apd.New(125, -1)))
}

func TestTimestampsTruncatedToMicroseconds(t *testing.T) {
	v, err := ConvertValue(time.Date(2021, 1, 2, 3, 4, 5, 123456789, time.UTC), TimestampColumnType)
	require.NoError(t, err)
	require.Equal(t, 123456000, v.(time.Time).Nanosecond())

	v, err = ParseValue("2021-01-02T03:04:05.123456789Z", TimestampColumnType)
	require.NoError(t, err)
	require.Equal(t, 123456000, v.(time.Time).Nanosecond())

	buff, err := EncodeRow(NewRow(v), []ColumnType{TimestampColumnType}, nil)
	require.NoError(t, err)
	out := make([]interface{}, 1)
	require.NoError(t, DecodeRow(buff, []ColumnType{TimestampColumnType}, out, 0))
	require.True(t, v.(time.Time).Equal(out[0].(time.Time)))
}

func TestConvertValueOutOfRange(t *testing.T) {
	_, err := ConvertValue(200, TinyIntColumnType)
	require.Error(t, err)
	_, err = ConvertValue(int64(math.MaxInt32)+1, IntColumnType)
	require.Error(t, err)
}

func TestParseAndFormatValue(t *testing.T) {
	tests := []struct {
		text    string
		colType ColumnType
		value   interface{}
	}{
		{"42", BigIntColumnType, int64(42)},
		{"-1.5", DoubleColumnType, -1.5},
		{"abc", VarcharColumnType, "abc"},
		{"", VarcharColumnType, ""},
		{"", BigIntColumnType, nil},
		{`\N`, VarcharColumnType, nil},
		{"2021-01-02 03:04:05.5", TimestampColumnType, time.Date(2021, 1, 2, 3, 4, 5, 500000000, time.UTC)},
	}
	for _, tc := range tests {
		v, err := ParseValue(tc.text, tc.colType)
		require.NoError(t, err, tc.text)
		require.Equal(t, tc.value, v, tc.text)
		if tc.text != "" {
			require.Equal(t, tc.text, FormatValue(v))
		}
	}
}
