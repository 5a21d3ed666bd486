package codec

import (
	"testing"
	"time"

	"github.com/squareup/winagg/bufpool"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
	"github.com/stretchr/testify/require"
)

var testSlices = []common.SchemaSlice{
	{common.BigIntColumnType, common.VarcharColumnType},
	{common.DoubleColumnType},
	{common.TimestampColumnType, common.NewDecimalColumnType(10, 2)},
}

func testRow(t *testing.T) common.Row {
	t.Helper()
	row, err := common.NewTypedRow(common.FlattenSlices(testSlices), 7, "uk", 3.25, time.UnixMilli(1000), "99.95")
	require.NoError(t, err)
	return row
}

func TestEncodeDecodeIdentity(t *testing.T) {
	pool := bufpool.NewPool(8)
	enc := NewEncoder(testSlices, pool)
	dec := NewDecoder(testSlices)

	row := testRow(t)
	encoded, err := enc.Encode(row, true)
	require.NoError(t, err)
	require.Equal(t, 3, encoded.NumSlices())
	require.Equal(t, 3, pool.Outstanding())

	out := dec.NewOutputArray()
	require.NoError(t, dec.Decode(encoded, out))
	common.RowsEqual(t, row, common.RowView(out), common.FlattenSlices(testSlices))
}

func TestEncodeWithNulls(t *testing.T) {
	enc := NewEncoder(testSlices, bufpool.NewPool(0))
	dec := NewDecoder(testSlices)
	row := common.NewRow(nil, nil, nil, nil, nil)
	encoded, err := enc.Encode(row, false)
	require.NoError(t, err)
	out := dec.NewOutputArray()
	require.NoError(t, dec.Decode(encoded, out))
	for _, v := range out {
		require.Nil(t, v)
	}
}

func TestTransientEncodeDoesNotTouchPool(t *testing.T) {
	pool := bufpool.NewPool(0)
	enc := NewEncoder(testSlices, pool)
	_, err := enc.Encode(testRow(t), false)
	require.NoError(t, err)
	require.Equal(t, 0, pool.Outstanding())
	require.Equal(t, int64(0), pool.Stats().Acquired)
}

func TestKeptBuffersSurviveLaterEncodes(t *testing.T) {
	pool := bufpool.NewPool(1)
	enc := NewEncoder(testSlices, pool)
	dec := NewDecoder(testSlices)
	first := testRow(t)
	encoded1, err := enc.Encode(first, true)
	require.NoError(t, err)
	second, err := common.NewTypedRow(common.FlattenSlices(testSlices), 8, "us", 1.0, time.UnixMilli(2000), "1.00")
	require.NoError(t, err)
	_, err = enc.Encode(second, true)
	require.NoError(t, err)

	out := dec.NewOutputArray()
	require.NoError(t, dec.Decode(encoded1, out))
	common.RowsEqual(t, first, common.RowView(out), common.FlattenSlices(testSlices))
}

func TestKeptBuffersAreReusedAfterFreeAll(t *testing.T) {
	pool := bufpool.NewPool(64)
	enc := NewEncoder(testSlices, pool)
	dec := NewDecoder(testSlices)
	_, err := enc.Encode(testRow(t), true)
	require.NoError(t, err)
	pool.FreeAll()

	row, err := common.NewTypedRow(common.FlattenSlices(testSlices), 8, "us", 1.0, time.UnixMilli(2000), "1.00")
	require.NoError(t, err)
	encoded, err := enc.Encode(row, true)
	require.NoError(t, err)
	require.Equal(t, uint64(1), pool.Generation())
	require.Equal(t, 3, pool.Outstanding())
	require.Equal(t, bufpool.Stats{Acquired: 6, Allocated: 3, Freed: 3, FreeAlls: 1}, pool.Stats())

	out := dec.NewOutputArray()
	require.NoError(t, dec.Decode(encoded, out))
	common.RowsEqual(t, row, common.RowView(out), common.FlattenSlices(testSlices))
}

func TestEncodeTypeMismatch(t *testing.T) {
	enc := NewEncoder(testSlices, bufpool.NewPool(0))
	row := common.NewRow(int64(1), int64(2), 1.0, nil, nil)
	_, err := enc.Encode(row, true)
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.CodecError))
	require.Contains(t, err.Error(), "slice 0")
	require.Contains(t, err.Error(), "column 1")
}

func TestEncodeWrongColumnCount(t *testing.T) {
	enc := NewEncoder(testSlices, bufpool.NewPool(0))
	_, err := enc.Encode(common.NewRow(int64(1)), false)
	require.True(t, errors.HasCode(err, errors.CodecError))
}

func TestDecodeWrongSliceCount(t *testing.T) {
	dec := NewDecoder(testSlices)
	err := dec.Decode(common.EncodedRow{{}}, dec.NewOutputArray())
	require.True(t, errors.HasCode(err, errors.CodecError))
}
