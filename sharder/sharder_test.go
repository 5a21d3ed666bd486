package sharder

import (
	"testing"

	"github.com/squareup/winagg/common"
	"github.com/stretchr/testify/require"
)

var colTypes = []common.ColumnType{common.BigIntColumnType, common.VarcharColumnType, common.DoubleColumnType}

func TestSameGroupSamePartition(t *testing.T) {
	s, err := NewSharder(16, []int{0, 1}, colTypes)
	require.NoError(t, err)
	p1, err := s.CalculatePartition(common.NewRow(int64(7), "a", 1.0))
	require.NoError(t, err)
	p2, err := s.CalculatePartition(common.NewRow(int64(7), "a", 99.0))
	require.NoError(t, err)
	require.Equal(t, p1, p2)
	p3, err := s.CalculatePartition(common.NewRow(nil, nil, 2.0))
	require.NoError(t, err)
	p4, err := s.CalculatePartition(common.NewRow(nil, nil, 3.0))
	require.NoError(t, err)
	require.Equal(t, p3, p4)
}

func TestDistribution(t *testing.T) {
	numPartitions := 8
	s, err := NewSharder(numPartitions, []int{0}, colTypes)
	require.NoError(t, err)
	counts := make([]int, numPartitions)
	for i := 0; i < 8000; i++ {
		p, err := s.CalculatePartition(common.NewRow(int64(i), "x", 0.0))
		require.NoError(t, err)
		require.True(t, p >= 0 && p < numPartitions)
		counts[p]++
	}
	for _, c := range counts {
		require.Greater(t, c, 500)
	}
}

func TestNoGroupCols(t *testing.T) {
	s, err := NewSharder(4, nil, colTypes)
	require.NoError(t, err)
	p, err := s.CalculatePartition(common.NewRow(int64(1), "a", 1.0))
	require.NoError(t, err)
	require.Equal(t, 0, p)
}

func TestInvalidSharder(t *testing.T) {
	_, err := NewSharder(0, []int{0}, colTypes)
	require.Error(t, err)
	_, err = NewSharder(2, []int{3}, colTypes)
	require.Error(t, err)
}

func TestKeyTypeMismatch(t *testing.T) {
	s, err := NewSharder(4, []int{0}, colTypes)
	require.NoError(t, err)
	_, err = s.CalculatePartition(common.NewRow("notanint", "a", 1.0))
	require.Error(t, err)
}
