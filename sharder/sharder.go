// Package sharder routes rows to partitions by their group key, so every row of a group lands in the same
// partition.
package sharder

import (
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
	"github.com/twmb/murmur3"
)

type Sharder struct {
	numPartitions int
	groupCols     []int
	colTypes      []common.ColumnType
	keyBuff       []byte
}

// NewSharder creates a sharder over rows of colTypes, hashing the groupCols columns. A Sharder reuses a key buffer
// and is not safe for concurrent use.
func NewSharder(numPartitions int, groupCols []int, colTypes []common.ColumnType) (*Sharder, error) {
	if numPartitions < 1 {
		return nil, errors.Errorf("partition count must be >= 1, got %d", numPartitions)
	}
	for _, col := range groupCols {
		if col < 0 || col >= len(colTypes) {
			return nil, errors.Errorf("group column %d out of range, row has %d columns", col, len(colTypes))
		}
	}
	return &Sharder{
		numPartitions: numPartitions,
		groupCols:     groupCols,
		colTypes:      colTypes,
	}, nil
}

func (s *Sharder) NumPartitions() int {
	return s.numPartitions
}

// CalculatePartition returns the partition row belongs to. Rows without group columns all go to partition 0.
func (s *Sharder) CalculatePartition(row common.Row) (int, error) {
	partition, _, err := s.PartitionKey(row)
	return partition, err
}

// PartitionKey returns the row's partition and its key-encoded group columns. The key is only valid until the next
// call.
func (s *Sharder) PartitionKey(row common.Row) (int, []byte, error) {
	if len(s.groupCols) == 0 {
		return 0, nil, nil
	}
	var err error
	s.keyBuff, err = common.EncodeKeyCols(row, s.groupCols, s.colTypes, s.keyBuff[:0])
	if err != nil {
		return 0, nil, err
	}
	return ComputePartition(s.keyBuff, s.numPartitions), s.keyBuff, nil
}

func ComputePartition(key []byte, numPartitions int) int {
	return int(Hash(key) % uint32(numPartitions))
}

func Hash(key []byte) uint32 {
	return murmur3.Sum32(key)
}
