package engine

import (
	"bytes"
	"sort"

	"github.com/squareup/winagg/common"
)

// MemoryEngine sorts partitions in memory.
type MemoryEngine struct{}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{}
}

type keyedRow struct {
	key []byte
	row common.Row
}

func (m *MemoryEngine) PartitionAndSort(ds *Dataset, spec SortSpec) ([]Partition, error) {
	kb, err := newKeyBuilder(ds.ColumnTypes(), spec)
	if err != nil {
		return nil, err
	}
	buckets := make([][]keyedRow, spec.NumPartitions)
	for seq, row := range ds.Rows {
		partition, key, err := kb.build(row, uint64(seq), nil)
		if err != nil {
			return nil, err
		}
		buckets[partition] = append(buckets[partition], keyedRow{key: key, row: row})
	}
	partitions := make([]Partition, spec.NumPartitions)
	for i, bucket := range buckets {
		sort.Slice(bucket, func(a, b int) bool {
			return bytes.Compare(bucket[a].key, bucket[b].key) < 0
		})
		rows := make([]common.Row, len(bucket))
		for j, kr := range bucket {
			rows[j] = kr.row
		}
		partitions[i] = &memoryPartition{id: i, rows: rows}
	}
	return partitions, nil
}

func (m *MemoryEngine) Close() error {
	return nil
}

type memoryPartition struct {
	id   int
	rows []common.Row
	pos  int
}

func (p *memoryPartition) ID() int {
	return p.id
}

func (p *memoryPartition) Next() (common.Row, bool, error) {
	if p.pos >= len(p.rows) {
		return common.Row{}, false, nil
	}
	r := p.rows[p.pos]
	p.pos++
	return r, true, nil
}

func (p *memoryPartition) Close() error {
	p.rows = nil
	return nil
}
