// Package engine partitions a dataset by group key and sorts every partition by group key then order key, which
// is the input order the windowing loop requires.
package engine

import (
	"fmt"
	"time"

	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/conf"
	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/sharder"
)

// Dataset is a set of rows sharing one schema.
type Dataset struct {
	Columns []common.ColumnInfo
	Rows    []common.Row
}

func NewDataset(columns []common.ColumnInfo) *Dataset {
	return &Dataset{Columns: columns}
}

func (d *Dataset) ColumnTypes() []common.ColumnType {
	return common.ColumnTypes(d.Columns)
}

func (d *Dataset) ColumnNames() []string {
	return common.ColumnNames(d.Columns)
}

// ColumnIndex finds a column by name.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	for i, col := range d.Columns {
		if col.Name == name {
			return i, true
		}
	}
	return -1, false
}

// AppendRow checks the row against the schema before adding it. Timestamps are cut to common.TimestampPrecision.
func (d *Dataset) AppendRow(row common.Row) error {
	if row.ColCount() != len(d.Columns) {
		return errors.NewCodecError("row has %d columns, dataset has %d", row.ColCount(), len(d.Columns))
	}
	var normalized []interface{}
	for i, col := range d.Columns {
		v := row.Value(i)
		if err := common.CheckValue(v, col.ColumnType); err != nil {
			return errors.NewCodecError("column %s: %v", col.Name, err)
		}
		ts, ok := v.(time.Time)
		if !ok || ts.Nanosecond()%int(common.TimestampPrecision) == 0 {
			continue
		}
		if normalized == nil {
			normalized = append([]interface{}(nil), row.Values()...)
		}
		normalized[i] = common.NormalizeTimestamp(ts)
	}
	if normalized != nil {
		row = common.NewRow(normalized...)
	}
	d.Rows = append(d.Rows, row)
	return nil
}

// SortSpec says how to lay a dataset out for windowing.
type SortSpec struct {
	GroupCols     []int
	OrderCol      int
	Descending    bool
	NumPartitions int
}

func (s SortSpec) String() string {
	return fmt.Sprintf("partitions=%d group=%v order=%d desc=%t", s.NumPartitions, s.GroupCols, s.OrderCol, s.Descending)
}

// Partition streams the rows of one partition in sorted order. Rows of a group are contiguous and ordered by the
// order column, rows with equal group and order values keep their dataset order.
type Partition interface {
	ID() int
	Next() (common.Row, bool, error)
	Close() error
}

type Engine interface {
	PartitionAndSort(ds *Dataset, spec SortSpec) ([]Partition, error)
	Close() error
}

// NewEngine creates the engine the config selects.
func NewEngine(cnf *conf.Config) (Engine, error) {
	switch cnf.Engine {
	case conf.EngineMemory:
		return NewMemoryEngine(), nil
	case conf.EnginePebble:
		return NewPebbleEngine(cnf.DataDir, cnf.InMemoryStore)
	default:
		return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("unknown engine %s", cnf.Engine))
	}
}

// keyBuilder produces sort keys: the key-encoded group columns, then the order key surrogate, then the row's
// sequence number in the dataset. Byte order of the keys is the order rows must be windowed in.
type keyBuilder struct {
	spec      SortSpec
	sharder   *sharder.Sharder
	orderType common.ColumnType
}

func newKeyBuilder(colTypes []common.ColumnType, spec SortSpec) (*keyBuilder, error) {
	if spec.OrderCol < 0 || spec.OrderCol >= len(colTypes) {
		return nil, errors.Errorf("order column %d out of range, dataset has %d columns", spec.OrderCol, len(colTypes))
	}
	s, err := sharder.NewSharder(spec.NumPartitions, spec.GroupCols, colTypes)
	if err != nil {
		return nil, err
	}
	return &keyBuilder{spec: spec, sharder: s, orderType: colTypes[spec.OrderCol]}, nil
}

// build appends the sort key of row to buff and returns it with the row's partition.
func (k *keyBuilder) build(row common.Row, seq uint64, buff []byte) (int, []byte, error) {
	partition, groupKey, err := k.sharder.PartitionKey(row)
	if err != nil {
		return 0, nil, err
	}
	orderKey, err := common.OrderKey(row.Value(k.spec.OrderCol), k.orderType, k.spec.Descending)
	if err != nil {
		return 0, nil, err
	}
	buff = append(buff, groupKey...)
	buff = common.KeyEncodeInt64(buff, orderKey)
	buff = common.AppendUint64ToBufferBE(buff, seq)
	return partition, buff, nil
}
