package plan

import (
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/squareup/winagg/aggfuncs"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/engine"
	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/kernel"
	"github.com/squareup/winagg/kernel/builtin"
	"github.com/squareup/winagg/window"
)

// OutputColumn is one column of a stage's output: a column passed through unchanged, or an aggregate.
type OutputColumn struct {
	Name string
	// Column is the input column read. It is empty for COUNT(*).
	Column    string
	Aggregate bool
	FuncType  aggfuncs.AggFunctionType
}

type OrderColumn struct {
	Column     string
	Descending bool
}

// StageDef describes a window stage by column name.
type StageDef struct {
	Output  []OutputColumn
	GroupBy []string
	OrderBy []OrderColumn
	Frame   kernel.Frame
	// PartitionCount overrides the configured partition count when > 0.
	PartitionCount int
}

// Stage is a window stage resolved against a concrete input schema. Everything it holds is immutable, one stage can
// be executed any number of times.
type Stage struct {
	planner       *Planner
	def           StageDef
	inputColumns  []common.ColumnInfo
	projection    []int
	function      *builtin.Function
	executor      *window.Executor
	sortSpec      engine.SortSpec
	outputOrder   []int
	outputColumns []common.ColumnInfo
}

// NewStage resolves def against the input schema, compiles its window function and builds the window config.
// Every configuration problem is reported here, before any row is processed.
func (p *Planner) NewStage(def StageDef, inputColumns []common.ColumnInfo) (*Stage, error) { //nolint:gocyclo
	if len(def.OrderBy) != 1 {
		names := make([]string, len(def.OrderBy))
		for i, o := range def.OrderBy {
			names[i] = o.Column
		}
		return nil, errors.NewUnsupportedOrderKeyError(names)
	}
	if def.Frame.StartOffset > 0 {
		return nil, errors.NewInvalidFrameError("frame must start at or before the current row")
	}
	if def.PartitionCount < 0 {
		return nil, errors.NewInvalidConfigurationError("partition count must be >= 0")
	}
	names := common.ColumnNames(inputColumns)
	resolve := func(name string) (int, error) {
		for i, col := range inputColumns {
			if col.Name == name {
				return i, nil
			}
		}
		return -1, errors.NewUnknownColumnError(name, names)
	}

	// The projected input row is the pass-through columns followed by the argument columns. Group and order columns
	// that are neither are added to the arguments so the loop can read them.
	var passThrough, args []int
	var aggDefs []builtin.AggregateDef
	outputOrder := make([]int, len(def.Output))
	argPos := map[int]int{}
	addArg := func(col int) int {
		pos, ok := argPos[col]
		if !ok {
			pos = len(args)
			args = append(args, col)
			argPos[col] = pos
		}
		return pos
	}
	for i, out := range def.Output {
		if !out.Aggregate {
			col, err := resolve(out.Column)
			if err != nil {
				return nil, err
			}
			outputOrder[i] = len(passThrough)
			passThrough = append(passThrough, col)
			continue
		}
		argIndex := builtin.CountStarArg
		if out.Column != "" {
			col, err := resolve(out.Column)
			if err != nil {
				return nil, err
			}
			argIndex = addArg(col)
		} else if out.FuncType != aggfuncs.CountAggregateFunctionType {
			return nil, errors.NewInvalidStatementError(fmt.Sprintf("%s(*) is not supported", out.FuncType))
		}
		outputOrder[i] = -1 - len(aggDefs)
		aggDefs = append(aggDefs, builtin.AggregateDef{FuncType: out.FuncType, ArgIndex: argIndex})
	}
	if len(aggDefs) == 0 {
		return nil, errors.NewInvalidStatementError("window stage must compute at least one aggregate")
	}
	for i := range outputOrder {
		if outputOrder[i] < 0 {
			outputOrder[i] = len(passThrough) + (-1 - outputOrder[i])
		}
	}

	projectedPos := func(col int) int {
		for i, c := range passThrough {
			if c == col {
				return i
			}
		}
		return len(passThrough) + addArg(col)
	}
	groupCols := make([]int, len(def.GroupBy))
	for i, name := range def.GroupBy {
		col, err := resolve(name)
		if err != nil {
			return nil, err
		}
		groupCols[i] = projectedPos(col)
	}
	order := def.OrderBy[0]
	orderCol, err := resolve(order.Column)
	if err != nil {
		return nil, err
	}
	if orderType := inputColumns[orderCol].ColumnType; !common.IsOrderableType(orderType.Type) {
		return nil, errors.NewUnsupportedOrderColumnTypeError(order.Column, orderType.String())
	}
	orderPos := projectedPos(orderCol)

	projection := append(append([]int{}, passThrough...), args...)
	projTypes := make([]common.ColumnType, len(projection))
	for i, col := range projection {
		projTypes[i] = inputColumns[col].ColumnType
	}
	fn, err := p.compiler.Compile(builtin.FunctionDef{
		PassThrough: projTypes[:len(passThrough)],
		Args:        projTypes[len(passThrough):],
		Aggregates:  aggDefs,
	})
	if err != nil {
		return nil, errors.NewInvalidStatementError(errors.Cause(err).Error())
	}
	executor, err := window.NewExecutor(window.Config{
		Frame:            def.Frame,
		OrderColIndex:    orderPos,
		Descending:       order.Descending,
		GroupColIndexes:  groupCols,
		FunctionID:       fn.ID(),
		InputSlices:      fn.InputSlices(),
		OutputSlices:     fn.OutputSlices(),
		EncodeBufferSize: p.config.EncodeBufferSize,
		CopyOutputRows:   p.config.CopyOutputRows,
	}, p.compiler, p.injector)
	if err != nil {
		p.compiler.Drop(fn.ID())
		return nil, err
	}

	numPartitions := def.PartitionCount
	if numPartitions == 0 {
		numPartitions = p.config.NumPartitions()
	}
	loopOutput := common.FlattenSlices(fn.OutputSlices())
	outputColumns := make([]common.ColumnInfo, len(def.Output))
	for i, out := range def.Output {
		outputColumns[i] = common.ColumnInfo{Name: out.Name, ColumnType: loopOutput[outputOrder[i]]}
	}
	return &Stage{
		planner:      p,
		def:          def,
		inputColumns: inputColumns,
		projection:   projection,
		function:     fn,
		executor:     executor,
		sortSpec: engine.SortSpec{
			GroupCols:     groupCols,
			OrderCol:      orderPos,
			Descending:    order.Descending,
			NumPartitions: numPartitions,
		},
		outputOrder:   outputOrder,
		outputColumns: outputColumns,
	}, nil
}

// OutputColumns is the schema of the datasets Execute returns.
func (s *Stage) OutputColumns() []common.ColumnInfo {
	return s.outputColumns
}

func (s *Stage) String() string {
	cols := make([]string, len(s.outputColumns))
	for i, col := range s.outputColumns {
		cols[i] = col.Name
	}
	return fmt.Sprintf("window stage (%s) %s, %s", strings.Join(cols, ", "), s.def.Frame, s.sortSpec)
}

// Close drops the stage's compiled function.
func (s *Stage) Close() {
	s.planner.compiler.Drop(s.function.ID())
}

type partitionResult struct {
	rows  []common.Row
	stats window.Stats
	err   error
}

// Execute runs the stage over ds. Partitions run in parallel on the planner's workers, each partition's rows come
// out in the order the window loop produced them and partitions are concatenated in partition order. If any
// partition fails no output is returned.
func (s *Stage) Execute(ds *engine.Dataset) (*engine.Dataset, error) {
	if err := s.checkSchema(ds.Columns); err != nil {
		return nil, err
	}
	projected, err := s.project(ds)
	if err != nil {
		return nil, err
	}
	m := s.planner.metrics
	m.rowsIn.Add(float64(len(ds.Rows)))

	partitions, err := s.planner.engine.PartitionAndSort(projected, s.sortSpec)
	if err != nil {
		return nil, err
	}
	results := make([]partitionResult, len(partitions))
	var wg sync.WaitGroup
	for i, partition := range partitions {
		i, partition := i, partition
		wg.Add(1)
		err := s.planner.workers.Submit(func() {
			defer wg.Done()
			results[i] = s.runPartition(partition)
		})
		if err != nil {
			wg.Done()
			results[i] = partitionResult{err: errors.WithStack(err)}
			if err := partition.Close(); err != nil {
				log.Warnf("failed to close partition %d: %v", partition.ID(), err)
			}
		}
	}
	wg.Wait()

	var firstErr error
	var stats window.Stats
	for i, res := range results {
		if res.err != nil {
			m.partitionsFailed.Inc()
			if firstErr == nil {
				firstErr = res.err
				log.Errorf("%s failed in partition %d: %+v", s, i, res.err)
			}
			continue
		}
		stats.RowsIn += res.stats.RowsIn
		stats.RowsOut += res.stats.RowsOut
		stats.WindowsCreated += res.stats.WindowsCreated
		stats.BytesEncoded += res.stats.BytesEncoded
	}
	if firstErr != nil {
		return nil, firstErr
	}
	out := engine.NewDataset(s.outputColumns)
	out.Rows = make([]common.Row, 0, stats.RowsOut)
	for _, res := range results {
		out.Rows = append(out.Rows, res.rows...)
	}
	m.rowsOut.Add(float64(stats.RowsOut))
	m.windowsCreated.Add(float64(stats.WindowsCreated))
	log.Infof("%s processed %d rows in %d partitions, %d windows, %d bytes encoded", s, stats.RowsIn,
		len(partitions), stats.WindowsCreated, stats.BytesEncoded)
	return out, nil
}

func (s *Stage) runPartition(partition engine.Partition) (res partitionResult) {
	m := s.planner.metrics
	m.partitionsRunning.Add(1)
	it := s.executor.Execute(partition.ID(), partition)
	defer func() {
		if r := recover(); r != nil {
			it.Close()
			res = partitionResult{err: common.LogInternalError(errors.Errorf("partition %d panicked: %v", partition.ID(), r))}
		}
		if err := partition.Close(); err != nil && res.err == nil {
			res = partitionResult{err: err}
		}
		m.partitionsRunning.Add(-1)
	}()
	var rows []common.Row
	for {
		r, ok, err := it.Next()
		if err != nil {
			return partitionResult{err: err, stats: it.Stats()}
		}
		if !ok {
			break
		}
		values := make([]interface{}, len(s.outputOrder))
		for i, pos := range s.outputOrder {
			values[i] = r.Value(pos)
		}
		rows = append(rows, common.NewRow(values...))
	}
	stats := it.Stats()
	log.Debugf("partition %d of %s produced %d rows with %d windows", partition.ID(), s, stats.RowsOut,
		stats.WindowsCreated)
	return partitionResult{rows: rows, stats: stats}
}

func (s *Stage) checkSchema(columns []common.ColumnInfo) error {
	if len(columns) != len(s.inputColumns) {
		return errors.NewInvalidConfigurationError(fmt.Sprintf("dataset has %d columns, stage was planned for %d",
			len(columns), len(s.inputColumns)))
	}
	for i, col := range columns {
		if col != s.inputColumns[i] {
			return errors.NewInvalidConfigurationError(fmt.Sprintf("dataset column %d is %s %s, stage was planned for %s %s",
				i, col.Name, col.ColumnType, s.inputColumns[i].Name, s.inputColumns[i].ColumnType))
		}
	}
	return nil
}

func (s *Stage) project(ds *engine.Dataset) (*engine.Dataset, error) {
	columns := make([]common.ColumnInfo, len(s.projection))
	for i, col := range s.projection {
		columns[i] = ds.Columns[col]
	}
	projected := engine.NewDataset(columns)
	projected.Rows = make([]common.Row, len(ds.Rows))
	for i, row := range ds.Rows {
		if row.ColCount() != len(ds.Columns) {
			return nil, errors.NewCodecError("row %d has %d columns, dataset has %d", i, row.ColCount(), len(ds.Columns))
		}
		values := make([]interface{}, len(s.projection))
		for j, col := range s.projection {
			values[j] = row.Value(col)
		}
		projected.Rows[i] = common.NewRow(values...)
	}
	return projected, nil
}
