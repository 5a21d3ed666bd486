// Package window runs the sliding window aggregation over one partition. Rows arrive sorted by group columns and
// then by the order column, the loop detects group boundaries, keeps one kernel window per group and produces
// exactly one output row per input row.
package window

import (
	log "github.com/sirupsen/logrus"
	"github.com/squareup/winagg/bufpool"
	"github.com/squareup/winagg/codec"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/failinject"
	"github.com/squareup/winagg/kernel"
)

// RowIterator yields a partition's rows. Next returns false once the rows are exhausted.
type RowIterator interface {
	Next() (common.Row, bool, error)
}

type sliceIterator struct {
	rows []common.Row
	pos  int
}

// NewSliceIterator iterates over rows held in memory.
func NewSliceIterator(rows []common.Row) RowIterator {
	return &sliceIterator{rows: rows}
}

func (s *sliceIterator) Next() (common.Row, bool, error) {
	if s.pos >= len(s.rows) {
		return common.Row{}, false, nil
	}
	r := s.rows[s.pos]
	s.pos++
	return r, true, nil
}

// Executor creates the windowing loop for each partition of a stage. It holds only immutable state and can be used
// from many goroutines at once.
type Executor struct {
	config    Config
	orderType common.ColumnType
	kernel    kernel.Kernel
	injector  failinject.Injector
}

func NewExecutor(config Config, k kernel.Kernel, injector failinject.Injector) (*Executor, error) {
	orderType, err := config.Validate()
	if err != nil {
		return nil, err
	}
	if injector == nil {
		injector = failinject.NewDummyInjector()
	}
	return &Executor{config: config, orderType: orderType, kernel: k, injector: injector}, nil
}

func (e *Executor) Config() Config {
	return e.config
}

// Execute returns an iterator producing the output rows of one partition. Nothing happens until the first call to
// Next. The caller must either drain the iterator or Close it.
func (e *Executor) Execute(partitionID int, input RowIterator) *Iterator {
	pool := bufpool.NewPool(e.config.EncodeBufferSize)
	decoder := codec.NewDecoder(e.config.OutputSlices)
	return &Iterator{
		executor:      e,
		partitionID:   partitionID,
		input:         input,
		comparator:    NewGroupComparator(e.config.GroupColIndexes),
		state:         NewState(e.kernel, e.config.Frame, pool),
		pool:          pool,
		encoder:       codec.NewEncoder(e.config.InputSlices, pool),
		decoder:       decoder,
		out:           decoder.NewOutputArray(),
		fpEncode:      e.injector.GetFailpoint(failinject.BeforeEncodeFailpoint),
		fpInvoke:      e.injector.GetFailpoint(failinject.BeforeInvokeFailpoint),
		fpAfterDecode: e.injector.GetFailpoint(failinject.AfterDecodeFailpoint),
	}
}

type Stats struct {
	RowsIn         int64
	RowsOut        int64
	WindowsCreated int64
	BytesEncoded   int64
}

// Iterator is the windowing loop of one partition. It is not safe for concurrent use.
//
// Unless the config asks for copies, the row returned by Next is a view over an array the next call overwrites.
// Callers that keep rows past one iteration must Copy them.
type Iterator struct {
	executor      *Executor
	partitionID   int
	input         RowIterator
	comparator    *GroupComparator
	state         *State
	pool          *bufpool.Pool
	encoder       *codec.Encoder
	decoder       *codec.Decoder
	out           []interface{}
	prev          common.Row
	hasPrev       bool
	rowIndex      int64
	err           error
	closed        bool
	stats         Stats
	fpEncode      failinject.Failpoint
	fpInvoke      failinject.Failpoint
	fpAfterDecode failinject.Failpoint
}

// Next produces the output row for the next input row. Once it has returned an error every later call returns the
// same error, and the partition's resources have already been released.
func (it *Iterator) Next() (common.Row, bool, error) {
	if it.err != nil {
		return common.Row{}, false, it.err
	}
	if it.closed {
		return common.Row{}, false, nil
	}
	r, ok, err := it.input.Next()
	if err != nil {
		return it.fail(errors.WithRowContext(errors.MaybeAddStack(err), it.partitionID, it.rowIndex))
	}
	if !ok {
		it.Close()
		return common.Row{}, false, nil
	}
	rowIndex := it.rowIndex
	it.rowIndex++
	it.stats.RowsIn++
	row, err := it.process(r, rowIndex)
	if err != nil {
		if !errors.HasCode(err, errors.KernelError) {
			err = errors.WithRowContext(err, it.partitionID, rowIndex)
		}
		return it.fail(err)
	}
	it.stats.RowsOut++
	return row, true, nil
}

func (it *Iterator) process(r common.Row, rowIndex int64) (common.Row, error) {
	config := &it.executor.config
	if !it.hasPrev || it.comparator.NewGroup(r, it.prev) {
		if err := it.state.Reset(); err != nil {
			return common.Row{}, errors.NewKernelError(config.FunctionID, it.partitionID, rowIndex, err)
		}
		it.stats.WindowsCreated++
	}
	it.prev = r
	it.hasPrev = true

	if err := it.fpEncode.CheckFail(); err != nil {
		return common.Row{}, err
	}
	encoded, err := it.encoder.Encode(r, true)
	if err != nil {
		return common.Row{}, err
	}
	it.stats.BytesEncoded += int64(encoded.Size())
	orderKey, err := common.OrderKey(r.Value(config.OrderColIndex), it.executor.orderType, config.Descending)
	if err != nil {
		return common.Row{}, err
	}

	if err := it.fpInvoke.CheckFail(); err != nil {
		return common.Row{}, errors.NewKernelError(config.FunctionID, it.partitionID, rowIndex, err)
	}
	output, err := it.executor.kernel.Invoke(config.FunctionID, orderKey, encoded, it.state.Window())
	if err != nil {
		var we errors.WinError
		if errors.As(err, &we) {
			return common.Row{}, err
		}
		return common.Row{}, errors.NewKernelError(config.FunctionID, it.partitionID, rowIndex, err)
	}
	err = it.decoder.Decode(output, it.out)
	it.executor.kernel.ReleaseRow(output)
	if err != nil {
		return common.Row{}, err
	}
	if err := it.fpAfterDecode.CheckFail(); err != nil {
		return common.Row{}, err
	}

	if config.CopyOutputRows {
		return common.RowView(it.out).Copy(), nil
	}
	return common.RowView(it.out), nil
}

func (it *Iterator) fail(err error) (common.Row, bool, error) {
	it.err = err
	log.Debugf("window loop of partition %d failed after %d rows: %v", it.partitionID, it.stats.RowsIn, err)
	it.Close()
	return common.Row{}, false, err
}

// Close releases the partition's window and encode buffers. It is safe to call more than once.
func (it *Iterator) Close() {
	if it.closed {
		return
	}
	it.closed = true
	it.state.Dispose()
	log.Debugf("window loop of partition %d done, %d rows in, %d rows out, %d windows", it.partitionID,
		it.stats.RowsIn, it.stats.RowsOut, it.stats.WindowsCreated)
}

func (it *Iterator) Stats() Stats {
	return it.stats
}

// Pool is the pool rows are encoded from, exposed for leak checks.
func (it *Iterator) Pool() *bufpool.Pool {
	return it.pool
}

// Drain runs the loop to completion and returns detached copies of every output row.
func (it *Iterator) Drain() ([]common.Row, error) {
	defer it.Close()
	var rows []common.Row
	for {
		r, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		if it.executor.config.CopyOutputRows {
			rows = append(rows, r)
		} else {
			rows = append(rows, r.Copy())
		}
	}
}
