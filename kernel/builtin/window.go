package builtin

import (
	"math"
	"sync/atomic"

	"github.com/squareup/winagg/aggfuncs"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/kernel"
)

var countStarValue interface{} = int64(1)

type entry struct {
	orderKey int64
	args     []interface{}
}

// window holds the rows currently inside the frame, oldest first, together with the aggregate state over them.
// A window is bound to the first function invoked on it.
type window struct {
	module   *Module
	frame    kernel.Frame
	fn       *Function
	aggState *aggfuncs.AggState
	results  []interface{}
	entries  []entry
	head     int
	lastKey  int64
	started  bool
	disposed bool
}

func (w *window) bind(fn *Function) error {
	if w.fn != nil {
		return errors.Errorf("window is bound to function %s, cannot invoke %s", w.fn.id, fn.id)
	}
	w.fn = fn
	w.aggState = aggfuncs.NewAggState(len(fn.aggFuncs))
	w.results = make([]interface{}, len(fn.aggFuncs))
	return nil
}

func (w *window) add(orderKey int64, argBytes []byte) error {
	if w.started && orderKey < w.lastKey {
		return errors.Errorf("order key %d is lower than the previous key %d", orderKey, w.lastKey)
	}
	var args []interface{}
	if len(w.fn.def.Args) > 0 {
		args = make([]interface{}, len(w.fn.def.Args))
		if err := common.DecodeRow(argBytes, w.fn.def.Args, args, 0); err != nil {
			return err
		}
	} else if len(argBytes) != 0 {
		return errors.NewCodecError("function %s takes no arguments, got %d argument bytes", w.fn.id, len(argBytes))
	}
	if err := w.eval(args, false); err != nil {
		return err
	}
	w.entries = append(w.entries, entry{orderKey: orderKey, args: args})
	w.started = true
	w.lastKey = orderKey
	return w.evict(orderKey)
}

func (w *window) eval(args []interface{}, reverse bool) error {
	for i, agg := range w.fn.def.Aggregates {
		v := countStarValue
		if agg.ArgIndex != CountStarArg {
			v = args[agg.ArgIndex]
		}
		if err := aggfuncs.Eval(w.fn.aggFuncs[i], v, w.aggState, i, reverse); err != nil {
			return errors.Wrapf(err, "aggregate %d (%s)", i, agg.FuncType)
		}
	}
	return nil
}

func (w *window) evict(orderKey int64) error {
	if w.frame.StartOffset == kernel.UnboundedPreceding {
		return nil
	}
	for w.size() > 0 && w.expired(w.entries[w.head], orderKey) {
		if err := w.eval(w.entries[w.head].args, true); err != nil {
			return err
		}
		w.entries[w.head] = entry{}
		w.head++
	}
	if w.head == len(w.entries) {
		w.entries = w.entries[:0]
		w.head = 0
	} else if w.head > 64 && w.head*2 > len(w.entries) {
		n := copy(w.entries, w.entries[w.head:])
		w.entries = w.entries[:n]
		w.head = 0
	}
	return nil
}

func (w *window) expired(e entry, orderKey int64) bool {
	if w.frame.Type == kernel.FrameRows {
		// the current row plus -StartOffset preceding rows stay
		return int64(w.size())-1 > -w.frame.StartOffset
	}
	lower := orderKey + w.frame.StartOffset
	if lower > orderKey {
		lower = math.MinInt64
	}
	return e.orderKey < lower
}

func (w *window) size() int {
	return len(w.entries) - w.head
}

func (w *window) result(buffer []byte) ([]byte, error) {
	for i, aggFunc := range w.fn.aggFuncs {
		res, err := aggFunc.Result(w.aggState, i)
		if err != nil {
			return nil, errors.Wrapf(err, "aggregate %d (%s)", i, aggFunc.FuncType())
		}
		w.results[i] = res
	}
	return common.EncodeRow(common.RowView(w.results), w.fn.resultTypes, buffer)
}

func (w *window) Dispose() {
	if w.disposed {
		return
	}
	w.disposed = true
	w.entries = nil
	w.aggState = nil
	w.results = nil
	atomic.AddInt64(&w.module.openWindows, -1)
}
