// Package builtin is the kernel module shipped with winagg. It evaluates compiled aggregate functions over RANGE and
// ROWS frames, retracting rows from the aggregates as they fall out of the frame.
package builtin

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/kernel"
)

// ModuleID is the id the module is registered under in the process wide kernel registry.
const ModuleID = "builtin"

func init() {
	kernel.Register(ModuleID, func() (kernel.Kernel, error) {
		return NewModule(), nil
	})
}

type Module struct {
	lock        sync.RWMutex
	functions   map[string]*Function
	buffers     sync.Pool
	openWindows int64
}

func NewModule() *Module {
	return &Module{
		functions: make(map[string]*Function),
		buffers: sync.Pool{New: func() interface{} {
			b := make([]byte, 0, 64)
			return &b
		}},
	}
}

// Compile validates def and makes it invocable under a freshly generated function id.
func (m *Module) Compile(def FunctionDef) (*Function, error) {
	fn, err := compileFunction(uuid.New().String(), def)
	if err != nil {
		return nil, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.functions[fn.id] = fn
	log.Debugf("compiled window function %s with %d aggregates", fn.id, len(def.Aggregates))
	return fn, nil
}

// Drop forgets a compiled function. Windows already bound to it keep working.
func (m *Module) Drop(functionID string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.functions, functionID)
}

func (m *Module) lookup(functionID string) (*Function, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	fn, ok := m.functions[functionID]
	if !ok {
		return nil, errors.NewUnknownFunctionError(functionID)
	}
	return fn, nil
}

func (m *Module) NewWindow(frame kernel.Frame) (kernel.Window, error) {
	if frame.StartOffset > 0 {
		return nil, errors.NewInvalidFrameError("frame must start at or before the current row")
	}
	atomic.AddInt64(&m.openWindows, 1)
	return &window{module: m, frame: frame}, nil
}

func (m *Module) Invoke(functionID string, orderKey int64, input common.EncodedRow, kw kernel.Window) (common.EncodedRow, error) {
	w, ok := kw.(*window)
	if !ok || w.module != m {
		return nil, errors.Errorf("window %T was not created by this module", kw)
	}
	if w.disposed {
		return nil, errors.New("invoke on disposed window")
	}
	if w.fn == nil || w.fn.id != functionID {
		fn, err := m.lookup(functionID)
		if err != nil {
			return nil, err
		}
		if err := w.bind(fn); err != nil {
			return nil, err
		}
	}
	if len(input) != 2 {
		return nil, errors.NewCodecError("input row has %d slices, function %s expects 2", len(input), functionID)
	}
	if err := w.add(orderKey, input[1]); err != nil {
		return nil, err
	}
	out := common.EncodedRow{m.acquire(), m.acquire()}
	out[0] = append(out[0], input[0]...)
	var err error
	out[1], err = w.result(out[1])
	if err != nil {
		m.ReleaseRow(out)
		return nil, err
	}
	return out, nil
}

func (m *Module) ReleaseRow(row common.EncodedRow) {
	for i := range row {
		b := row[i][:0]
		m.buffers.Put(&b)
		row[i] = nil
	}
}

func (m *Module) acquire() []byte {
	return (*m.buffers.Get().(*[]byte))[:0]
}

// OpenWindows is the number of windows created and not yet disposed.
func (m *Module) OpenWindows() int64 {
	return atomic.LoadInt64(&m.openWindows)
}
