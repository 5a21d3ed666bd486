package window

import (
	"github.com/squareup/winagg/bufpool"
	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/kernel"
)

type StateStatus int

const (
	StateUninitialized StateStatus = iota
	StateActive
	StateDisposed
)

// State owns the kernel window of the group being scanned together with the pool its rows were encoded from. At
// most one window is live at a time and the pool is freed whenever that window goes away.
type State struct {
	kernel  kernel.Kernel
	frame   kernel.Frame
	pool    *bufpool.Pool
	window  kernel.Window
	status  StateStatus
	created int64
}

func NewState(k kernel.Kernel, frame kernel.Frame, pool *bufpool.Pool) *State {
	return &State{kernel: k, frame: frame, pool: pool}
}

// Reset disposes the current window, if any, frees the group's buffers and opens an empty window for the next
// group.
func (s *State) Reset() error {
	switch s.status {
	case StateDisposed:
		return errors.New("reset of disposed window state")
	case StateActive:
		s.release()
	}
	w, err := s.kernel.NewWindow(s.frame)
	if err != nil {
		s.status = StateUninitialized
		return err
	}
	s.window = w
	s.status = StateActive
	s.created++
	return nil
}

// Window is the live window, nil unless the state is active.
func (s *State) Window() kernel.Window {
	return s.window
}

func (s *State) Status() StateStatus {
	return s.status
}

// WindowsCreated counts the windows opened over the state's lifetime.
func (s *State) WindowsCreated() int64 {
	return s.created
}

// Dispose releases the live window and the pool. It is terminal and safe to call more than once.
func (s *State) Dispose() {
	if s.status == StateDisposed {
		return
	}
	if s.status == StateActive {
		s.release()
	}
	s.pool.Close()
	s.status = StateDisposed
}

func (s *State) release() {
	s.window.Dispose()
	s.window = nil
	s.pool.FreeAll()
}
