package failinject

import (
	"fmt"
	"sync"

	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
)

// Failpoints checked by the partition windowing loop.
const (
	BeforeEncodeFailpoint = "window_before_encode"
	BeforeInvokeFailpoint = "window_before_invoke"
	AfterDecodeFailpoint  = "window_after_decode"
)

var windowFailpoints = []string{BeforeEncodeFailpoint, BeforeInvokeFailpoint, AfterDecodeFailpoint}

func NewInjector() Injector {
	return &defaultInjector{failpoints: make(map[string]*defaultFailpoint)}
}

type Injector interface {
	RegisterFailpoint(name string) (Failpoint, error)
	GetFailpoint(name string) Failpoint
	Start() error
	Stop() error
}

type Failpoint interface {
	CheckFail() error
	SetFailAction(action FailAction)
	Deactivate()
}

type FailAction func() error

type defaultInjector struct {
	failpoints map[string]*defaultFailpoint
	lock       sync.Mutex
}

type defaultFailpoint struct {
	name       string
	active     common.AtomicBool
	lock       sync.Mutex
	failAction FailAction
}

func (i *defaultInjector) RegisterFailpoint(name string) (Failpoint, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	if _, ok := i.failpoints[name]; ok {
		return nil, errors.Errorf("failpoint %s already registered", name)
	}
	fp := &defaultFailpoint{
		name: name,
	}
	i.failpoints[name] = fp
	return fp, nil
}

func (i *defaultInjector) GetFailpoint(name string) Failpoint {
	i.lock.Lock()
	defer i.lock.Unlock()
	fp, ok := i.failpoints[name]
	if !ok {
		panic(fmt.Sprintf("no failpoint registered with name %s", name))
	}
	return fp
}

func (f *defaultFailpoint) CheckFail() error {
	if !f.active.Get() {
		return nil
	}
	f.lock.Lock()
	action := f.failAction
	f.lock.Unlock()
	if action == nil {
		return errors.Errorf("no fail action specified for failpoint %s", f.name)
	}
	return action()
}

func (f *defaultFailpoint) SetFailAction(action FailAction) {
	f.lock.Lock()
	f.failAction = action
	f.lock.Unlock()
	f.active.Set(true)
}

func (f *defaultFailpoint) Deactivate() {
	f.active.Set(false)
	f.lock.Lock()
	f.failAction = nil
	f.lock.Unlock()
}

func (i *defaultInjector) Start() error {
	for _, name := range windowFailpoints {
		if _, err := i.RegisterFailpoint(name); err != nil {
			return err
		}
	}
	return nil
}

func (i *defaultInjector) Stop() error {
	return nil
}
