package kernel

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/squareup/winagg/errors"
)

// InitFunc creates a kernel module. It is called at most once per registry and module id.
type InitFunc func() (Kernel, error)

// Registry holds kernel modules keyed by module id. Modules are initialized lazily on first Load, concurrent first
// loads from several partitions initialize a module exactly once and all observe the same result.
type Registry struct {
	lock    sync.Mutex
	modules map[string]*moduleEntry
}

type moduleEntry struct {
	init   InitFunc
	once   sync.Once
	kernel Kernel
	err    error
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*moduleEntry)}
}

// Register makes a module available under moduleID. Registering the same id twice panics.
func (r *Registry) Register(moduleID string, init InitFunc) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.modules[moduleID]; ok {
		panic("kernel module already registered: " + moduleID)
	}
	r.modules[moduleID] = &moduleEntry{init: init}
}

// Load returns the module's kernel, initializing it on first use. A failed initialization is remembered and
// returned to every later caller.
func (r *Registry) Load(moduleID string) (Kernel, error) {
	r.lock.Lock()
	entry, ok := r.modules[moduleID]
	r.lock.Unlock()
	if !ok {
		return nil, errors.NewUnknownModuleError(moduleID)
	}
	entry.once.Do(func() {
		log.Debugf("initializing kernel module %s", moduleID)
		entry.kernel, entry.err = entry.init()
		if entry.err != nil {
			entry.err = errors.Wrapf(entry.err, "failed to initialize kernel module %s", moduleID)
		}
	})
	return entry.kernel, entry.err
}

var defaultRegistry = NewRegistry()

// Register adds a module to the process wide registry, typically from an init function.
func Register(moduleID string, init InitFunc) {
	defaultRegistry.Register(moduleID, init)
}

// Load returns a module from the process wide registry.
func Load(moduleID string) (Kernel, error) {
	return defaultRegistry.Load(moduleID)
}
