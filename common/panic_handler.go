package common

import (
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// PanicHandler is deferred at the top of goroutines the module starts itself. A panic there is a bug, so the
// process logs the stack and exits rather than limping on with half-released window state.
func PanicHandler() {
	r := recover()
	if r == nil {
		return // no panic underway
	}
	log.Errorf("panic occurred in winagg %v\n%s", r, debug.Stack())
	os.Exit(1)
}
