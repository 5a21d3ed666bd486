package common

import (
	"io"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

func InvokeCloser(closer io.Closer) {
	if closer != nil {
		if err := closer.Close(); err != nil {
			log.Warnf("failed to close closer %v", err)
		}
	}
}

const atFalse = 0
const atTrue = 1

type AtomicBool struct {
	val int32
}

func (a *AtomicBool) Get() bool {
	return atomic.LoadInt32(&a.val) == atTrue
}

func (a *AtomicBool) Set(val bool) {
	atomic.StoreInt32(&a.val, a.toInt(val))
}

func (a *AtomicBool) toInt(val bool) int32 {
	if val {
		return atTrue
	}
	return atFalse
}
