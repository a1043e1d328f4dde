package transport

import (
	"sync"
	"sync/atomic"
)

// Initializer runs a one-time setup routine and caches its result.
// It is safe for concurrent use: racing first callers block until the
// single run completes and then all observe the same error.
type Initializer struct {
	once sync.Once
	fn   func() error
	err  error
	runs atomic.Int32
}

// NewInitializer wraps fn.  fn runs on the first call to Do only.
func NewInitializer(fn func() error) *Initializer {
	return &Initializer{fn: fn}
}

// Do runs the setup routine if it has not run yet and returns its result.
func (i *Initializer) Do() error {
	i.once.Do(func() {
		i.runs.Add(1)
		i.err = i.fn()
	})
	return i.err
}

// Runs reports how many times the setup routine has executed (0 or 1).
func (i *Initializer) Runs() int { return int(i.runs.Load()) }

// processInit guards the platform network-subsystem startup.
var processInit = NewInitializer(startup) //nolint:gochecknoglobals

// Init prepares the host network stack for socket use.  It must run
// before the first handle is created and is a no-op after the first
// call.  On Unix it ignores SIGPIPE so writes to a closed peer fail with
// EPIPE instead of terminating the process; on Windows it calls
// WSAStartup.
func Init() error { return processInit.Do() }
