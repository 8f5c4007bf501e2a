package dispatch

import "sync"

var (
	defaultDispatcher *Dispatcher
	defaultMu         sync.Mutex
)

// SetDefault installs the process-wide dispatcher used by the REST
// controllers. Called once at startup after the queue and blob store
// are configured.
func SetDefault(d *Dispatcher) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultDispatcher = d
}

// Default returns the process-wide dispatcher, or nil before startup
// has installed one.
func Default() *Dispatcher {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultDispatcher
}
