// Package metrics is a tiny facade over a pluggable metrics backend.
//
// The pipeline records counters through package-level functions; the
// default backend is a nop, so library code never checks whether metrics
// are enabled. Entry points install a real backend (see prompush) when the
// operator asks for one, and metrics failures are never allowed to fail a
// run.
package metrics

import "sync"

// Backend receives metric observations and ships them somewhere.
type Backend interface {
	// IncCounter adds value to the named counter. Tags are optional
	// key/value labels; backends may fold or drop them.
	IncCounter(name string, value float64, tags map[string]string)

	// Flush pushes any buffered metrics. Called once at the end of a run.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, map[string]string) {}
func (nopBackend) Flush() error                                  { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

// IncCounter adds value to a counter on the installed backend.
func IncCounter(name string, value float64, tags map[string]string) {
	mu.RLock()
	b := backend
	mu.RUnlock()
	b.IncCounter(name, value, tags)
}

// Flush flushes the installed backend.
func Flush() error {
	mu.RLock()
	b := backend
	mu.RUnlock()
	return b.Flush()
}
