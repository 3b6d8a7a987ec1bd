//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// On regular Go the tick and edge handlers run on goroutines, so a mutex
// stands in for interrupt masking. Critical sections must not nest.
var irqLock sync.Mutex

// disableInterrupts enters the critical section
func disableInterrupts() State {
	irqLock.Lock()
	return 0
}

// restoreInterrupts leaves the critical section
func restoreInterrupts(state State) {
	irqLock.Unlock()
}
