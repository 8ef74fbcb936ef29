package state

import (
	"sync/atomic"
)

// State captures the state of a node: Running, Terminating or Stopped
type State uint32

const (
	// Running is the state in which a node polls its timers and channels and
	// relays news.
	Running State = iota

	// Terminating is the state in which a node has observed cancellation and
	// is broadcasting its Absence.
	Terminating

	// Stopped is the state in which a node has left its loop and closed its
	// transport.
	Stopped
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Terminating:
		return "Terminating"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Manager wraps a State with get and set methods that are safe to call from
// observers while the node loop runs.
type Manager struct {
	state State
}

// GetState returns the current state.
func (b *Manager) GetState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

// SetState sets the state.
func (b *Manager) SetState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}
