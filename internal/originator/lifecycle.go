package originator

import (
	"fmt"
	"slices"
	"sync"
)

// State is the lifecycle position of an originator.
type State int

// Lifecycle states, in the order a healthy originator passes through them.
const (
	StateInstantiated State = iota
	StateLoading
	StateLoaded
	StateStarting
	StateStarted
	StateClearing
	StateCleared
	StateDisposed
)

var stateNames = map[State]string{
	StateInstantiated: "instantiated",
	StateLoading:      "loading",
	StateLoaded:       "loaded",
	StateStarting:     "starting",
	StateStarted:      "started",
	StateClearing:     "clearing",
	StateCleared:      "cleared",
	StateDisposed:     "disposed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists the legal next states for each state.
// A failed load stays in Loading until it is cleared; a failed start drops
// back to Loaded.
var transitions = map[State][]State{
	StateInstantiated: {StateClearing},
	StateClearing:     {StateCleared},
	StateCleared:      {StateLoading, StateClearing, StateDisposed},
	StateLoading:      {StateLoaded, StateClearing},
	StateLoaded:       {StateStarting, StateClearing},
	StateStarting:     {StateStarted, StateLoaded, StateClearing},
	StateStarted:      {StateClearing},
	StateDisposed:     nil,
}

// CanTransition reports whether to directly follows from.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// StateChange is delivered to lifecycle observers.
type StateChange struct {
	ID   int
	From State
	To   State
}

// Lifecycle is the state machine shared by every originator.
//
// Observers are called synchronously, outside the internal lock, in
// subscription order.
type Lifecycle struct {
	mu        sync.Mutex
	state     State
	owner     int
	observers map[int]func(StateChange)
	nextObs   int
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Subscribe registers fn for state changes. The returned function detaches it.
func (l *Lifecycle) Subscribe(fn func(StateChange)) (unsubscribe func()) {
	l.mu.Lock()
	if l.observers == nil {
		l.observers = make(map[int]func(StateChange))
	}
	id := l.nextObs
	l.nextObs++
	l.observers[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.observers, id)
		l.mu.Unlock()
	}
}

// Observers returns the number of attached observers.
func (l *Lifecycle) Observers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.observers)
}

// transition moves to the next state, rejecting skipped steps.
func (l *Lifecycle) transition(to State) error {
	l.mu.Lock()
	from := l.state
	if !CanTransition(from, to) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	l.state = to
	change := StateChange{ID: l.owner, From: from, To: to}
	observers := l.snapshotLocked()
	l.mu.Unlock()

	for _, fn := range observers {
		fn(change)
	}
	return nil
}

// detachAll drops every observer.
func (l *Lifecycle) detachAll() {
	l.mu.Lock()
	l.observers = nil
	l.mu.Unlock()
}

func (l *Lifecycle) setOwner(id int) {
	l.mu.Lock()
	l.owner = id
	l.mu.Unlock()
}

func (l *Lifecycle) snapshotLocked() []func(StateChange) {
	keys := make([]int, 0, len(l.observers))
	for k := range l.observers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fns := make([]func(StateChange), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, l.observers[k])
	}
	return fns
}
