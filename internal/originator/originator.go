// Package originator defines the runtime side of the topology: the components
// built from settings nodes.
//
// An Originator is constructed by the factory, handed its settings through
// ApplySettings (where it resolves its dependencies through a Resolver), and
// later started, cleared and disposed by the core. Every transition goes
// through a Lifecycle, so observers can follow an originator from
// instantiation to disposal.
package originator

import (
	"sync"

	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// Originator is a live component built from a settings node.
type Originator interface {
	ID() int
	Name() string
	Lifecycle() *Lifecycle

	// Serialize reports whether CopySettings output belongs in a saved document.
	Serialize() bool
	SetSerialize(bool)

	// ApplySettings clears any previous state and loads node. Dependencies
	// are obtained through r, which carries the in-progress resolution chain.
	ApplySettings(node settings.Node, r Resolver) error

	// CopySettings returns a fresh settings node describing the current state.
	CopySettings() settings.Node

	ClearSettings()
	StartSettings() error
	Dispose()
}

// Resolver hands out originators by id while one is being constructed.
type Resolver interface {
	Resolve(id int) (Originator, error)

	// Chain returns the ids currently under construction, outermost first.
	Chain() []int
}

// Base carries the bookkeeping shared by every originator. Concrete types
// embed it and call Apply, Clear, Start and DisposeWith from their own
// ApplySettings, ClearSettings, StartSettings and Dispose.
type Base struct {
	mu        sync.RWMutex
	id        int
	name      string
	header    settings.Base
	serialize bool
	lifecycle Lifecycle
}

// ID returns the settings id this originator was built from.
func (b *Base) ID() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.id
}

// Name returns the configured display name.
func (b *Base) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// Lifecycle returns the state machine of this originator.
func (b *Base) Lifecycle() *Lifecycle {
	return &b.lifecycle
}

// State is shorthand for Lifecycle().State().
func (b *Base) State() State {
	return b.lifecycle.State()
}

// Serialize reports whether this originator is written back on save.
func (b *Base) Serialize() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.serialize
}

// SetSerialize marks whether this originator is written back on save.
func (b *Base) SetSerialize(v bool) {
	b.mu.Lock()
	b.serialize = v
	b.mu.Unlock()
}

// Apply runs the ApplySettings sequence: clear (through clear), then load
// the common header from node and call load for the concrete fields.
//
// A load error leaves the originator in StateLoading; the factory disposes
// such instances.
func (b *Base) Apply(node settings.Node, clear func(), load func() error) error {
	if b.lifecycle.State() == StateDisposed {
		return ErrDisposed
	}
	b.Clear(clear)

	meta := node.Meta()
	b.mu.Lock()
	b.id = meta.ID
	b.name = meta.Name
	b.header = *meta
	b.header.Permissions = append([]settings.Permission(nil), meta.Permissions...)
	b.mu.Unlock()
	b.lifecycle.setOwner(meta.ID)

	if err := b.lifecycle.transition(StateLoading); err != nil {
		return err
	}
	if load != nil {
		if err := load(); err != nil {
			return err
		}
	}
	return b.lifecycle.transition(StateLoaded)
}

// Clear runs the ClearSettings sequence. The id survives; everything loaded
// from settings is reset. Clearing a disposed originator does nothing.
func (b *Base) Clear(clear func()) {
	if b.lifecycle.State() == StateDisposed {
		return
	}
	if err := b.lifecycle.transition(StateClearing); err != nil {
		return
	}
	if clear != nil {
		clear()
	}

	b.mu.Lock()
	b.name = ""
	b.header = settings.Base{}
	b.mu.Unlock()

	_ = b.lifecycle.transition(StateCleared)
}

// Start runs the StartSettings sequence. Starting an already started
// originator is a no-op. A start error drops back to StateLoaded.
func (b *Base) Start(start func() error) error {
	switch s := b.lifecycle.State(); s {
	case StateStarted:
		return nil
	case StateDisposed:
		return ErrDisposed
	case StateLoaded:
	default:
		return ErrNotLoaded
	}

	if err := b.lifecycle.transition(StateStarting); err != nil {
		return err
	}
	if start != nil {
		if err := start(); err != nil {
			_ = b.lifecycle.transition(StateLoaded)
			return err
		}
	}
	return b.lifecycle.transition(StateStarted)
}

// DisposeWith clears the originator, marks it disposed and detaches every
// lifecycle observer. Repeated calls do nothing.
func (b *Base) DisposeWith(clear func()) {
	if b.lifecycle.State() == StateDisposed {
		return
	}
	b.Clear(clear)
	_ = b.lifecycle.transition(StateDisposed)
	b.lifecycle.detachAll()
}

// CopyBase fills dst with the header loaded by the last Apply.
func (b *Base) CopyBase(dst *settings.Base) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	*dst = b.header
	dst.Permissions = append([]settings.Permission(nil), b.header.Permissions...)
	dst.ID = b.id
	dst.Name = b.name
}
