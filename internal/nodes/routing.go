package nodes

import (
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/gray-logic-topology/internal/factory"
	"github.com/nerrad567/gray-logic-topology/internal/originator"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// EndpointSettings holds the fields shared by sources and destinations:
// the switching device and the addresses (inputs or outputs) on it.
type EndpointSettings struct {
	settings.Base
	Device    int   `xml:"Device"`
	Addresses []int `xml:"Addresses>Address"`
}

// Dependencies returns the switching device.
func (s *EndpointSettings) Dependencies() []int { return []int{s.Device} }

// Validate requires a device and non-negative addresses.
func (s *EndpointSettings) Validate() error {
	if s.Device <= 0 {
		return ErrMissingDevice
	}
	for _, a := range s.Addresses {
		if a < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidAddress, a)
		}
	}
	return nil
}

// SourceSettings configures a Source.
type SourceSettings struct{ EndpointSettings }

// DestinationSettings configures a Destination.
type DestinationSettings struct{ EndpointSettings }

// endpoint is the shared state of Source and Destination.
type endpoint struct {
	originator.Base

	mu        sync.RWMutex
	device    *Device
	addresses []int
}

// Device returns the switching device.
func (e *endpoint) Device() *Device {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.device
}

// Addresses returns a copy of the configured addresses.
func (e *endpoint) Addresses() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.addresses)
}

func (e *endpoint) applyEndpoint(node settings.Node, s *EndpointSettings, r originator.Resolver) error {
	return e.Apply(node, e.clear, func() error {
		dev, err := factory.GetByID[*Device](r, s.Device)
		if err != nil {
			return fmt.Errorf("device %d: %w", s.Device, err)
		}
		e.mu.Lock()
		e.device = dev
		e.addresses = slices.Clone(s.Addresses)
		e.mu.Unlock()
		return nil
	})
}

func (e *endpoint) copyEndpoint(dst *EndpointSettings) {
	e.CopyBase(&dst.Base)
	if dev := e.Device(); dev != nil {
		dst.Device = dev.ID()
	}
	dst.Addresses = e.Addresses()
}

func (e *endpoint) ClearSettings()       { e.Clear(e.clear) }
func (e *endpoint) StartSettings() error { return e.Start(nil) }
func (e *endpoint) Dispose()             { e.DisposeWith(e.clear) }

func (e *endpoint) clear() {
	e.mu.Lock()
	e.device = nil
	e.addresses = nil
	e.mu.Unlock()
}

// Source is a signal input on a switching device.
type Source struct{ endpoint }

// ApplySettings loads s and resolves the device.
func (src *Source) ApplySettings(node settings.Node, r originator.Resolver) error {
	s, ok := node.(*SourceSettings)
	if !ok {
		return originator.WrongSettings(node, src)
	}
	return src.applyEndpoint(node, &s.EndpointSettings, r)
}

// CopySettings returns the current configuration.
func (src *Source) CopySettings() settings.Node {
	s := &SourceSettings{}
	src.copyEndpoint(&s.EndpointSettings)
	return s
}

// Destination is a signal output on a switching device.
type Destination struct{ endpoint }

// ApplySettings loads s and resolves the device.
func (dst *Destination) ApplySettings(node settings.Node, r originator.Resolver) error {
	s, ok := node.(*DestinationSettings)
	if !ok {
		return originator.WrongSettings(node, dst)
	}
	return dst.applyEndpoint(node, &s.EndpointSettings, r)
}

// CopySettings returns the current configuration.
func (dst *Destination) CopySettings() settings.Node {
	s := &DestinationSettings{}
	dst.copyEndpoint(&s.EndpointSettings)
	return s
}
