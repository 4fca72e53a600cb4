package nodes

import (
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-topology/internal/factory"
	"github.com/nerrad567/gray-logic-topology/internal/originator"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// PortSettings holds the fields shared by every port kind.
type PortSettings struct {
	settings.Base
	Device  int `xml:"Device"`
	Address int `xml:"Address"`
}

// Dependencies returns the owning device.
func (s *PortSettings) Dependencies() []int { return []int{s.Device} }

// Validate requires a device and a non-negative address.
func (s *PortSettings) Validate() error {
	if s.Device <= 0 {
		return ErrMissingDevice
	}
	if s.Address < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAddress, s.Address)
	}
	return nil
}

// IrPortSettings configures an infrared emitter port.
type IrPortSettings struct {
	PortSettings
}

// SerialPortSettings configures an RS-232 port.
type SerialPortSettings struct {
	PortSettings
	Baud int `xml:"Baud,omitempty"`
}

// RelayPortSettings configures a contact closure.
type RelayPortSettings struct {
	PortSettings
	NormallyOpen bool `xml:"NormallyOpen"`
}

// PortNode is implemented by every port originator.
type PortNode interface {
	originator.Originator
	Device() *Device
	Address() int
}

// port is the shared state of the port originators.
type port struct {
	originator.Base

	mu      sync.RWMutex
	device  *Device
	address int
}

// Device returns the owning device.
func (p *port) Device() *Device {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.device
}

// Address returns the port number on the device.
func (p *port) Address() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.address
}

func (p *port) ClearSettings()       { p.Clear(p.clear) }
func (p *port) StartSettings() error { return p.Start(nil) }
func (p *port) Dispose()             { p.DisposeWith(p.clear) }

func (p *port) clear() {
	p.mu.Lock()
	p.device = nil
	p.address = 0
	p.mu.Unlock()
}

func (p *port) applyWith(node settings.Node, s *PortSettings, r originator.Resolver, clear, extra func()) error {
	return p.Apply(node, clear, func() error {
		dev, err := factory.GetByID[*Device](r, s.Device)
		if err != nil {
			return fmt.Errorf("device %d: %w", s.Device, err)
		}
		p.mu.Lock()
		p.device = dev
		p.address = s.Address
		p.mu.Unlock()
		if extra != nil {
			extra()
		}
		return nil
	})
}

func (p *port) copyPort(dst *PortSettings) {
	p.CopyBase(&dst.Base)
	if dev := p.Device(); dev != nil {
		dst.Device = dev.ID()
	}
	dst.Address = p.Address()
}

// IrPort is an infrared emitter on a device.
type IrPort struct{ port }

// ApplySettings loads s and resolves the owning device.
func (p *IrPort) ApplySettings(node settings.Node, r originator.Resolver) error {
	s, ok := node.(*IrPortSettings)
	if !ok {
		return originator.WrongSettings(node, p)
	}
	return p.applyWith(node, &s.PortSettings, r, p.clear, nil)
}

// CopySettings returns the current configuration.
func (p *IrPort) CopySettings() settings.Node {
	s := &IrPortSettings{}
	p.copyPort(&s.PortSettings)
	return s
}

// SerialPort is an RS-232 port on a device.
type SerialPort struct {
	port
	baud int
}

// Baud returns the configured line speed, 0 meaning the device default.
func (p *SerialPort) Baud() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.baud
}

// ApplySettings loads s and resolves the owning device.
func (p *SerialPort) ApplySettings(node settings.Node, r originator.Resolver) error {
	s, ok := node.(*SerialPortSettings)
	if !ok {
		return originator.WrongSettings(node, p)
	}
	return p.applyWith(node, &s.PortSettings, r, p.clearSerial, func() {
		p.mu.Lock()
		p.baud = s.Baud
		p.mu.Unlock()
	})
}

// CopySettings returns the current configuration.
func (p *SerialPort) CopySettings() settings.Node {
	s := &SerialPortSettings{Baud: p.Baud()}
	p.copyPort(&s.PortSettings)
	return s
}

// RelayPort is a contact closure on a device.
type RelayPort struct {
	port
	normallyOpen bool
}

// NormallyOpen reports the relay's resting state.
func (p *RelayPort) NormallyOpen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.normallyOpen
}

// ApplySettings loads s and resolves the owning device.
func (p *RelayPort) ApplySettings(node settings.Node, r originator.Resolver) error {
	s, ok := node.(*RelayPortSettings)
	if !ok {
		return originator.WrongSettings(node, p)
	}
	return p.applyWith(node, &s.PortSettings, r, p.clearRelay, func() {
		p.mu.Lock()
		p.normallyOpen = s.NormallyOpen
		p.mu.Unlock()
	})
}

// CopySettings returns the current configuration.
func (p *RelayPort) CopySettings() settings.Node {
	s := &RelayPortSettings{NormallyOpen: p.NormallyOpen()}
	p.copyPort(&s.PortSettings)
	return s
}

func (p *SerialPort) ClearSettings() { p.Clear(p.clearSerial) }
func (p *SerialPort) Dispose()       { p.DisposeWith(p.clearSerial) }

func (p *SerialPort) clearSerial() {
	p.clear()
	p.mu.Lock()
	p.baud = 0
	p.mu.Unlock()
}

func (p *RelayPort) ClearSettings() { p.Clear(p.clearRelay) }
func (p *RelayPort) Dispose()       { p.DisposeWith(p.clearRelay) }

func (p *RelayPort) clearRelay() {
	p.clear()
	p.mu.Lock()
	p.normallyOpen = false
	p.mu.Unlock()
}
