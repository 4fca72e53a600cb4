package nodes

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-topology/internal/originator"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// Network is the control endpoint of a device.
type Network struct {
	Address string `xml:"Address,omitempty"`
	Port    int    `xml:"Port,omitempty"`
}

// Endpoint returns "host:port", or "" when no address is configured.
func (n Network) Endpoint() string {
	if n.Address == "" {
		return ""
	}
	if n.Port == 0 {
		return n.Address
	}
	return net.JoinHostPort(n.Address, strconv.Itoa(n.Port))
}

// DeviceSettings configures a GenericDevice.
type DeviceSettings struct {
	settings.Base
	Network Network `xml:"Network"`
}

// Validate checks the network port range.
func (s *DeviceSettings) Validate() error {
	if s.Network.Port < 0 || s.Network.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, s.Network.Port)
	}
	return nil
}

// Device is a piece of controllable equipment. Ports, volume points and
// routing endpoints hang off a device.
type Device struct {
	originator.Base

	mu        sync.RWMutex
	network   Network
	startedAt time.Time
}

// Network returns the configured control endpoint.
func (d *Device) Network() Network {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.network
}

// StartedAt returns when the device was started, or the zero time.
func (d *Device) StartedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startedAt
}

// ApplySettings loads s.
func (d *Device) ApplySettings(node settings.Node, _ originator.Resolver) error {
	s, ok := node.(*DeviceSettings)
	if !ok {
		return originator.WrongSettings(node, d)
	}
	return d.Apply(node, d.clear, func() error {
		d.mu.Lock()
		d.network = s.Network
		d.mu.Unlock()
		return nil
	})
}

// CopySettings returns the current configuration.
func (d *Device) CopySettings() settings.Node {
	s := &DeviceSettings{Network: d.Network()}
	d.CopyBase(&s.Base)
	return s
}

func (d *Device) ClearSettings() { d.Clear(d.clear) }

func (d *Device) StartSettings() error {
	return d.Start(func() error {
		d.mu.Lock()
		d.startedAt = time.Now()
		d.mu.Unlock()
		return nil
	})
}

func (d *Device) Dispose() { d.DisposeWith(d.clear) }

func (d *Device) clear() {
	d.mu.Lock()
	d.network = Network{}
	d.startedAt = time.Time{}
	d.mu.Unlock()
}
