package nodes

import (
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-topology/internal/factory"
	"github.com/nerrad567/gray-logic-topology/internal/originator"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// VolumePointSettings configures a VolumePoint. Device is optional.
type VolumePointSettings struct {
	settings.Base
	Device     int    `xml:"Device,omitempty"`
	VolumeType string `xml:"VolumeType,omitempty"`
}

// Dependencies returns the controlling device, if any.
func (s *VolumePointSettings) Dependencies() []int { return []int{s.Device} }

// VolumePoint is an adjustable audio level, usually owned by a room.
type VolumePoint struct {
	originator.Base

	mu         sync.RWMutex
	device     *Device
	volumeType string
}

// Device returns the controlling device, or nil.
func (v *VolumePoint) Device() *Device {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.device
}

// VolumeType returns the configured volume type, e.g. "Master".
func (v *VolumePoint) VolumeType() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.volumeType
}

// ApplySettings loads s and resolves the device when one is set.
func (v *VolumePoint) ApplySettings(node settings.Node, r originator.Resolver) error {
	s, ok := node.(*VolumePointSettings)
	if !ok {
		return originator.WrongSettings(node, v)
	}
	return v.Apply(node, v.clear, func() error {
		var dev *Device
		if s.Device > 0 {
			var err error
			dev, err = factory.GetByID[*Device](r, s.Device)
			if err != nil {
				return fmt.Errorf("device %d: %w", s.Device, err)
			}
		}
		v.mu.Lock()
		v.device = dev
		v.volumeType = s.VolumeType
		v.mu.Unlock()
		return nil
	})
}

// CopySettings returns the current configuration.
func (v *VolumePoint) CopySettings() settings.Node {
	s := &VolumePointSettings{VolumeType: v.VolumeType()}
	v.CopyBase(&s.Base)
	if dev := v.Device(); dev != nil {
		s.Device = dev.ID()
	}
	return s
}

func (v *VolumePoint) ClearSettings()       { v.Clear(v.clear) }
func (v *VolumePoint) StartSettings() error { return v.Start(nil) }
func (v *VolumePoint) Dispose()             { v.DisposeWith(v.clear) }

func (v *VolumePoint) clear() {
	v.mu.Lock()
	v.device = nil
	v.volumeType = ""
	v.mu.Unlock()
}
