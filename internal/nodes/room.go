package nodes

import (
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/gray-logic-topology/internal/factory"
	"github.com/nerrad567/gray-logic-topology/internal/originator"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// RoomChildren lists the nodes placed in a room, by kind. Other holds
// references whose kind was unknown when the document was migrated.
type RoomChildren struct {
	Devices      []int `xml:"Device"`
	Ports        []int `xml:"Port"`
	Sources      []int `xml:"Source"`
	Destinations []int `xml:"Destination"`
	VolumePoints []int `xml:"VolumePoint"`
	Other        []int `xml:"Child"`
}

// All returns every child id, kind by kind.
func (c RoomChildren) All() []int {
	var all []int
	for _, ids := range [][]int{c.Devices, c.Ports, c.Sources, c.Destinations, c.VolumePoints, c.Other} {
		all = append(all, ids...)
	}
	return all
}

// RoomSettings configures a Room.
type RoomSettings struct {
	settings.Base
	VolumePoint int          `xml:"VolumePoint,omitempty"`
	Children    RoomChildren `xml:"Children"`
}

// Dependencies returns the volume point and every child.
func (s *RoomSettings) Dependencies() []int {
	return append([]int{s.VolumePoint}, s.Children.All()...)
}

// Room groups the equipment of one physical space.
type Room struct {
	originator.Base

	mu           sync.RWMutex
	volume       *VolumePoint
	devices      []*Device
	ports        []PortNode
	sources      []*Source
	destinations []*Destination
	volumePoints []*VolumePoint
	other        []originator.Originator
}

// VolumePoint returns the room's master volume, or nil.
func (r *Room) VolumePoint() *VolumePoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.volume
}

// Devices returns the devices placed in the room.
func (r *Room) Devices() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.devices)
}

// Ports returns the ports placed in the room.
func (r *Room) Ports() []PortNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.ports)
}

// Sources returns the sources available in the room.
func (r *Room) Sources() []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sources)
}

// Destinations returns the destinations in the room.
func (r *Room) Destinations() []*Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.destinations)
}

// Children returns every child originator, kind by kind.
func (r *Room) Children() []originator.Originator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []originator.Originator
	for _, d := range r.devices {
		out = append(out, d)
	}
	for _, p := range r.ports {
		out = append(out, p)
	}
	for _, s := range r.sources {
		out = append(out, s)
	}
	for _, d := range r.destinations {
		out = append(out, d)
	}
	for _, v := range r.volumePoints {
		out = append(out, v)
	}
	return append(out, r.other...)
}

// ApplySettings loads s and resolves the volume point and children.
func (r *Room) ApplySettings(node settings.Node, res originator.Resolver) error {
	s, ok := node.(*RoomSettings)
	if !ok {
		return originator.WrongSettings(node, r)
	}
	return r.Apply(node, r.clear, func() error {
		var (
			volume *VolumePoint
			err    error
		)
		if s.VolumePoint > 0 {
			if volume, err = factory.GetByID[*VolumePoint](res, s.VolumePoint); err != nil {
				return fmt.Errorf("volume point %d: %w", s.VolumePoint, err)
			}
		}

		devices, err := resolveAll[*Device](res, s.Children.Devices)
		if err != nil {
			return err
		}
		ports, err := resolveAll[PortNode](res, s.Children.Ports)
		if err != nil {
			return err
		}
		sources, err := resolveAll[*Source](res, s.Children.Sources)
		if err != nil {
			return err
		}
		destinations, err := resolveAll[*Destination](res, s.Children.Destinations)
		if err != nil {
			return err
		}
		volumePoints, err := resolveAll[*VolumePoint](res, s.Children.VolumePoints)
		if err != nil {
			return err
		}
		other, err := resolveAll[originator.Originator](res, s.Children.Other)
		if err != nil {
			return err
		}

		r.mu.Lock()
		r.volume = volume
		r.devices = devices
		r.ports = ports
		r.sources = sources
		r.destinations = destinations
		r.volumePoints = volumePoints
		r.other = other
		r.mu.Unlock()
		return nil
	})
}

// CopySettings returns the current configuration.
func (r *Room) CopySettings() settings.Node {
	s := &RoomSettings{}
	r.CopyBase(&s.Base)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.volume != nil {
		s.VolumePoint = r.volume.ID()
	}
	s.Children = RoomChildren{
		Devices:      ids(r.devices),
		Ports:        ids(r.ports),
		Sources:      ids(r.sources),
		Destinations: ids(r.destinations),
		VolumePoints: ids(r.volumePoints),
		Other:        ids(r.other),
	}
	return s
}

func (r *Room) ClearSettings()       { r.Clear(r.clear) }
func (r *Room) StartSettings() error { return r.Start(nil) }
func (r *Room) Dispose()             { r.DisposeWith(r.clear) }

func (r *Room) clear() {
	r.mu.Lock()
	r.volume = nil
	r.devices = nil
	r.ports = nil
	r.sources = nil
	r.destinations = nil
	r.volumePoints = nil
	r.other = nil
	r.mu.Unlock()
}

func resolveAll[T any](r originator.Resolver, refs []int) ([]T, error) {
	out := make([]T, 0, len(refs))
	for _, id := range refs {
		v, err := factory.GetByID[T](r, id)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", id, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func ids[T originator.Originator](items []T) []int {
	if len(items) == 0 {
		return nil
	}
	out := make([]int, len(items))
	for i, item := range items {
		out[i] = item.ID()
	}
	return out
}
