package nodes

import (
	"github.com/nerrad567/gray-logic-topology/internal/originator"
	"github.com/nerrad567/gray-logic-topology/internal/registry"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// Factory names of the built-in kinds.
const (
	FactoryGenericDevice = "GenericDevice"
	FactoryIrPort        = "IrPort"
	FactorySerialPort    = "SerialPort"
	FactoryRelayPort     = "RelayPort"
	FactoryVolumePoint   = "VolumePoint"
	FactorySource        = "Source"
	FactoryDestination   = "Destination"
	FactoryRoom          = "Room"
)

// Providers returns the registration table of the built-in kinds.
func Providers() []registry.Provider {
	return []registry.Provider{Register}
}

// Register adds every built-in kind to r.
func Register(r *registry.Registry) {
	for _, reg := range Registrations() {
		r.MustRegister(reg)
	}
}

// Registrations lists the built-in kinds in document group order.
func Registrations() []registry.Registration {
	return []registry.Registration{
		{
			Name: FactoryGenericDevice, Group: "Devices", Element: "Device",
			NewSettings:   func() settings.Node { return &DeviceSettings{Base: settings.NewBase()} },
			NewOriginator: func() originator.Originator { return &Device{} },
		},
		{
			Name: FactoryIrPort, Group: "Ports", Element: "Port",
			NewSettings: func() settings.Node {
				return &IrPortSettings{PortSettings{Base: settings.NewBase()}}
			},
			NewOriginator: func() originator.Originator { return &IrPort{} },
		},
		{
			Name: FactorySerialPort, Group: "Ports", Element: "Port",
			NewSettings: func() settings.Node {
				return &SerialPortSettings{PortSettings: PortSettings{Base: settings.NewBase()}}
			},
			NewOriginator: func() originator.Originator { return &SerialPort{} },
		},
		{
			Name: FactoryRelayPort, Group: "Ports", Element: "Port",
			NewSettings: func() settings.Node {
				return &RelayPortSettings{PortSettings: PortSettings{Base: settings.NewBase()}}
			},
			NewOriginator: func() originator.Originator { return &RelayPort{} },
		},
		{
			Name: FactoryVolumePoint, Group: "VolumePoints", Element: "VolumePoint",
			NewSettings:   func() settings.Node { return &VolumePointSettings{Base: settings.NewBase()} },
			NewOriginator: func() originator.Originator { return &VolumePoint{} },
		},
		{
			Name: FactorySource, Group: "Sources", Element: "Source",
			NewSettings: func() settings.Node {
				return &SourceSettings{EndpointSettings{Base: settings.NewBase()}}
			},
			NewOriginator: func() originator.Originator { return &Source{} },
		},
		{
			Name: FactoryDestination, Group: "Destinations", Element: "Destination",
			NewSettings: func() settings.Node {
				return &DestinationSettings{EndpointSettings{Base: settings.NewBase()}}
			},
			NewOriginator: func() originator.Originator { return &Destination{} },
		},
		{
			Name: FactoryRoom, Group: "Rooms", Element: "Room",
			NewSettings:   func() settings.Node { return &RoomSettings{Base: settings.NewBase()} },
			NewOriginator: func() originator.Originator { return &Room{} },
		},
	}
}
