// Package nodes provides the built-in node kinds of the topology engine.
//
// Every kind is a settings/originator pair registered under a factory name:
//
//	Factory name    Group          Depends on
//	─────────────   ────────────   ─────────────────────────────
//	GenericDevice   Devices        -
//	IrPort          Ports          Device
//	SerialPort      Ports          Device
//	RelayPort       Ports          Device
//	VolumePoint     VolumePoints   Device (optional)
//	Source          Sources        Device
//	Destination     Destinations   Device
//	Room            Rooms          VolumePoint, Children
//
// Originators obtain their dependencies through the Resolver handed to
// ApplySettings, so the factory builds a device before any port on it and
// reports cycles between rooms and their children.
//
// Providers returns the registration table consumed by registry.New.
package nodes
