// Package registry provides the Type Registry for the topology engine.
//
// The registry maps factory names (the "type" attribute of every node
// element) to a pair of constructors: one for the settings node parsed from
// the document, one for the originator built from it.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────┐
//	│                          Registry                              │
//	│                                                                │
//	│  providers ──(sync.Once)──▶  byName     "IrPort" ─▶ entry      │
//	│                               bySettings *IrPortSettings ─▶ entry
//	│                                                                │
//	│  Instantiate(el) ─▶ type attr ─▶ NewSettings() ─▶ DecodeNode   │
//	│  Describe(node)  ─▶ settings type ─▶ FactoryName/Group/Element │
//	│  NewOriginator(node) ─▶ NewOriginator()                        │
//	└────────────────────────────────────────────────────────────────┘
//
// # Registration
//
// Registrations come from an explicit table of providers handed to New.
// Providers run lazily, once, on the first lookup; the resulting map is kept
// for the lifetime of the registry. A duplicate factory name is rejected and
// logged; the first registration wins.
//
// # Usage
//
//	reg := registry.New(nodes.Providers()...)
//	reg.SetLogger(logger)
//
//	node, err := reg.Instantiate(el)
//	if errors.Is(err, registry.ErrUnknownFactory) {
//	    // skip the element
//	}
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package registry
