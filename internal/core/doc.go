// Package core is the root aggregate of the topology engine.
//
// A Core owns the live originator graph and drives every pass over it:
//
//	text ──▶ ReadVersion ──▶ migration.Chain ──▶ registry (parse)
//	                                                  │
//	                                      settings.Collection
//	                                                  │
//	   originator.Collection ◀── construction order ── factory.Factory
//
// Load reads the document from the store (writing a stub first when none
// exists), migrates it to the current schema, parses it and resolves every
// settings id in document order. Per-node failures (type mismatch,
// construction errors, elements skipped at parse time) are logged and
// reported in the LoadReport; the rest of the graph still loads. A cyclic
// dependency aborts the pass and disposes everything built so far in
// reverse construction order.
//
// Save writes CopySettings of every originator flagged for serialization,
// plus the raw settings of nodes that never materialized, through the store
// (which keeps a timestamped backup of the previous document).
//
// Every pass is published on MQTT, written to InfluxDB and recorded in the
// journal when those collaborators are configured.
package core
