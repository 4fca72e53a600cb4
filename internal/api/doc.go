// Package api implements the HTTP status API of the topology engine.
//
// This package provides:
//   - Read endpoints for the originator graph, the last load report and the
//     serialized document
//   - Write endpoints that trigger reload, save and start passes
//   - Paginated access to the save/load journal
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Graceful Degradation
//
// The journal and MQTT are optional. Without a journal the journal endpoint
// answers 503; without MQTT the metrics report it as disconnected.
package api
