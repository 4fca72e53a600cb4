// Package logging provides structured logging for the topology engine.
//
// It wraps log/slog with the engine's default fields (service, version)
// and the level/format/output settings from the configuration file:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	reg.SetLogger(logger.Component("registry"))
//	logger.Error("topology load failed", "error", err)
//
// Never log secrets such as the MQTT password or InfluxDB token.
package logging
