package core

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-topology/internal/journal"
	"github.com/nerrad567/gray-logic-topology/internal/migration"
	"github.com/nerrad567/gray-logic-topology/internal/platform"
	"github.com/nerrad567/gray-logic-topology/internal/registry"
)

// Logger is the logging interface used by the core.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store reads and writes the topology document.
// Read must return an error matching fs.ErrNotExist when there is no document.
type Store interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, text string) (backup string, err error)
}

// MQTTClient publishes topology events.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Metrics records pass and save measurements.
type Metrics interface {
	WritePass(m influxdb.PassMetric)
	WriteSave(bytes int, nodes int, d time.Duration)
}

// Journal records passes and saves.
type Journal interface {
	Record(ctx context.Context, e *journal.Entry) error
}

// Options configures a Core. Only Registry is required.
type Options struct {
	Registry *registry.Registry

	// Chain defaults to migration.Default().
	Chain *migration.Chain

	// Store is needed by Load, Reload and Save.
	Store Store

	// Platform defaults to platform.Local().
	Platform platform.Services

	Logger  Logger
	MQTT    MQTTClient
	Metrics Metrics
	Journal Journal

	// StartOnLoad runs the start pass after each successful load.
	StartOnLoad bool
}
