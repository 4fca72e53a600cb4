// Gray Logic Topology - installation topology engine
//
// This is the main entry point for the topology engine. It loads the site's
// XML topology document, migrates it to the current schema, builds the
// originator graph and keeps it available over MQTT and a status HTTP API
// until shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-topology/internal/api"
	"github.com/nerrad567/gray-logic-topology/internal/core"
	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-topology/internal/journal"
	"github.com/nerrad567/gray-logic-topology/internal/migration"
	"github.com/nerrad567/gray-logic-topology/internal/nodes"
	"github.com/nerrad567/gray-logic-topology/internal/platform"
	"github.com/nerrad567/gray-logic-topology/internal/registry"
	"github.com/nerrad567/gray-logic-topology/internal/store"
	"github.com/nerrad567/gray-logic-topology/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/topology.yaml"

// commandQueueSize bounds remote commands waiting for the worker.
// Commands beyond it are dropped with a warning.
const commandQueueSize = 8

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Topology",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	svc, err := platform.FromConfig(cfg.Topology)
	if err != nil {
		return fmt.Errorf("resolving topology paths: %w", err)
	}
	docStore := store.NewFile(svc, cfg.Topology.MaxBackups)
	docStore.SetLogger(log.Component("store"))

	reg := registry.New(nodes.Providers()...)
	reg.SetLogger(log.Component("registry"))
	chain := migration.Default()
	chain.SetLogger(log.Component("migration"))

	opts := core.Options{
		Registry:    reg,
		Chain:       chain,
		Store:       docStore,
		Platform:    svc,
		Logger:      log.Component("core"),
		StartOnLoad: cfg.Topology.StartOnLoad,
	}

	// Journal (optional)
	var db *database.DB
	var journalRepo journal.Repository
	if cfg.Database.Enabled {
		db, err = database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		repo := journal.NewSQLiteRepository(db.DB)
		opts.Journal = repo
		journalRepo = repo
		log.Info("journal ready", "path", db.Path())
	} else {
		log.Info("journal disabled")
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		opts.MQTT = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		opts.Metrics = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	topology, err := core.New(opts)
	if err != nil {
		return fmt.Errorf("creating topology core: %w", err)
	}
	defer func() {
		log.Info("disposing topology")
		topology.Clear()
	}()

	report, err := topology.Load(ctx)
	switch {
	case report == nil:
		return fmt.Errorf("loading topology: %w", err)
	case err != nil:
		// The API and reload command stay available so a fixed document
		// can be loaded without a restart.
		log.Error("topology load failed", "path", svc.DocumentPath(), "error", err)
	default:
		log.Info("topology loaded",
			"path", svc.DocumentPath(),
			"version", report.Version.String(),
			"built", report.Built,
			"failed", len(report.Failed),
		)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	g, gctx := errgroup.WithContext(ctx)

	if mqttClient != nil {
		commands := make(chan string, commandQueueSize)
		if subErr := subscribeCommands(mqttClient, commands, cfg.MQTT.QoS, log); subErr != nil {
			return fmt.Errorf("subscribing to commands: %w", subErr)
		}
		g.Go(func() error {
			runCommands(gctx, topology, commands, log)
			return nil
		})
	}

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Topology: topology,
			Journal:  journalRepo,
			MQTT:     mqttClient,
			DB:       db,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(gctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		g.Go(func() error {
			<-gctx.Done()
			return server.Close()
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, cleaning up")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("Gray Logic Topology stopped")
	return nil
}

// subscribeCommands routes graylogic/topology/command/{name} messages into
// commands. The MQTT callback never blocks on a running pass.
func subscribeCommands(client *mqtt.Client, commands chan<- string, qos int, log *logging.Logger) error {
	topics := mqtt.Topics{}
	return client.Subscribe(topics.AllCommands(), byte(qos), func(topic string, _ []byte) error {
		name := topics.CommandName(topic)
		select {
		case commands <- name:
		default:
			log.Warn("command queue full, dropping command", "command", name)
		}
		return nil
	})
}

// runCommands executes queued commands one at a time until ctx is done.
func runCommands(ctx context.Context, topology *core.Core, commands <-chan string, log *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case name := <-commands:
			log.Info("topology command received", "command", name)
			if err := topology.Command(ctx, name); err != nil {
				log.Error("topology command failed", "command", name, "error", err)
			}
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the enabled infrastructure connections.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Journal database (nil if disabled)
//   - mqttClient: MQTT client (nil if disabled)
//   - influxClient: InfluxDB client (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
