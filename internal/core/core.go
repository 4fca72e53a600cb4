package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"sync"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/multierr"

	"github.com/nerrad567/gray-logic-topology/internal/factory"
	"github.com/nerrad567/gray-logic-topology/internal/journal"
	"github.com/nerrad567/gray-logic-topology/internal/migration"
	"github.com/nerrad567/gray-logic-topology/internal/originator"
	"github.com/nerrad567/gray-logic-topology/internal/platform"
	"github.com/nerrad567/gray-logic-topology/internal/registry"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// Core owns the materialized topology graph.
//
// Passes (load, reload, save, start, clear) are serialised; queries may run
// concurrently with a pass and observe the previous graph until the new one
// is installed.
type Core struct {
	registry    *registry.Registry
	chain       *migration.Chain
	store       Store
	platform    platform.Services
	logger      Logger
	mqtt        MQTTClient
	metrics     Metrics
	journal     Journal
	startOnLoad bool

	pass sync.Mutex

	mu          sync.RWMutex
	settings    *settings.Collection
	originators *originator.Collection
	version     migration.Version
	last        *LoadReport
	// loaded is set once a parsed document is installed and reset by Clear.
	loaded bool
}

// New creates an empty Core.
func New(opts Options) (*Core, error) {
	if opts.Registry == nil {
		return nil, ErrNoRegistry
	}
	c := &Core{
		registry:    opts.Registry,
		chain:       opts.Chain,
		store:       opts.Store,
		platform:    opts.Platform,
		logger:      opts.Logger,
		mqtt:        opts.MQTT,
		metrics:     opts.Metrics,
		journal:     opts.Journal,
		startOnLoad: opts.StartOnLoad,
		settings:    settings.NewCollection(),
		originators: originator.NewCollection(),
		version:     migration.CurrentVersion,
	}
	if c.chain == nil {
		c.chain = migration.Default()
	}
	if c.platform == nil {
		c.platform = platform.Local()
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	return c, nil
}

// Load reads the document from the store and loads it. When the store has
// no document a stub is generated and saved first.
func (c *Core) Load(ctx context.Context) (*LoadReport, error) {
	return c.load(ctx, journal.ActionLoad)
}

// Reload disposes the current graph and loads the stored document again.
func (c *Core) Reload(ctx context.Context) (*LoadReport, error) {
	return c.load(ctx, journal.ActionReload)
}

// LoadText loads a document given as text.
func (c *Core) LoadText(ctx context.Context, text string) (*LoadReport, error) {
	c.pass.Lock()
	defer c.pass.Unlock()
	return c.loadText(ctx, journal.ActionLoad, text)
}

func (c *Core) load(ctx context.Context, action string) (*LoadReport, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	c.pass.Lock()
	defer c.pass.Unlock()

	text, err := c.store.Read(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		text, err = c.writeStub(ctx)
	}
	if err != nil {
		return nil, err
	}
	return c.loadText(ctx, action, text)
}

func (c *Core) writeStub(ctx context.Context) (string, error) {
	text, err := StubDocument(c.registry.Groups())
	if err != nil {
		return "", err
	}
	if _, err := c.store.Write(ctx, text); err != nil {
		return "", fmt.Errorf("saving stub document: %w", err)
	}
	c.logger.Info("topology document missing, stub saved", "version", migration.CurrentVersion.String())
	c.record(ctx, &journal.Entry{
		Action:   journal.ActionStub,
		Version:  migration.CurrentVersion.String(),
		Checksum: checksum(text),
	})
	return text, nil
}

func (c *Core) loadText(ctx context.Context, action, text string) (*LoadReport, error) {
	began := time.Now()
	report := &LoadReport{Action: action}

	col, err := c.parse(ctx, text, report)
	if err != nil {
		return c.finish(ctx, report, began, err)
	}

	c.clearGraph()

	f := factory.New(col, c.registry)
	f.SetLogger(c.logger)
	for _, id := range col.IDs() {
		if err := ctx.Err(); err != nil {
			c.abort(col, f, report.Version)
			return c.finish(ctx, report, began, err)
		}
		if _, err := f.Resolve(id); err != nil {
			if errors.Is(err, factory.ErrCyclicDependency) {
				c.logger.Error("cyclic dependency, load aborted", "id", id, "error", err)
				c.abort(col, f, report.Version)
				return c.finish(ctx, report, began, err)
			}
			failure := NodeFailure{ID: id, FactoryName: c.factoryName(col, id), Err: err}
			report.Failed = append(report.Failed, failure)
			c.logger.Error("originator construction failed",
				"id", id, "factory", failure.FactoryName, "error", err)
		}
	}

	built := f.Built()
	c.install(col, built, report.Version)
	report.Built = len(built)

	if c.startOnLoad {
		report.Started, report.StartErr = c.startAll(ctx)
	}
	return c.finish(ctx, report, began, nil)
}

// parse migrates text and parses it into a new settings collection.
// The current graph is untouched when parse fails.
func (c *Core) parse(ctx context.Context, text string, report *LoadReport) (*settings.Collection, error) {
	src, err := migration.ReadVersion(text)
	if err != nil {
		return nil, err
	}
	report.SourceVersion = src

	migrated, version, err := c.chain.Migrate(text, src)
	if err != nil {
		return nil, err
	}
	report.Version = version
	report.Migrated = version != src
	if version != migration.CurrentVersion {
		c.logger.Warn("unknown configuration version, loading as-is",
			"version", version.String(), "current", migration.CurrentVersion.String())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(migrated); err != nil {
		return nil, fmt.Errorf("%w: %w", migration.ErrMalformed, err)
	}
	if doc.Root() == nil {
		return nil, migration.ErrNoRoot
	}

	col := settings.NewCollection()
	col.SetLogger(c.logger)
	summary := col.FromSerialized(doc.Root(), c.registry)
	report.Parsed = summary.Parsed
	report.Skipped = summary.Skipped
	return col, nil
}

// abort disposes what f built, newest first, and installs col with an empty
// graph so the document can still be saved unchanged.
func (c *Core) abort(col *settings.Collection, f *factory.Factory, version migration.Version) {
	disposeReverse(c.logger, f.Built())
	c.install(col, nil, version)
}

func (c *Core) install(col *settings.Collection, built []originator.Originator, version migration.Version) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = col
	c.originators.SetChildren(built...)
	c.version = version
	c.loaded = true
}

func (c *Core) finish(ctx context.Context, report *LoadReport, began time.Time, err error) (*LoadReport, error) {
	report.Err = err
	report.Duration = time.Since(began)
	report.CompletedAt = c.platform.Now()

	c.mu.Lock()
	c.last = report
	c.mu.Unlock()

	c.logger.Info("topology pass finished",
		"action", report.Action,
		"version", report.Version.String(),
		"parsed", report.Parsed,
		"skipped", len(report.Skipped),
		"built", report.Built,
		"failed", len(report.Failed),
		"duration", report.Duration,
	)

	event := EventLoaded
	if err != nil {
		event = EventLoadFailed
	}
	c.publish(event, report.Summary())
	c.writePass(report)

	entry := &journal.Entry{
		Action:       report.Action,
		Version:      report.SourceVersion.String(),
		NodeCount:    report.Parsed,
		BuiltCount:   report.Built,
		FailedCount:  len(report.Failed),
		SkippedCount: len(report.Skipped),
		Duration:     report.Duration.Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	c.record(ctx, entry)

	return report, err
}

// Start runs StartSettings on every originator in construction order.
// Failures are collected; originators that fail stay Loaded.
func (c *Core) Start(ctx context.Context) error {
	c.pass.Lock()
	defer c.pass.Unlock()
	started, err := c.startAll(ctx)
	c.publish(EventStarted, map[string]any{"started": started, "error": errorText(err)})
	return err
}

func (c *Core) startAll(ctx context.Context) (int, error) {
	began := time.Now()
	var errs error
	started := 0
	for _, o := range c.Originators().All() {
		if err := ctx.Err(); err != nil {
			return started, multierr.Append(errs, err)
		}
		if err := o.StartSettings(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("starting %d (%s): %w", o.ID(), o.Name(), err))
			c.logger.Warn("originator start failed", "id", o.ID(), "name", o.Name(), "error", err)
			continue
		}
		started++
	}
	if c.metrics != nil {
		total := c.originators.Count()
		m := passMetric(actionStart, c.Version(), total, started, time.Since(began))
		m.Failed = total - started
		c.metrics.WritePass(m)
	}
	return started, errs
}

// Clear disposes every originator in reverse construction order and drops
// the settings.
func (c *Core) Clear() {
	c.pass.Lock()
	defer c.pass.Unlock()
	c.clearGraph()
	c.mu.Lock()
	c.settings = settings.NewCollection()
	c.loaded = false
	c.mu.Unlock()
	c.publish(EventCleared, map[string]any{})
}

func (c *Core) clearGraph() {
	c.mu.Lock()
	items := c.originators.All()
	c.originators.Clear()
	c.mu.Unlock()
	disposeReverse(c.logger, items)
}

func disposeReverse(logger Logger, items []originator.Originator) {
	for i := len(items) - 1; i >= 0; i-- {
		dispose(logger, items[i])
	}
}

func dispose(logger Logger, o originator.Originator) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("originator dispose panicked", "id", o.ID(), "panic", r)
		}
	}()
	o.Dispose()
}

// Save serializes the graph and writes it through the store. It fails with
// ErrNotLoaded until a load pass has installed a document.
func (c *Core) Save(ctx context.Context) (*SaveResult, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	c.pass.Lock()
	defer c.pass.Unlock()

	if !c.isLoaded() {
		return nil, ErrNotLoaded
	}

	began := time.Now()
	text, nodes, err := c.serialize()
	if err != nil {
		return nil, err
	}
	backup, err := c.store.Write(ctx, text)
	if err != nil {
		c.record(ctx, &journal.Entry{
			Action: journal.ActionSave, Version: migration.CurrentVersion.String(), Error: err.Error(),
		})
		return nil, fmt.Errorf("saving topology document: %w", err)
	}

	result := &SaveResult{
		Backup:   backup,
		Checksum: checksum(text),
		Bytes:    len(text),
		Nodes:    nodes,
		Duration: time.Since(began),
	}
	c.logger.Info("topology document saved", "nodes", nodes, "bytes", result.Bytes, "backup", backup)

	c.mu.Lock()
	c.version = migration.CurrentVersion
	c.mu.Unlock()

	c.publish(EventSaved, result)
	if c.metrics != nil {
		c.metrics.WriteSave(result.Bytes, nodes, result.Duration)
	}
	c.record(ctx, &journal.Entry{
		Action:    journal.ActionSave,
		Version:   migration.CurrentVersion.String(),
		Checksum:  result.Checksum,
		NodeCount: nodes,
		Duration:  result.Duration.Milliseconds(),
	})
	return result, nil
}

func (c *Core) isLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Serialize renders the current graph as a document at CurrentVersion.
func (c *Core) Serialize() (string, error) {
	text, _, err := c.serialize()
	return text, err
}

// serialize writes, in settings order, CopySettings of each serializable
// originator or the parsed settings of ids that never materialized,
// followed by serializable originators that have no settings entry.
func (c *Core) serialize() (string, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := settings.NewCollection()
	for _, node := range c.settings.Nodes() {
		id := node.Meta().ID
		o, ok := c.originators.Get(id)
		switch {
		case !ok:
			out.Add(node)
		case o.Serialize():
			out.Add(o.CopySettings())
		}
	}
	for _, o := range c.originators.All() {
		if o.Serialize() && !c.settings.Contains(o.ID()) {
			out.Add(o.CopySettings())
		}
	}

	doc := newDocument(migration.CurrentVersion)
	if err := out.ToSerialized(doc.Root(), c.registry); err != nil {
		return "", 0, fmt.Errorf("serializing topology: %w", err)
	}
	text, err := renderDocument(doc)
	return text, out.Count(), err
}

// Command runs a named remote command: reload, save or start.
func (c *Core) Command(ctx context.Context, name string) error {
	var err error
	switch name {
	case CommandReload:
		_, err = c.Reload(ctx)
	case CommandSave:
		_, err = c.Save(ctx)
	case CommandStart:
		err = c.Start(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return err
}

// Originators returns the live originator collection, in construction order.
func (c *Core) Originators() *originator.Collection {
	return c.originators
}

// Get returns the originator with id.
func (c *Core) Get(id int) (originator.Originator, bool) {
	return c.originators.Get(id)
}

// Settings returns the settings collection of the last load.
func (c *Core) Settings() *settings.Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Version returns the schema version of the loaded graph.
func (c *Core) Version() migration.Version {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// LastReport returns the report of the most recent load pass, or nil.
func (c *Core) LastReport() *LoadReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// OriginatorInfo is a read-only view of one originator.
type OriginatorInfo struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Factory   string `json:"factory"`
	State     string `json:"state"`
	Serialize bool   `json:"serialize"`
}

// Inventory lists every originator in construction order.
func (c *Core) Inventory() []OriginatorInfo {
	col := c.Settings()
	items := c.originators.All()
	out := make([]OriginatorInfo, 0, len(items))
	for _, o := range items {
		out = append(out, c.info(col, o))
	}
	return out
}

// InventoryOf returns the originators built by the named factory, in
// construction order. An unknown factory yields none.
func (c *Core) InventoryOf(factoryName string) []OriginatorInfo {
	t, err := c.registry.FactoryOriginatorType(factoryName)
	if err != nil {
		return nil
	}
	col := c.Settings()
	out := []OriginatorInfo{}
	for _, o := range c.originators.ByType(t) {
		out = append(out, c.info(col, o))
	}
	return out
}

// Info returns the view of the originator with id.
func (c *Core) Info(id int) (OriginatorInfo, bool) {
	o, ok := c.originators.Get(id)
	if !ok {
		return OriginatorInfo{}, false
	}
	return c.info(c.Settings(), o), true
}

func (c *Core) info(col *settings.Collection, o originator.Originator) OriginatorInfo {
	name := c.factoryName(col, o.ID())
	if name == "" {
		t := reflect.TypeOf(o)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		name = t.Name()
	}
	return OriginatorInfo{
		ID:        o.ID(),
		Name:      o.Name(),
		Factory:   name,
		State:     o.Lifecycle().State().String(),
		Serialize: o.Serialize(),
	}
}

func (c *Core) factoryName(col *settings.Collection, id int) string {
	node, ok := col.TryGet(id)
	if !ok {
		return ""
	}
	desc, err := c.registry.Describe(node)
	if err != nil {
		return ""
	}
	return desc.FactoryName
}

func (c *Core) record(ctx context.Context, e *journal.Entry) {
	if c.journal == nil {
		return
	}
	if e.Host == "" {
		e.Host = c.platform.Hostname()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = c.platform.Now()
	}
	if err := c.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		c.logger.Warn("journal write failed", "action", e.Action, "error", err)
	}
}

func (c *Core) writePass(r *LoadReport) {
	if c.metrics == nil {
		return
	}
	m := passMetric(r.Action, r.SourceVersion, r.Parsed, r.Built, r.Duration)
	m.Failed = len(r.Failed)
	m.Skipped = len(r.Skipped)
	m.Migrated = r.Migrated
	c.metrics.WritePass(m)
}

func checksum(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
