package registry

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/beevik/etree"

	"github.com/nerrad567/gray-logic-topology/internal/originator"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registration binds a factory name to its constructors.
type Registration struct {
	// Name is the factory name written to the element's type attribute.
	Name string
	// Group is the top-level collection element, e.g. "Devices".
	Group string
	// Element is the per-node element name, e.g. "Device".
	Element string

	NewSettings   func() settings.Node
	NewOriginator func() originator.Originator
}

// Provider contributes registrations to a registry.
type Provider func(r *Registry)

type entry struct {
	Registration
	settingsType   reflect.Type
	originatorType reflect.Type
}

// Registry maps factory names to constructors.
type Registry struct {
	providers []Provider
	once      sync.Once

	mu         sync.RWMutex
	byName     map[string]*entry
	bySettings map[reflect.Type]*entry
	order      []string
	logger     Logger
}

// New creates a registry fed by providers. Providers run on the first lookup.
func New(providers ...Provider) *Registry {
	return &Registry{
		providers:  providers,
		byName:     make(map[string]*entry),
		bySettings: make(map[reflect.Type]*entry),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds reg to the registry.
//
// Returns ErrDuplicateFactory when the name is taken (the existing
// registration is kept) and ErrInvalidRegistration when reg is incomplete.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" || reg.Group == "" || reg.Element == "" {
		return fmt.Errorf("%w: name, group and element are required", ErrInvalidRegistration)
	}
	if reg.NewSettings == nil || reg.NewOriginator == nil {
		return fmt.Errorf("%w: %s: constructors are required", ErrInvalidRegistration, reg.Name)
	}

	sample := reg.NewSettings()
	inst := reg.NewOriginator()
	if sample == nil || inst == nil {
		return fmt.Errorf("%w: %s: constructor returned nil", ErrInvalidRegistration, reg.Name)
	}
	e := &entry{
		Registration:   reg,
		settingsType:   reflect.TypeOf(sample),
		originatorType: reflect.TypeOf(inst),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[reg.Name]; exists {
		r.logger.Error("duplicate factory registration ignored", "factory", reg.Name)
		return fmt.Errorf("%w: %s", ErrDuplicateFactory, reg.Name)
	}
	if other, exists := r.bySettings[e.settingsType]; exists {
		r.logger.Error("settings type already registered",
			"factory", reg.Name,
			"existing", other.Name,
			"type", e.settingsType.String(),
		)
		return fmt.Errorf("%w: %s used by %s", ErrDuplicateSettingsType, e.settingsType, other.Name)
	}

	r.byName[reg.Name] = e
	r.bySettings[e.settingsType] = e
	r.order = append(r.order, reg.Name)
	r.logger.Debug("factory registered", "factory", reg.Name, "group", reg.Group)
	return nil
}

// MustRegister is Register for provider tables, where a failure is a
// programming error already logged by Register.
func (r *Registry) MustRegister(reg Registration) {
	_ = r.Register(reg)
}

// Resolve returns the registration for name.
func (r *Registry) Resolve(name string) (Registration, error) {
	e, err := r.lookupName(name)
	if err != nil {
		return Registration{}, err
	}
	return e.Registration, nil
}

// Instantiate builds and populates the settings node described by el.
//
// The element's type attribute selects the registration; its id attribute
// must be a positive integer. Panics from node code are returned as errors.
func (r *Registry) Instantiate(el *etree.Element) (node settings.Node, err error) {
	name, err := settings.ElementFactoryName(el)
	if err != nil {
		return nil, err
	}
	id, err := settings.ElementID(el)
	if err != nil {
		return nil, err
	}
	e, err := r.lookupName(name)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			node = nil
			err = fmt.Errorf("%w: %s %d: panic: %v", settings.ErrParse, name, id, p)
		}
	}()

	node = e.NewSettings()
	if err := settings.DecodeNode(el, node); err != nil {
		return nil, fmt.Errorf("decoding %s %d: %w", name, id, err)
	}
	node.Meta().ID = id
	return node, nil
}

// Describe returns the descriptor registered for node's concrete type.
func (r *Registry) Describe(node settings.Node) (settings.Descriptor, error) {
	e, err := r.lookupSettings(node)
	if err != nil {
		return settings.Descriptor{}, err
	}
	return settings.Descriptor{
		FactoryName: e.Name,
		Group:       e.Group,
		Element:     e.Element,
	}, nil
}

// NewOriginator constructs the originator registered for node's type.
// The returned originator has not had ApplySettings called.
func (r *Registry) NewOriginator(node settings.Node) (originator.Originator, error) {
	e, err := r.lookupSettings(node)
	if err != nil {
		return nil, err
	}
	o := e.NewOriginator()
	if o == nil {
		return nil, fmt.Errorf("%w: %s: constructor returned nil", ErrInvalidRegistration, e.Name)
	}
	return o, nil
}

// OriginatorType returns the concrete originator type registered for node,
// without constructing one.
func (r *Registry) OriginatorType(node settings.Node) (reflect.Type, error) {
	e, err := r.lookupSettings(node)
	if err != nil {
		return nil, err
	}
	return e.originatorType, nil
}

// FactoryOriginatorType returns the originator type built by the named factory.
func (r *Registry) FactoryOriginatorType(name string) (reflect.Type, error) {
	e, err := r.lookupName(name)
	if err != nil {
		return nil, err
	}
	return e.originatorType, nil
}

// Names returns every registered factory name, sorted.
func (r *Registry) Names() []string {
	r.ensureProviders()
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}

// Groups returns the distinct group element names in registration order.
func (r *Registry) Groups() []string {
	r.ensureProviders()
	r.mu.RLock()
	defer r.mu.RUnlock()
	var groups []string
	for _, name := range r.order {
		g := r.byName[name].Group
		if !slices.Contains(groups, g) {
			groups = append(groups, g)
		}
	}
	return groups
}

func (r *Registry) ensureProviders() {
	r.once.Do(func() {
		for _, p := range r.providers {
			p(r)
		}
		r.mu.RLock()
		count := len(r.byName)
		r.mu.RUnlock()
		r.logger.Info("type registry built", "factories", count)
	})
}

func (r *Registry) lookupName(name string) (*entry, error) {
	r.ensureProviders()
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFactory, name)
	}
	return e, nil
}

func (r *Registry) lookupSettings(node settings.Node) (*entry, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrUnknownFactory)
	}
	r.ensureProviders()
	t := reflect.TypeOf(node)
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.bySettings[t]
	if !ok {
		return nil, fmt.Errorf("%w: settings type %s", ErrUnknownFactory, t)
	}
	return e, nil
}
