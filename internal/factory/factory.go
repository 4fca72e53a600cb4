// Package factory builds originators from a settings collection on demand.
//
// Resolution is lazy and memoized: asking for an id constructs that
// originator exactly once per Factory, after every id its settings declare
// as dependencies and whatever ApplySettings requests. Requesting an id that is already under construction on
// the current chain yields a *CyclicDependencyError naming the whole chain.
//
// A Factory serves one load pass and is not safe for concurrent use.
package factory

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/nerrad567/gray-logic-topology/internal/originator"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// Logger defines the logging interface used by the Factory.
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

// Constructor is the part of the type registry the factory needs.
type Constructor interface {
	Describe(node settings.Node) (settings.Descriptor, error)
	NewOriginator(node settings.Node) (originator.Originator, error)
	OriginatorType(node settings.Node) (reflect.Type, error)
}

// Factory resolves originators by settings id.
type Factory struct {
	settings *settings.Collection
	types    Constructor
	logger   Logger

	built     map[int]originator.Originator
	failed    map[int]error
	order     []int
	observers map[int]func(originator.Originator)
	nextObs   int
}

// New creates a factory over col using types to construct originators.
func New(col *settings.Collection, types Constructor) *Factory {
	return &Factory{
		settings:  col,
		types:     types,
		logger:    noopLogger{},
		built:     make(map[int]originator.Originator),
		failed:    make(map[int]error),
		observers: make(map[int]func(originator.Originator)),
	}
}

// SetLogger sets the logger for the factory.
func (f *Factory) SetLogger(logger Logger) {
	f.logger = logger
}

// OnLoaded registers fn to be called each time an originator finishes
// ApplySettings successfully, in construction order.
func (f *Factory) OnLoaded(fn func(originator.Originator)) (unsubscribe func()) {
	id := f.nextObs
	f.nextObs++
	f.observers[id] = fn
	return func() { delete(f.observers, id) }
}

// Resolve returns the originator for id, constructing it when needed.
// The Factory itself is the outermost Resolver with an empty chain.
func (f *Factory) Resolve(id int) (originator.Originator, error) {
	return f.resolve(id, nil)
}

// Chain returns nil: nothing is under construction at the top level.
func (f *Factory) Chain() []int {
	return nil
}

// GetIDs returns every settings id known to the factory, in collection order.
func (f *Factory) GetIDs() []int {
	return f.settings.IDs()
}

// Built returns the successfully constructed originators in construction order.
func (f *Factory) Built() []originator.Originator {
	out := make([]originator.Originator, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.built[id])
	}
	return out
}

// Failure returns the remembered construction error for id, if any.
func (f *Factory) Failure(id int) error {
	return f.failed[id]
}

// GetByID resolves id through r and asserts the result is a T.
func GetByID[T any](r originator.Resolver, id int) (T, error) {
	var zero T
	o, err := r.Resolve(id)
	if err != nil {
		return zero, err
	}
	v, ok := o.(T)
	if !ok {
		return zero, &TypeMismatchError{
			ID:   id,
			Want: reflect.TypeOf((*T)(nil)).Elem(),
			Got:  reflect.TypeOf(o),
		}
	}
	return v, nil
}

// HasAny reports whether any settings node would produce an originator
// assignable to T. Nothing is constructed.
func HasAny[T any](f *Factory) bool {
	want := reflect.TypeOf((*T)(nil)).Elem()
	for _, node := range f.settings.Nodes() {
		t, err := f.types.OriginatorType(node)
		if err != nil {
			continue
		}
		if t.AssignableTo(want) {
			return true
		}
	}
	return false
}

// scope is the Resolver handed to ApplySettings. It carries the chain of
// ids under construction so nested requests can detect cycles.
type scope struct {
	f     *Factory
	chain []int
}

func (s *scope) Resolve(id int) (originator.Originator, error) {
	return s.f.resolve(id, s.chain)
}

func (s *scope) Chain() []int {
	return slices.Clone(s.chain)
}

func (f *Factory) resolve(id int, chain []int) (originator.Originator, error) {
	if o, ok := f.built[id]; ok {
		return o, nil
	}
	if err, ok := f.failed[id]; ok {
		return nil, err
	}
	if slices.Contains(chain, id) {
		cycle := append(slices.Clone(chain), id)
		return nil, &CyclicDependencyError{Chain: cycle}
	}

	node, err := f.settings.GetByID(id)
	if err != nil {
		return nil, err
	}

	factoryName := ""
	if desc, err := f.types.Describe(node); err == nil {
		factoryName = desc.FactoryName
	}

	// Declared dependencies are built first, whether or not ApplySettings
	// asks for them.
	next := &scope{f: f, chain: append(slices.Clone(chain), id)}
	for _, dep := range settings.DependenciesOf(node) {
		if _, err := next.Resolve(dep); err != nil {
			var cyclic *CyclicDependencyError
			if errors.As(err, &cyclic) {
				return nil, cyclic
			}
			return nil, f.fail(&ConstructionError{
				ID:          id,
				FactoryName: factoryName,
				Err:         fmt.Errorf("dependency %d: %w", dep, err),
			})
		}
	}

	inst, err := f.types.NewOriginator(node)
	if err != nil {
		return nil, f.fail(&ConstructionError{ID: id, FactoryName: factoryName, Err: err})
	}
	inst.SetSerialize(true)

	if err := f.apply(inst, node, next); err != nil {
		inst.Dispose()

		var cyclic *CyclicDependencyError
		if errors.As(err, &cyclic) {
			return nil, cyclic
		}
		return nil, f.fail(&ConstructionError{
			ID:          id,
			FactoryName: factoryName,
			Type:        reflect.TypeOf(inst),
			Err:         err,
		})
	}

	f.built[id] = inst
	f.order = append(f.order, id)
	f.logger.Debug("originator constructed", "id", id, "name", inst.Name(), "factory", factoryName)

	for _, k := range f.observerKeys() {
		f.observers[k](inst)
	}
	return inst, nil
}

// apply runs ApplySettings, turning a panic into an error.
func (f *Factory) apply(inst originator.Originator, node settings.Node, r originator.Resolver) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in ApplySettings: %v", p)
		}
	}()
	return inst.ApplySettings(node, r)
}

func (f *Factory) fail(err *ConstructionError) error {
	f.failed[err.ID] = err
	f.logger.Debug("originator construction failed", "id", err.ID, "factory", err.FactoryName, "error", err.Err)
	return err
}

func (f *Factory) observerKeys() []int {
	keys := make([]int, 0, len(f.observers))
	for k := range f.observers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
