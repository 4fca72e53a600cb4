package registry

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/beevik/etree"

	"github.com/nerrad567/gray-logic-topology/internal/originator"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

type sensorSettings struct {
	settings.Base
	Channel int `xml:"Channel"`
}

type sensor struct{ originator.Base }

func (s *sensor) ApplySettings(node settings.Node, _ originator.Resolver) error {
	return s.Apply(node, nil, nil)
}
func (s *sensor) CopySettings() settings.Node {
	out := &sensorSettings{}
	s.CopyBase(&out.Base)
	return out
}
func (s *sensor) ClearSettings()       { s.Clear(nil) }
func (s *sensor) StartSettings() error { return s.Start(nil) }
func (s *sensor) Dispose()             { s.DisposeWith(nil) }

type unregisteredSettings struct{ settings.Base }

func sensorRegistration(name string) Registration {
	return Registration{
		Name:          name,
		Group:         "Sensors",
		Element:       "Sensor",
		NewSettings:   func() settings.Node { return &sensorSettings{Base: settings.NewBase()} },
		NewOriginator: func() originator.Originator { return &sensor{} },
	}
}

type capturingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Info(string, ...any)  {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func element(t *testing.T, xml string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		t.Fatalf("ReadFromString() error = %v", err)
	}
	return doc.Root()
}

func TestRegisterDuplicateFirstWins(t *testing.T) {
	r := New()
	log := &capturingLogger{}
	r.SetLogger(log)

	if err := r.Register(sensorRegistration("Sensor")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	dup := sensorRegistration("Sensor")
	dup.Group = "Other"
	if err := r.Register(dup); !errors.Is(err, ErrDuplicateFactory) {
		t.Fatalf("Register() duplicate error = %v, want ErrDuplicateFactory", err)
	}
	if len(log.errors) != 1 {
		t.Errorf("logged errors = %d, want 1", len(log.errors))
	}

	reg, err := r.Resolve("Sensor")
	if err != nil {
		t.Fatal(err)
	}
	if reg.Group != "Sensors" {
		t.Errorf("Group = %q, want first registration", reg.Group)
	}
}

func TestRegisterRejectsSharedSettingsType(t *testing.T) {
	r := New()
	if err := r.Register(sensorRegistration("A")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(sensorRegistration("B")); !errors.Is(err, ErrDuplicateSettingsType) {
		t.Errorf("Register() error = %v, want ErrDuplicateSettingsType", err)
	}
}

func TestRegisterInvalid(t *testing.T) {
	tests := []struct {
		name string
		reg  Registration
	}{
		{"empty name", Registration{Group: "g", Element: "e"}},
		{"no constructors", Registration{Name: "n", Group: "g", Element: "e"}},
		{"nil settings", Registration{
			Name: "n", Group: "g", Element: "e",
			NewSettings:   func() settings.Node { return nil },
			NewOriginator: func() originator.Originator { return &sensor{} },
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := New().Register(tt.reg); !errors.Is(err, ErrInvalidRegistration) {
				t.Errorf("Register() error = %v, want ErrInvalidRegistration", err)
			}
		})
	}
}

func TestProvidersRunOnce(t *testing.T) {
	calls := 0
	r := New(func(r *Registry) {
		calls++
		r.MustRegister(sensorRegistration("Sensor"))
	})

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve("Sensor"); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}
	if names := r.Names(); len(names) != 1 || names[0] != "Sensor" {
		t.Errorf("Names() = %v", names)
	}
	if calls != 1 {
		t.Errorf("provider calls = %d, want 1", calls)
	}
}

func TestInstantiate(t *testing.T) {
	r := New(func(r *Registry) { r.MustRegister(sensorRegistration("Sensor")) })

	tests := []struct {
		name    string
		xml     string
		wantErr error
	}{
		{"valid", `<Sensor id="7" type="Sensor"><Name>Hall</Name><Channel>3</Channel></Sensor>`, nil},
		{"missing type", `<Sensor id="7"><Name>Hall</Name></Sensor>`, settings.ErrParse},
		{"missing id", `<Sensor type="Sensor"/>`, settings.ErrParse},
		{"negative id", `<Sensor id="-2" type="Sensor"/>`, settings.ErrInvalidID},
		{"unknown type", `<Sensor id="7" type="Thermostat"/>`, ErrUnknownFactory},
		{"bad field", `<Sensor id="7" type="Sensor"><Channel>abc</Channel></Sensor>`, settings.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := r.Instantiate(element(t, tt.xml))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Instantiate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Instantiate() error = %v", err)
			}
			s, ok := node.(*sensorSettings)
			if !ok {
				t.Fatalf("Instantiate() type = %T", node)
			}
			if s.ID != 7 || s.Name != "Hall" || s.Channel != 3 {
				t.Errorf("Instantiate() = %+v", s)
			}
			if s.Order != settings.OrderUnspecified {
				t.Errorf("Order = %d, want unspecified default", s.Order)
			}
		})
	}
}

func TestDescribeAndNewOriginator(t *testing.T) {
	r := New(func(r *Registry) { r.MustRegister(sensorRegistration("Sensor")) })

	desc, err := r.Describe(&sensorSettings{})
	if err != nil {
		t.Fatal(err)
	}
	want := settings.Descriptor{FactoryName: "Sensor", Group: "Sensors", Element: "Sensor"}
	if desc != want {
		t.Errorf("Describe() = %+v, want %+v", desc, want)
	}

	o, err := r.NewOriginator(&sensorSettings{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := o.(*sensor); !ok {
		t.Errorf("NewOriginator() type = %T", o)
	}

	if _, err := r.Describe(&unregisteredSettings{}); !errors.Is(err, ErrUnknownFactory) {
		t.Errorf("Describe() unregistered error = %v", err)
	}
	if got := r.Groups(); len(got) != 1 || got[0] != "Sensors" {
		t.Errorf("Groups() = %v", got)
	}

	typ, err := r.FactoryOriginatorType("Sensor")
	if err != nil || typ != reflect.TypeOf(o) {
		t.Errorf("FactoryOriginatorType() = %v, %v", typ, err)
	}
	if _, err := r.FactoryOriginatorType("Missing"); !errors.Is(err, ErrUnknownFactory) {
		t.Errorf("FactoryOriginatorType() unknown error = %v", err)
	}
}
