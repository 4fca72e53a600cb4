// Package migration rewrites stored topology documents from older schema
// versions to the current one before they are parsed.
//
// Each Migrator is a text-to-text step from one version to the next. The
// Chain looks up the step registered for the document's version, runs it,
// stamps the new version into the ConfigVersion header and repeats until no
// step applies. Steps operate on the raw element tree, never on the current
// settings types, so old layouts can be restructured freely.
package migration

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// CurrentVersion is the schema version written by this build.
var CurrentVersion = V(3, 1)

// DefaultVersion is assumed for documents without a ConfigVersion header.
var DefaultVersion = V(1, 0)

// Logger defines the logging interface used by the Chain.
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

// Migrator rewrites a document from From() to To().
type Migrator interface {
	From() Version
	To() Version
	Migrate(text string) (string, error)
}

// Step adapts a function over the element tree to a Migrator.
type Step struct {
	from, to Version
	rewrite  func(root *etree.Element) error
}

// NewStep creates a migrator that parses the document, calls rewrite on its
// root element and renders the result.
func NewStep(from, to Version, rewrite func(root *etree.Element) error) *Step {
	return &Step{from: from, to: to, rewrite: rewrite}
}

// From returns the source version.
func (s *Step) From() Version { return s.from }

// To returns the target version.
func (s *Step) To() Version { return s.to }

// Migrate runs the rewrite over text.
func (s *Step) Migrate(text string) (string, error) {
	doc, err := parse(text)
	if err != nil {
		return "", err
	}
	if err := s.rewrite(doc.Root()); err != nil {
		return "", err
	}
	return render(doc)
}

// Chain holds migrators keyed by source version.
type Chain struct {
	mu     sync.RWMutex
	steps  map[Version]Migrator
	logger Logger
}

// NewChain creates a chain holding migrators.
func NewChain(migrators ...Migrator) (*Chain, error) {
	c := &Chain{
		steps:  make(map[Version]Migrator),
		logger: noopLogger{},
	}
	for _, m := range migrators {
		if err := c.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetLogger sets the logger for the chain.
func (c *Chain) SetLogger(logger Logger) {
	c.logger = logger
}

// Register adds m. Only one migrator may start from a given version, and it
// must move to a strictly newer one.
func (c *Chain) Register(m Migrator) error {
	if !m.From().Less(m.To()) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidMigrator, m.From(), m.To())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.steps[m.From()]; ok {
		return fmt.Errorf("%w: %s (already -> %s)", ErrDuplicateMigrator, m.From(), existing.To())
	}
	c.steps[m.From()] = m
	return nil
}

// Steps returns the migrators Migrate would run for a document at from.
func (c *Chain) Steps(from Version) []Migrator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var path []Migrator
	for {
		m, ok := c.steps[from]
		if !ok {
			return path
		}
		path = append(path, m)
		from = m.To()
	}
}

// Sources returns every registered source version, oldest first.
func (c *Chain) Sources() []Version {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Version, 0, len(c.steps))
	for v := range c.steps {
		out = append(out, v)
	}
	slices.SortFunc(out, Version.Compare)
	return out
}

// Migrate runs every applicable step starting at from and returns the
// rewritten text and its final version. A version with no registered step is
// returned unchanged; that is not an error.
func (c *Chain) Migrate(text string, from Version) (string, Version, error) {
	current := from
	for _, m := range c.Steps(from) {
		out, err := m.Migrate(text)
		if err != nil {
			return "", current, &StepError{From: m.From(), To: m.To(), Err: err}
		}
		out, err = SetVersion(out, m.To())
		if err != nil {
			return "", current, &StepError{From: m.From(), To: m.To(), Err: err}
		}
		c.logger.Info("configuration migrated", "from", m.From().String(), "to", m.To().String())
		text, current = out, m.To()
	}
	return text, current, nil
}

// ReadVersion returns the ConfigVersion header of text without building the
// element tree. Only direct children of the root are inspected. A document
// without the header is DefaultVersion.
func ReadVersion(text string) (Version, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if depth == 0 {
				return Version{}, ErrNoRoot
			}
			return Version{}, fmt.Errorf("%w: unexpected end of document", ErrMalformed)
		}
		if err != nil {
			return Version{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				continue
			}
			if t.Name.Local == settings.VersionElement {
				var raw string
				if err := dec.DecodeElement(&raw, &t); err != nil {
					return Version{}, fmt.Errorf("%w: %w", ErrMalformed, err)
				}
				return ParseVersion(raw)
			}
			if err := dec.Skip(); err != nil {
				return Version{}, fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			depth--
		case xml.EndElement:
			depth--
			if depth == 0 {
				return DefaultVersion, nil
			}
		}
	}
}

// SetVersion writes v into the ConfigVersion header of text, creating the
// header as the first child of the root when missing.
func SetVersion(text string, v Version) (string, error) {
	doc, err := parse(text)
	if err != nil {
		return "", err
	}
	root := doc.Root()
	el := root.SelectElement(settings.VersionElement)
	if el == nil {
		el = etree.NewElement(settings.VersionElement)
		root.InsertChildAt(0, el)
	}
	el.SetText(v.String())
	return render(doc)
}

func parse(text string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc.Root() == nil {
		return nil, ErrNoRoot
	}
	return doc, nil
}

func render(doc *etree.Document) (string, error) {
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}
	return out, nil
}
