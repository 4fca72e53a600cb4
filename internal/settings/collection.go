package settings

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/nerrad567/gray-logic-topology/internal/collection"
)

// Logger defines the logging interface used by the Collection.
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

// ChildrenChanged is delivered to observers once per mutating call.
type ChildrenChanged = collection.Change

// Collection is an ordered, id-keyed container of settings nodes.
//
// Insertion order is kept for serialization; lookups are by id.
// All methods are safe for concurrent use.
type Collection struct {
	nodes  *collection.Ordered[Node]
	logger Logger
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		nodes:  collection.New[Node](),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger used while parsing.
func (c *Collection) SetLogger(logger Logger) {
	c.logger = logger
}

// OnChildrenChanged registers fn for change notifications.
func (c *Collection) OnChildrenChanged(fn func(ChildrenChanged)) (unsubscribe func()) {
	return c.nodes.Subscribe(fn)
}

// Add inserts node. It returns false without overwriting when the id is
// already present, and false for ids that are not strictly positive.
func (c *Collection) Add(node Node) bool {
	if node == nil || node.Meta().ID <= 0 {
		return false
	}
	return c.nodes.Add(node.Meta().ID, node)
}

// AddChildren inserts every node whose id is free and returns how many were
// added. Observers hear about the batch once.
func (c *Collection) AddChildren(nodes ...Node) int {
	return c.nodes.AddAll(entries(nodes))
}

// SetChildren replaces the content of the collection with nodes.
func (c *Collection) SetChildren(nodes ...Node) {
	c.nodes.Set(entries(nodes))
}

// Remove deletes node. The stored instance must be node itself; a different
// node that happens to share the id is left alone.
func (c *Collection) Remove(node Node) bool {
	if node == nil {
		return false
	}
	return c.nodes.Remove(node.Meta().ID, func(stored Node) bool { return stored == node })
}

// RemoveByID deletes whatever node is stored under id.
func (c *Collection) RemoveByID(id int) bool {
	return c.nodes.Remove(id, nil)
}

// RemoveChildren deletes every listed node and returns how many were removed.
func (c *Collection) RemoveChildren(nodes ...Node) int {
	ids := make([]int, 0, len(nodes))
	want := make(map[int]Node, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		ids = append(ids, n.Meta().ID)
		want[n.Meta().ID] = n
	}
	return c.nodes.RemoveAll(ids, func(stored Node) bool {
		return want[stored.Meta().ID] == stored
	})
}

// Clear removes every node.
func (c *Collection) Clear() {
	c.nodes.Clear()
}

// GetByID returns the node stored under id, or ErrNodeNotFound.
func (c *Collection) GetByID(id int) (Node, error) {
	n, ok := c.nodes.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return n, nil
}

// TryGet returns the node stored under id.
func (c *Collection) TryGet(id int) (Node, bool) {
	return c.nodes.Get(id)
}

// Contains reports whether id is present.
func (c *Collection) Contains(id int) bool {
	return c.nodes.Contains(id)
}

// Count returns the number of nodes.
func (c *Collection) Count() int {
	return c.nodes.Len()
}

// IDs returns node ids in collection order.
func (c *Collection) IDs() []int {
	return c.nodes.IDs()
}

// Nodes returns the nodes in collection order.
func (c *Collection) Nodes() []Node {
	return c.nodes.Values()
}

// MaxID returns the largest id in the collection, or 0 when empty.
func (c *Collection) MaxID() int {
	maxID := 0
	for _, id := range c.nodes.IDs() {
		if id > maxID {
			maxID = id
		}
	}
	return maxID
}

// LoadSummary reports the outcome of FromSerialized.
type LoadSummary struct {
	Parsed  int
	Skipped []*ElementError
}

// FromSerialized parses every node element below root and adds the results.
//
// Each direct child of root (other than the version header) is treated as a
// group; each child of a group is one node handed to inst. A malformed
// element, an unknown factory name, a failed validation or a duplicate id
// skips that element only. The whole document is added as one batch.
func (c *Collection) FromSerialized(root *etree.Element, inst Instantiator) LoadSummary {
	var summary LoadSummary
	var batch []Node
	seen := make(map[int]bool)

	for _, group := range root.ChildElements() {
		if group.Tag == VersionElement {
			continue
		}
		for _, el := range group.ChildElements() {
			node, err := c.parseElement(el, inst)
			if err == nil {
				id := node.Meta().ID
				if seen[id] || c.Contains(id) {
					err = fmt.Errorf("%w: %d", ErrDuplicateID, id)
				} else {
					seen[id] = true
					batch = append(batch, node)
					continue
				}
			}

			elemErr := &ElementError{
				Element:     el.Tag,
				ID:          el.SelectAttrValue(AttrID, ""),
				FactoryName: el.SelectAttrValue(AttrType, ""),
				Err:         err,
			}
			summary.Skipped = append(summary.Skipped, elemErr)
			c.logger.Warn("skipping settings element",
				"group", group.Tag,
				"element", elemErr.Element,
				"id", elemErr.ID,
				"factory", elemErr.FactoryName,
				"error", err,
			)
		}
	}

	summary.Parsed = c.AddChildren(batch...)
	c.logger.Debug("settings parsed", "parsed", summary.Parsed, "skipped", len(summary.Skipped))
	return summary
}

// parseElement instantiates one element and runs optional validation.
// Panics from node code are turned into errors so siblings keep parsing.
func (c *Collection) parseElement(el *etree.Element, inst Instantiator) (node Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node = nil
			err = fmt.Errorf("%w: panic: %v", ErrParse, r)
		}
	}()

	node, err = inst.Instantiate(el)
	if err != nil {
		return nil, err
	}
	if v, ok := node.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating node %d: %w", node.Meta().ID, err)
		}
	}
	return node, nil
}

// ToSerialized writes every node below root, in collection order, grouped
// under its registration group. Each element carries id and type attributes.
func (c *Collection) ToSerialized(root *etree.Element, inst Instantiator) error {
	groups := make(map[string]*etree.Element)

	for _, node := range c.Nodes() {
		desc, err := inst.Describe(node)
		if err != nil {
			return fmt.Errorf("describing node %d: %w", node.Meta().ID, err)
		}

		el, err := EncodeNode(node, desc.Element)
		if err != nil {
			return err
		}
		el.CreateAttr(AttrType, desc.FactoryName)

		group, ok := groups[desc.Group]
		if !ok {
			group = root.SelectElement(desc.Group)
			if group == nil {
				group = root.CreateElement(desc.Group)
			}
			groups[desc.Group] = group
		}
		group.AddChild(el)
	}
	return nil
}

func entries(nodes []Node) []collection.Entry[Node] {
	out := make([]collection.Entry[Node], 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.Meta().ID <= 0 {
			continue
		}
		out = append(out, collection.Entry[Node]{ID: n.Meta().ID, Value: n})
	}
	return out
}
