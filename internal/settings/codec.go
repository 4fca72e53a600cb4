package settings

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Document element and attribute names.
const (
	RootElement    = "Config"
	VersionElement = "ConfigVersion"
	AttrID         = "id"
	AttrType       = "type"
)

// Descriptor is what the registry knows about a node's concrete type.
type Descriptor struct {
	// FactoryName is written to the element's type attribute.
	FactoryName string
	// Group is the top-level collection element, e.g. "Devices".
	Group string
	// Element is the per-node element name, e.g. "Device".
	Element string
}

// Instantiator turns elements into nodes and nodes back into descriptors.
// The type registry implements it.
type Instantiator interface {
	Instantiate(el *etree.Element) (Node, error)
	Describe(n Node) (Descriptor, error)
}

// DecodeNode populates n from el using the xml tags of n's struct.
// Child elements n does not declare are ignored. An empty Order element
// leaves the order unspecified.
func DecodeNode(el *etree.Element, n Node) error {
	cp := el.Copy()
	if order := cp.SelectElement("Order"); order != nil && strings.TrimSpace(order.Text()) == "" {
		cp.RemoveChild(order)
	}
	doc := etree.NewDocument()
	doc.SetRoot(cp)
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("writing element: %w", err)
	}
	if err := xml.Unmarshal(data, n); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	return nil
}

// EncodeNode renders n as a detached element named tag. The Order element is
// omitted when no explicit order was set, Permissions when there are none.
func EncodeNode(n Node, tag string) (*etree.Element, error) {
	data, err := xml.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshalling node %d: %w", n.Meta().ID, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("reading marshalled node %d: %w", n.Meta().ID, err)
	}

	el := doc.Root()
	doc.RemoveChild(el)
	el.Tag = tag
	if !n.Meta().HasOrder() {
		if order := el.SelectElement("Order"); order != nil {
			el.RemoveChild(order)
		}
	}
	if perms := el.SelectElement("Permissions"); perms != nil && len(perms.ChildElements()) == 0 {
		el.RemoveChild(perms)
	}
	return el, nil
}

// ElementID returns the id attribute of el.
func ElementID(el *etree.Element) (int, error) {
	raw := strings.TrimSpace(el.SelectAttrValue(AttrID, ""))
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s attribute", ErrParse, AttrID)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q: %w", ErrParse, raw, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	return id, nil
}

// ElementFactoryName returns the type attribute of el.
func ElementFactoryName(el *etree.Element) (string, error) {
	name := strings.TrimSpace(el.SelectAttrValue(AttrType, ""))
	if name == "" {
		return "", fmt.Errorf("%w: missing %s attribute", ErrParse, AttrType)
	}
	return name, nil
}
