package settings

import (
	"math"
	"slices"

	"github.com/google/uuid"
)

// OrderUnspecified is the Order sentinel for nodes without a display position.
const OrderUnspecified = math.MaxInt32

// Permission grants a role access to a node.
type Permission struct {
	Role   string `xml:"role,attr"`
	Access string `xml:",chardata"`
}

// Base is the common header embedded by every concrete settings type.
//
// The xml tags describe the child elements shared by every node; concrete
// types add their own fields alongside the embedded Base.
type Base struct {
	ID          int          `xml:"id,attr"`
	UUID        string       `xml:"Uuid,omitempty"`
	Name        string       `xml:"Name"`
	CombineName string       `xml:"CombineName,omitempty"`
	Description string       `xml:"Description,omitempty"`
	Hide        bool         `xml:"Hide"`
	Disable     bool         `xml:"Disable"`
	Order       int          `xml:"Order"`
	Permissions []Permission `xml:"Permissions>Permission,omitempty"`
}

// NewBase returns a default-constructed header: no id, a fresh UUID and an
// unspecified order.
func NewBase() Base {
	return Base{
		UUID:  uuid.NewString(),
		Order: OrderUnspecified,
	}
}

// Meta returns the header itself. Concrete types get it by embedding Base.
func (b *Base) Meta() *Base {
	return b
}

// HasOrder reports whether an explicit display order was set.
func (b *Base) HasOrder() bool {
	return b.Order != OrderUnspecified
}

// Equal compares the fields that survive a serialize/parse round trip.
func (b *Base) Equal(other *Base) bool {
	if other == nil {
		return false
	}
	return b.ID == other.ID &&
		b.Name == other.Name &&
		b.CombineName == other.CombineName &&
		b.Hide == other.Hide &&
		b.Disable == other.Disable &&
		b.Order == other.Order &&
		slices.Equal(b.Permissions, other.Permissions)
}

// Node is the contract every settings type satisfies.
type Node interface {
	Meta() *Base
}

// Dependent is implemented by nodes that need other nodes constructed first.
// The resolver treats the returned ids as an opaque "must exist before me".
type Dependent interface {
	Dependencies() []int
}

// Validator is implemented by nodes that can check their own fields after
// population.
type Validator interface {
	Validate() error
}

// DependenciesOf returns the declared dependency ids of a node, or nil when
// the node declares none. Zero ids mean "not set" and are dropped.
func DependenciesOf(n Node) []int {
	d, ok := n.(Dependent)
	if !ok {
		return nil
	}
	var ids []int
	for _, id := range d.Dependencies() {
		if id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
