package settings

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/beevik/etree"
)

type roomSettings struct {
	Base
	Floor int `xml:"Floor"`
}

type speakerSettings struct {
	Base
	Room int `xml:"Room"`
}

func (s *speakerSettings) Validate() error {
	if s.Room <= 0 {
		return errors.New("speaker without room")
	}
	return nil
}

// mapInstantiator is a minimal Instantiator keyed by factory name.
type mapInstantiator struct{}

var testDescriptors = map[string]Descriptor{
	"Room":    {FactoryName: "Room", Group: "Rooms", Element: "Room"},
	"Speaker": {FactoryName: "Speaker", Group: "Speakers", Element: "Speaker"},
	"Broken":  {FactoryName: "Broken", Group: "Rooms", Element: "Room"},
}

func (mapInstantiator) Instantiate(el *etree.Element) (Node, error) {
	name, err := ElementFactoryName(el)
	if err != nil {
		return nil, err
	}
	id, err := ElementID(el)
	if err != nil {
		return nil, err
	}
	var n Node
	switch name {
	case "Room":
		n = &roomSettings{Base: NewBase()}
	case "Speaker":
		n = &speakerSettings{Base: NewBase()}
	case "Broken":
		panic("constructor blew up")
	default:
		return nil, fmt.Errorf("unknown factory %q", name)
	}
	if err := DecodeNode(el, n); err != nil {
		return nil, err
	}
	n.Meta().ID = id
	return n, nil
}

func (mapInstantiator) Describe(n Node) (Descriptor, error) {
	switch n.(type) {
	case *roomSettings:
		return testDescriptors["Room"], nil
	case *speakerSettings:
		return testDescriptors["Speaker"], nil
	}
	return Descriptor{}, fmt.Errorf("unknown node %s", reflect.TypeOf(n))
}

func room(id int, name string) *roomSettings {
	r := &roomSettings{Base: NewBase(), Floor: 1}
	r.ID = id
	r.Name = name
	return r
}

func TestCollectionAdd(t *testing.T) {
	c := NewCollection()

	if !c.Add(room(1, "Lobby")) {
		t.Fatal("Add() fresh id = false")
	}
	if c.Add(room(1, "Other")) {
		t.Error("Add() duplicate id = true")
	}
	if c.Count() != 1 {
		t.Errorf("Count() = %d, want 1", c.Count())
	}
	n, err := c.GetByID(1)
	if err != nil {
		t.Fatal(err)
	}
	if n.Meta().Name != "Lobby" {
		t.Errorf("duplicate Add() overwrote node: %q", n.Meta().Name)
	}

	for _, id := range []int{0, -3} {
		if c.Add(room(id, "bad")) {
			t.Errorf("Add() id %d = true", id)
		}
	}
	if _, err := c.GetByID(42); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("GetByID() missing error = %v", err)
	}
}

func TestCollectionRemoveThenReAdd(t *testing.T) {
	c := NewCollection()
	first := room(5, "first")
	c.Add(first)

	var changes []ChildrenChanged
	c.OnChildrenChanged(func(ch ChildrenChanged) { changes = append(changes, ch) })

	if c.Remove(room(5, "impostor")) {
		t.Error("Remove() of a different instance = true")
	}
	if !c.Remove(first) {
		t.Fatal("Remove() = false")
	}
	second := room(5, "second")
	if !c.Add(second) {
		t.Fatal("Add() after remove = false")
	}

	if len(changes) != 2 {
		t.Fatalf("notifications = %d, want 2", len(changes))
	}
	if changes[0].Removed[0] != 5 || changes[1].Added[0] != 5 {
		t.Errorf("changes = %+v", changes)
	}
	got, _ := c.TryGet(5)
	if got != Node(second) {
		t.Error("TryGet() did not return the re-added instance")
	}

	if !c.RemoveByID(5) {
		t.Fatal("RemoveByID() = false")
	}
	if c.RemoveByID(5) {
		t.Error("RemoveByID() of a missing id = true")
	}
	if _, ok := c.TryGet(5); ok {
		t.Error("TryGet() found node after RemoveByID()")
	}
	if len(changes) != 3 || changes[2].Removed[0] != 5 {
		t.Errorf("changes = %+v", changes)
	}
}

func TestCollectionBatchNotifiesOnce(t *testing.T) {
	c := NewCollection()
	var calls int
	var last ChildrenChanged
	unsubscribe := c.OnChildrenChanged(func(ch ChildrenChanged) {
		calls++
		last = ch
	})

	added := c.AddChildren(room(1, "a"), room(2, "b"), room(2, "dup"), room(3, "c"))
	if added != 3 || calls != 1 {
		t.Fatalf("AddChildren() = %d with %d notifications, want 3 and 1", added, calls)
	}
	if len(last.Added) != 3 {
		t.Errorf("Added = %v", last.Added)
	}

	removed := c.RemoveChildren(c.Nodes()[0], c.Nodes()[2])
	if removed != 2 || calls != 2 {
		t.Errorf("RemoveChildren() = %d with %d notifications", removed, calls)
	}

	c.SetChildren(room(9, "x"), room(8, "y"))
	if calls != 3 {
		t.Errorf("SetChildren() notifications = %d, want 3", calls)
	}
	if ids := c.IDs(); len(ids) != 2 || ids[0] != 9 || ids[1] != 8 {
		t.Errorf("IDs() = %v, want [9 8]", ids)
	}
	if c.MaxID() != 9 {
		t.Errorf("MaxID() = %d", c.MaxID())
	}

	unsubscribe()
	c.Clear()
	if calls != 3 {
		t.Error("notified after unsubscribe")
	}
	if c.Count() != 0 {
		t.Errorf("Count() after Clear = %d", c.Count())
	}
}

const mixedDocument = `<Config>
  <ConfigVersion>3.1</ConfigVersion>
  <Rooms>
    <Room id="1" type="Room"><Name>Lobby</Name><Floor>0</Floor></Room>
    <Room id="x" type="Room"><Name>Bad id</Name></Room>
    <Room id="2" type="Broken"><Name>Panics</Name></Room>
    <Room id="3" type="Sauna"><Name>Unknown</Name></Room>
    <Room id="4" type="Room"><Name>Hall</Name><Floor>2</Floor><Order>1</Order></Room>
    <Room id="1" type="Room"><Name>Duplicate</Name></Room>
  </Rooms>
  <Speakers>
    <Speaker id="10" type="Speaker"><Name>Ceiling</Name><Room>1</Room></Speaker>
    <Speaker id="11" type="Speaker"><Name>Orphan</Name></Speaker>
  </Speakers>
</Config>`

func parse(t *testing.T, text string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		t.Fatalf("ReadFromString() error = %v", err)
	}
	return doc.Root()
}

func TestFromSerializedSkipsBadElements(t *testing.T) {
	c := NewCollection()
	var notes int
	c.OnChildrenChanged(func(ChildrenChanged) { notes++ })

	summary := c.FromSerialized(parse(t, mixedDocument), mapInstantiator{})

	if summary.Parsed != 3 {
		t.Errorf("Parsed = %d, want 3", summary.Parsed)
	}
	if len(summary.Skipped) != 5 {
		t.Fatalf("Skipped = %d, want 5: %v", len(summary.Skipped), summary.Skipped)
	}
	if notes != 1 {
		t.Errorf("notifications = %d, want 1", notes)
	}
	if ids := c.IDs(); fmt.Sprint(ids) != "[1 4 10]" {
		t.Errorf("IDs() = %v, want [1 4 10]", ids)
	}

	var dup *ElementError
	last := summary.Skipped[3]
	if !errors.As(last, &dup) || !errors.Is(last, ErrDuplicateID) {
		t.Errorf("fourth skip = %v, want duplicate id", last)
	}
	if !errors.Is(summary.Skipped[1], ErrParse) {
		t.Errorf("panicking element error = %v, want ErrParse", summary.Skipped[1])
	}

	lobby, _ := c.GetByID(1)
	if lobby.Meta().Name != "Lobby" {
		t.Errorf("first occurrence should win, got %q", lobby.Meta().Name)
	}
	if got := lobby.Meta().Order; got != OrderUnspecified {
		t.Errorf("Order = %d, want unspecified", got)
	}
}

func TestSerializedRoundTrip(t *testing.T) {
	c := NewCollection()
	hall := room(4, "Hall")
	hall.CombineName = "Main Hall"
	hall.Hide = true
	hall.Order = 7
	hall.Permissions = []Permission{{Role: "operator", Access: "read"}}
	c.AddChildren(hall, room(2, "Kitchen"), &speakerSettings{Base: Base{ID: 3, Name: "Ceiling", Order: OrderUnspecified}, Room: 4})

	doc := etree.NewDocument()
	root := doc.CreateElement(RootElement)
	if err := c.ToSerialized(root, mapInstantiator{}); err != nil {
		t.Fatalf("ToSerialized() error = %v", err)
	}
	text, err := doc.WriteToString()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(text, "<Rooms>") != 1 {
		t.Errorf("expected a single Rooms group:\n%s", text)
	}
	if strings.Contains(text, "<Order>2147483647</Order>") {
		t.Errorf("sentinel order was written:\n%s", text)
	}

	back := NewCollection()
	summary := back.FromSerialized(parse(t, text), mapInstantiator{})
	if len(summary.Skipped) != 0 {
		t.Fatalf("Skipped = %v", summary.Skipped)
	}
	if fmt.Sprint(back.IDs()) != "[4 2 3]" {
		t.Errorf("IDs() = %v, want insertion order [4 2 3]", back.IDs())
	}
	for _, want := range c.Nodes() {
		got, err := back.GetByID(want.Meta().ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Meta().Equal(want.Meta()) {
			t.Errorf("node %d header = %+v, want %+v", want.Meta().ID, got.Meta(), want.Meta())
		}
	}
	sp, _ := back.GetByID(3)
	if sp.(*speakerSettings).Room != 4 {
		t.Error("speaker room lost in round trip")
	}
}

func TestDecodeNodeEmptyOrder(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want int
	}{
		{"absent", `<Room type="Room" id="1"><Name>A</Name></Room>`, OrderUnspecified},
		{"empty", `<Room type="Room" id="1"><Name>A</Name><Order></Order></Room>`, OrderUnspecified},
		{"blank", `<Room type="Room" id="1"><Name>A</Name><Order> </Order></Room>`, OrderUnspecified},
		{"self-closing", `<Room type="Room" id="1"><Name>A</Name><Order/></Room>`, OrderUnspecified},
		{"explicit zero", `<Room type="Room" id="1"><Name>A</Name><Order>0</Order></Room>`, 0},
		{"explicit", `<Room type="Room" id="1"><Name>A</Name><Order>3</Order></Room>`, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := etree.NewDocument()
			if err := doc.ReadFromString(tt.xml); err != nil {
				t.Fatal(err)
			}
			r := &roomSettings{Base: NewBase()}
			if err := DecodeNode(doc.Root(), r); err != nil {
				t.Fatalf("DecodeNode() error = %v", err)
			}
			if r.Order != tt.want {
				t.Errorf("Order = %d, want %d", r.Order, tt.want)
			}
		})
	}
}

func TestEncodeNodeOmitsEmptyPermissions(t *testing.T) {
	tests := []struct {
		name  string
		perms []Permission
		want  bool
	}{
		{"none", nil, false},
		{"empty slice", []Permission{}, false},
		{"one", []Permission{{Role: "operator", Access: "read"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := room(1, "Hall")
			r.Permissions = tt.perms
			el, err := EncodeNode(r, "Room")
			if err != nil {
				t.Fatalf("EncodeNode() error = %v", err)
			}
			got := el.SelectElement("Permissions") != nil
			if got != tt.want {
				t.Errorf("Permissions present = %v, want %v", got, tt.want)
			}
			if tt.want && len(el.SelectElement("Permissions").SelectElements("Permission")) != len(tt.perms) {
				t.Errorf("Permission count mismatch")
			}
		})
	}
}
