package migration

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// Default returns a chain holding every built-in migrator.
func Default() *Chain {
	c, err := NewChain(
		NewStep(V(1, 0), V(2, 0), groupNetworkFields),
		NewStep(V(2, 0), V(3, 0), hoistVolumePoints),
		NewStep(V(3, 0), V(3, 1), classifyRoomChildren),
	)
	if err != nil {
		// The built-in table is static; a failure here is a programming error.
		panic(err)
	}
	return c
}

// groupNetworkFields moves the flat IpAddress/IpPort device fields into a
// Network element placed where the first of them was.
func groupNetworkFields(root *etree.Element) error {
	devices := root.SelectElement("Devices")
	if devices == nil {
		return nil
	}
	for _, dev := range devices.ChildElements() {
		addr := dev.SelectElement("IpAddress")
		port := dev.SelectElement("IpPort")
		if addr == nil && port == nil {
			continue
		}

		idx := firstIndex(addr, port)
		network := etree.NewElement("Network")
		if addr != nil {
			network.CreateElement("Address").SetText(strings.TrimSpace(addr.Text()))
			dev.RemoveChild(addr)
		}
		if port != nil {
			network.CreateElement("Port").SetText(strings.TrimSpace(port.Text()))
			dev.RemoveChild(port)
		}
		dev.InsertChildAt(idx, network)
	}
	return nil
}

// hoistVolumePoints moves each room's nested VolumePoint into a top-level
// VolumePoints collection under a fresh id and leaves an id reference in the
// room. It also turns the single SourceAddress/DestinationAddress fields into
// Addresses lists.
func hoistVolumePoints(root *etree.Element) error {
	rooms := root.SelectElement("Rooms")
	if rooms != nil {
		nextID := maxNodeID(root) + 1
		var hoisted []*etree.Element

		for _, room := range rooms.ChildElements() {
			nested := room.SelectElement("VolumePoint")
			if nested == nil || len(nested.ChildElements()) == 0 {
				continue
			}

			vp := etree.NewElement("VolumePoint")
			vp.CreateAttr(settings.AttrID, strconv.Itoa(nextID))
			vp.CreateAttr(settings.AttrType, nested.SelectAttrValue(settings.AttrType, "VolumePoint"))
			for _, child := range nested.ChildElements() {
				vp.AddChild(child)
			}
			if vp.SelectElement("Name") == nil {
				name := etree.NewElement("Name")
				name.SetText(roomName(room) + " Volume")
				vp.InsertChildAt(0, name)
			}

			ref := etree.NewElement("VolumePoint")
			ref.SetText(strconv.Itoa(nextID))
			idx := nested.Index()
			room.RemoveChild(nested)
			room.InsertChildAt(idx, ref)

			hoisted = append(hoisted, vp)
			nextID++
		}

		if len(hoisted) > 0 {
			group := root.SelectElement("VolumePoints")
			if group == nil {
				group = etree.NewElement("VolumePoints")
				root.InsertChildAt(rooms.Index()+1, group)
			}
			for _, vp := range hoisted {
				group.AddChild(vp)
			}
		}
	}

	listAddresses(root, "Sources", "SourceAddress")
	listAddresses(root, "Destinations", "DestinationAddress")
	return nil
}

// listAddresses replaces every single-valued field element of the nodes in
// group with one Addresses list.
func listAddresses(root *etree.Element, group, field string) {
	g := root.SelectElement(group)
	if g == nil {
		return
	}
	for _, el := range g.ChildElements() {
		singles := el.SelectElements(field)
		if len(singles) == 0 {
			continue
		}
		idx := singles[0].Index()
		list := etree.NewElement("Addresses")
		for _, s := range singles {
			list.CreateElement("Address").SetText(strings.TrimSpace(s.Text()))
			el.RemoveChild(s)
		}
		el.InsertChildAt(idx, list)
	}
}

// classifyRoomChildren renames each generic room Child reference after the
// kind of node it points at. References to unknown kinds stay Child.
func classifyRoomChildren(root *etree.Element) error {
	rooms := root.SelectElement("Rooms")
	if rooms == nil {
		return nil
	}

	kinds := make(map[string]string)
	for _, group := range root.ChildElements() {
		for _, el := range group.ChildElements() {
			id := strings.TrimSpace(el.SelectAttrValue(settings.AttrID, ""))
			if id != "" {
				kinds[id] = el.SelectAttrValue(settings.AttrType, "")
			}
		}
	}

	for _, room := range rooms.ChildElements() {
		children := room.SelectElement("Children")
		if children == nil {
			continue
		}
		for _, child := range children.SelectElements("Child") {
			child.Tag = childKind(kinds[strings.TrimSpace(child.Text())])
		}
	}
	return nil
}

func childKind(factoryName string) string {
	switch factoryName {
	case "GenericDevice":
		return "Device"
	case "IrPort", "SerialPort", "RelayPort":
		return "Port"
	case "Source":
		return "Source"
	case "Destination":
		return "Destination"
	case "VolumePoint":
		return "VolumePoint"
	default:
		return "Child"
	}
}

// maxNodeID returns the largest id attribute among node elements.
func maxNodeID(root *etree.Element) int {
	maxID := 0
	for _, group := range root.ChildElements() {
		for _, el := range group.ChildElements() {
			id, err := strconv.Atoi(strings.TrimSpace(el.SelectAttrValue(settings.AttrID, "")))
			if err == nil && id > maxID {
				maxID = id
			}
		}
	}
	return maxID
}

func roomName(room *etree.Element) string {
	if name := room.SelectElement("Name"); name != nil {
		return strings.TrimSpace(name.Text())
	}
	return "Room " + room.SelectAttrValue(settings.AttrID, "")
}

func firstIndex(elements ...*etree.Element) int {
	idx := -1
	for _, el := range elements {
		if el == nil {
			continue
		}
		if i := el.Index(); idx < 0 || i < idx {
			idx = i
		}
	}
	return idx
}
