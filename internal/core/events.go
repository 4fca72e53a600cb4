package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-topology/internal/migration"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// Event types published under graylogic/topology/event/{type}.
const (
	EventLoaded     = "loaded"
	EventLoadFailed = "load_failed"
	EventSaved      = "saved"
	EventStarted    = "started"
	EventCleared    = "cleared"
)

// Commands accepted by Command.
const (
	CommandReload = "reload"
	CommandSave   = "save"
	CommandStart  = "start"
)

const (
	actionStart = "start"
	eventQoS    = 1
)

// publish sends payload as JSON on the event topic. Failures are logged only.
func (c *Core) publish(event string, payload any) {
	if c.mqtt == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("encoding topology event failed", "event", event, "error", err)
		return
	}
	if err := c.mqtt.Publish(mqtt.Topics{}.Event(event), data, eventQoS, false); err != nil {
		c.logger.Warn("publishing topology event failed", "event", event, "error", err)
	}
}

func passMetric(action string, v migration.Version, nodes, built int, d time.Duration) influxdb.PassMetric {
	return influxdb.PassMetric{
		Action:   action,
		Version:  v.String(),
		Nodes:    nodes,
		Built:    built,
		Duration: d,
	}
}

// StubDocument returns an empty document at CurrentVersion with one empty
// element per group.
func StubDocument(groups []string) (string, error) {
	doc := newDocument(migration.CurrentVersion)
	for _, g := range groups {
		doc.Root().CreateElement(g)
	}
	return renderDocument(doc)
}

func newDocument(v migration.Version) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement(settings.RootElement)
	root.CreateElement(settings.VersionElement).SetText(v.String())
	return doc
}

func renderDocument(doc *etree.Document) (string, error) {
	doc.Indent(2)
	text, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("writing topology document: %w", err)
	}
	return text, nil
}
