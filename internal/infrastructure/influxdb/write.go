package influxdb

import (
	"maps"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementPass = "topology_pass"
	MeasurementSave = "topology_save"
)

// PassMetric describes one load, reload or start pass.
type PassMetric struct {
	Action   string // load, reload, start
	Version  string // document version before migration
	Nodes    int
	Built    int
	Failed   int
	Skipped  int
	Migrated bool
	Duration time.Duration
}

// WritePass records a pass as a topology_pass point.
//
// Example:
//
//	client.WritePass(influxdb.PassMetric{Action: "load", Nodes: 42, Built: 41, Failed: 1})
func (c *Client) WritePass(m PassMetric) {
	c.WritePoint(MeasurementPass,
		map[string]string{"action": m.Action, "version": m.Version},
		map[string]any{
			"nodes":       m.Nodes,
			"built":       m.Built,
			"failed":      m.Failed,
			"skipped":     m.Skipped,
			"migrated":    m.Migrated,
			"duration_ms": m.Duration.Milliseconds(),
		})
}

// WriteSave records the size and duration of a document save.
func (c *Client) WriteSave(bytes int, nodes int, d time.Duration) {
	c.WritePoint(MeasurementSave, nil, map[string]any{
		"bytes":       bytes,
		"nodes":       nodes,
		"duration_ms": d.Milliseconds(),
	})
}

// WritePoint writes a point stamped with the current time.
// The site tag is added to tags.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, c.now())
}

// WritePointWithTime writes a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	all := maps.Clone(c.tags)
	maps.Copy(all, tags)
	c.writer.WritePoint(write.NewPoint(measurement, all, fields, ts))
}
