package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/config"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (w *fakeWriter) WritePoint(p *write.Point) {
	w.mu.Lock()
	w.points = append(w.points, p)
	w.mu.Unlock()
}

func (w *fakeWriter) Flush() {
	w.mu.Lock()
	w.flushes++
	w.mu.Unlock()
}

func testClient() (*Client, *fakeWriter) {
	w := &fakeWriter{}
	c := newClient(w, "site-001")
	c.now = func() time.Time { return time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC) }
	return c, w
}

func tagValue(p *write.Point, key string) string {
	for _, tag := range p.TagList() {
		if tag.Key == key {
			return tag.Value
		}
	}
	return ""
}

func fieldValue(p *write.Point, key string) any {
	for _, f := range p.FieldList() {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

func TestConnect_Disabled(t *testing.T) {
	if _, err := Connect(config.InfluxDBConfig{}, "site"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestOptions_Defaults(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.InfluxDBConfig
		batch     uint
		flushMSec uint
	}{
		{"configured", config.InfluxDBConfig{BatchSize: 50, FlushInterval: 2}, 50, 2000},
		{"zero", config.InfluxDBConfig{}, defaultBatchSize, defaultFlushInterval * 1000},
		{"negative", config.InfluxDBConfig{BatchSize: -1, FlushInterval: -5}, defaultBatchSize, defaultFlushInterval * 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options(tt.cfg)
			if opts.BatchSize() != tt.batch || opts.FlushInterval() != tt.flushMSec {
				t.Errorf("batch = %d, flush = %d", opts.BatchSize(), opts.FlushInterval())
			}
		})
	}
}

func TestWritePass(t *testing.T) {
	c, w := testClient()

	c.WritePass(PassMetric{
		Action: "load", Version: "2.0", Nodes: 12, Built: 11, Failed: 1,
		Migrated: true, Duration: 1500 * time.Millisecond,
	})

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.Name() != MeasurementPass {
		t.Errorf("Name() = %q", p.Name())
	}
	if tagValue(p, "site") != "site-001" || tagValue(p, "action") != "load" || tagValue(p, "version") != "2.0" {
		t.Errorf("tags = %v", p.TagList())
	}
	if fieldValue(p, "duration_ms") != int64(1500) || fieldValue(p, "failed") != int64(1) {
		t.Errorf("fields = %v", p.FieldList())
	}
	if fieldValue(p, "migrated") != true {
		t.Error("migrated field missing")
	}
}

func TestWriteSave(t *testing.T) {
	c, w := testClient()
	c.WriteSave(2048, 12, 20*time.Millisecond)

	p := w.points[0]
	if p.Name() != MeasurementSave || fieldValue(p, "bytes") != int64(2048) {
		t.Errorf("point = %s %v", p.Name(), p.FieldList())
	}
	if !p.Time().Equal(c.now()) {
		t.Errorf("Time() = %v", p.Time())
	}
}

func TestWritePoint_CallerTagsWin(t *testing.T) {
	c, w := testClient()
	c.WritePoint("custom", map[string]string{"site": "override"}, map[string]any{"v": 1.0})

	if got := tagValue(w.points[0], "site"); got != "override" {
		t.Errorf("site tag = %q", got)
	}
	if c.tags["site"] != "site-001" {
		t.Error("client tags mutated")
	}
}

func TestClose(t *testing.T) {
	c, w := testClient()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1", w.flushes)
	}

	c.WritePass(PassMetric{Action: "load"})
	c.Flush()
	if len(w.points) != 0 || w.flushes != 1 {
		t.Error("writes accepted after Close")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestForwardErrors(t *testing.T) {
	c, _ := testClient()
	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	errs := make(chan error, 1)
	errs <- errors.New("bucket not found")
	close(errs)
	c.forwardErrors(errs)

	if err := <-got; !errors.Is(err, ErrWriteFailed) {
		t.Errorf("forwarded error = %v", err)
	}
}
