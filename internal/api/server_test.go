package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-topology/internal/core"
	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-topology/internal/journal"
	"github.com/nerrad567/gray-logic-topology/internal/nodes"
	"github.com/nerrad567/gray-logic-topology/internal/platform"
	"github.com/nerrad567/gray-logic-topology/internal/registry"
	"github.com/nerrad567/gray-logic-topology/internal/store"
	"github.com/nerrad567/gray-logic-topology/migrations"
)

const studio = `<?xml version="1.0" encoding="utf-8"?>
<Config>
  <ConfigVersion>3.1</ConfigVersion>
  <Devices>
    <Device id="1" type="GenericDevice"><Name>Matrix</Name><Network><Address>10.0.0.5</Address><Port>23</Port></Network></Device>
  </Devices>
  <Ports>
    <Port id="2" type="IrPort"><Name>IR 1</Name><Device>1</Device><Address>1</Address></Port>
    <Port id="3" type="RelayPort"><Name>Screen</Name><Device>1</Device><Address>2</Address></Port>
  </Ports>
</Config>`

type testEnv struct {
	server  *Server
	handler http.Handler
	core    *core.Core
	docPath string
}

// testServer wires a real core, file store and SQLite journal under t.TempDir.
func testServer(t *testing.T, withJournal bool) *testEnv {
	t.Helper()
	dir := t.TempDir()

	log := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	svc := platform.Fixed{
		Document: filepath.Join(dir, "topology.xml"),
		Backups:  filepath.Join(dir, "backups"),
		Host:     "api-test",
		Time:     time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}

	opts := core.Options{
		Registry: registry.New(nodes.Providers()...),
		Store:    store.NewFile(svc, 5),
		Platform: svc,
		Logger:   log,
	}

	var repo journal.Repository
	if withJournal {
		db, err := database.Open(config.DatabaseConfig{Path: filepath.Join(dir, "journal.db"), WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("database.Open() error = %v", err)
		}
		t.Cleanup(func() { db.Close() })
		if err := db.Migrate(context.Background(), migrations.FS); err != nil {
			t.Fatalf("Migrate() error = %v", err)
		}
		sqlRepo := journal.NewSQLiteRepository(db.DB)
		opts.Journal = sqlRepo
		repo = sqlRepo
	}

	c, err := core.New(opts)
	if err != nil {
		t.Fatalf("core.New() error = %v", err)
	}

	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:   log,
		Topology: c,
		Journal:  repo,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{server: srv, handler: srv.Handler(), core: c, docPath: svc.Document}
}

func (e *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) writeDocument(t *testing.T, text string) {
	t.Helper()
	if err := os.WriteFile(e.docPath, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Default()}); err == nil {
		t.Error("New() without topology should fail")
	}
}

func TestHealth(t *testing.T) {
	env := testServer(t, false)
	rec := env.do(t, http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := testServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := testServer(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/topology/reload", nil)
	req.Header.Set("Origin", "http://panel.local")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestReport_NotFoundBeforeLoad(t *testing.T) {
	env := testServer(t, false)
	rec := env.do(t, http.MethodGet, "/api/v1/topology/report")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if e := decode[Error](t, rec); e.Code != ErrCodeNotFound {
		t.Errorf("code = %q", e.Code)
	}
}

func TestReload_WritesStubWhenMissing(t *testing.T) {
	env := testServer(t, false)
	rec := env.do(t, http.MethodPost, "/api/v1/topology/reload")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	summary := decode[core.ReportSummary](t, rec)
	if summary.Action != journal.ActionReload || summary.Parsed != 0 || summary.Version != "3.1" {
		t.Errorf("summary = %+v", summary)
	}
	data, err := os.ReadFile(env.docPath)
	if err != nil {
		t.Fatalf("stub not written: %v", err)
	}
	if !strings.Contains(string(data), "<Ports/>") {
		t.Errorf("stub = %s", data)
	}
}

func TestReload_Malformed(t *testing.T) {
	env := testServer(t, false)
	env.writeDocument(t, "<Config><Devices>")
	rec := env.do(t, http.MethodPost, "/api/v1/topology/reload")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if s := decode[core.ReportSummary](t, rec); s.Error == "" {
		t.Errorf("summary = %+v", s)
	}
}

func TestTopologyEndpoints(t *testing.T) {
	env := testServer(t, true)
	env.writeDocument(t, studio)

	if rec := env.do(t, http.MethodPost, "/api/v1/topology/reload"); rec.Code != http.StatusOK {
		t.Fatalf("reload status = %d body = %s", rec.Code, rec.Body)
	}

	t.Run("status", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/topology")
		st := decode[TopologyStatus](t, rec)
		if st.Version != "3.1" || st.Originators != 3 || st.Settings != 3 || st.LastReport == nil || st.LastReport.Built != 3 {
			t.Errorf("status = %+v", st)
		}
	})

	t.Run("originators", func(t *testing.T) {
		tests := []struct {
			path  string
			count int
		}{
			{"/api/v1/topology/originators", 3},
			{"/api/v1/topology/originators?factory=IrPort", 1},
			{"/api/v1/topology/originators?factory=Room", 0},
			{"/api/v1/topology/originators?factory=Nope", 0},
		}
		for _, tt := range tests {
			rec := env.do(t, http.MethodGet, tt.path)
			body := decode[struct {
				Count int `json:"count"`
			}](t, rec)
			if body.Count != tt.count {
				t.Errorf("%s count = %d, want %d", tt.path, body.Count, tt.count)
			}
		}
	})

	t.Run("originator by id", func(t *testing.T) {
		tests := []struct {
			id   string
			code int
		}{
			{"1", http.StatusOK},
			{"99", http.StatusNotFound},
			{"one", http.StatusBadRequest},
		}
		for _, tt := range tests {
			rec := env.do(t, http.MethodGet, "/api/v1/topology/originators/"+tt.id)
			if rec.Code != tt.code {
				t.Errorf("GET %s status = %d, want %d", tt.id, rec.Code, tt.code)
			}
		}
		info := decode[core.OriginatorInfo](t, env.do(t, http.MethodGet, "/api/v1/topology/originators/1"))
		if info.Name != "Matrix" || info.Factory != nodes.FactoryGenericDevice || info.State != "loaded" {
			t.Errorf("info = %+v", info)
		}
	})

	t.Run("document", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/topology/document")
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
			t.Errorf("Content-Type = %q", ct)
		}
		if body := rec.Body.String(); !strings.Contains(body, "<ConfigVersion>3.1</ConfigVersion>") || !strings.Contains(body, `type="RelayPort"`) {
			t.Errorf("document = %s", body)
		}
	})

	t.Run("start", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/topology/start")
		body := decode[map[string]any](t, rec)
		if rec.Code != http.StatusOK || body["started"] != float64(3) {
			t.Errorf("status = %d body = %v", rec.Code, body)
		}
	})

	t.Run("save", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/topology/save")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
		}
		result := decode[core.SaveResult](t, rec)
		if result.Nodes != 3 || len(result.Checksum) != 64 || result.Backup == "" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		m := decode[SystemMetrics](t, env.do(t, http.MethodGet, "/api/v1/metrics"))
		if m.Topology.Total != 3 || m.Topology.ByState["started"] != 3 || m.Topology.ByFactory["IrPort"] != 1 {
			t.Errorf("topology metrics = %+v", m.Topology)
		}
		if m.MQTT.Connected {
			t.Error("MQTT reported connected without a client")
		}
	})

	t.Run("journal", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/journal")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
		}
		result := decode[journal.ListResult](t, rec)
		if result.Total != 2 || len(result.Entries) != 2 {
			t.Fatalf("journal = %+v", result)
		}
		actions := map[string]bool{}
		for _, e := range result.Entries {
			actions[e.Action] = true
			if e.Host != "api-test" {
				t.Errorf("entry host = %q", e.Host)
			}
		}
		if !actions[journal.ActionReload] || !actions[journal.ActionSave] {
			t.Errorf("actions = %v", actions)
		}

		rec = env.do(t, http.MethodGet, "/api/v1/journal?action=reload&limit=1")
		result = decode[journal.ListResult](t, rec)
		if result.Total != 1 || len(result.Entries) != 1 || result.Entries[0].BuiltCount != 3 {
			t.Errorf("filtered journal = %+v", result)
		}
	})
}

func TestJournal_Errors(t *testing.T) {
	tests := []struct {
		name    string
		journal bool
		path    string
		code    int
	}{
		{"not configured", false, "/api/v1/journal", http.StatusServiceUnavailable},
		{"bad limit", true, "/api/v1/journal?limit=-1", http.StatusBadRequest},
		{"bad offset", true, "/api/v1/journal?offset=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t, tt.journal)
			if rec := env.do(t, http.MethodGet, tt.path); rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
		})
	}
}

func TestStartAndClose(t *testing.T) {
	env := testServer(t, false)
	if err := env.server.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := env.server.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer env.server.Close()

	resp, err := http.Get("http://" + env.server.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if err := env.server.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestSave_ConflictBeforeLoad(t *testing.T) {
	env := testServer(t, false)
	env.writeDocument(t, "<Config><Devices>")

	if rec := env.do(t, http.MethodPost, "/api/v1/topology/reload"); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("reload status = %d", rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/api/v1/topology/save")
	if rec.Code != http.StatusConflict {
		t.Fatalf("save status = %d body = %s", rec.Code, rec.Body)
	}
	data, err := os.ReadFile(env.docPath)
	if err != nil || string(data) != "<Config><Devices>" {
		t.Errorf("document changed: %q, %v", data, err)
	}
}
