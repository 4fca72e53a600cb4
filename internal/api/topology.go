package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-topology/internal/core"
	"github.com/nerrad567/gray-logic-topology/internal/originator"
)

// TopologyStatus is the response of GET /topology.
type TopologyStatus struct {
	Version     string              `json:"version"`
	Originators int                 `json:"originators"`
	Settings    int                 `json:"settings"`
	LastReport  *core.ReportSummary `json:"last_report,omitempty"`
}

func (s *Server) handleTopology(w http.ResponseWriter, _ *http.Request) {
	status := TopologyStatus{
		Version:     s.topology.Version().String(),
		Originators: s.topology.Originators().Count(),
		Settings:    s.topology.Settings().Count(),
	}
	if r := s.topology.LastReport(); r != nil {
		summary := r.Summary()
		status.LastReport = &summary
	}
	writeJSON(w, http.StatusOK, status)
}

// handleDocument returns the graph serialized at the current version.
func (s *Server) handleDocument(w http.ResponseWriter, _ *http.Request) {
	text, err := s.topology.Serialize()
	if err != nil {
		s.logger.Error("serializing topology failed", "error", err)
		writeInternalError(w, "failed to serialize topology")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte(text))
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	r := s.topology.LastReport()
	if r == nil {
		writeNotFound(w, "no load has run")
		return
	}
	writeJSON(w, http.StatusOK, r.Summary())
}

// handleReload re-reads the document from the store and rebuilds the graph.
// A pass that ran but was aborted answers 422 with its report.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	report, err := s.topology.Reload(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report.Summary())
	case errors.Is(err, core.ErrNoStore):
		writeUnavailable(w, "no document store configured")
	case report != nil:
		writeJSON(w, http.StatusUnprocessableEntity, report.Summary())
	default:
		s.logger.Error("topology reload failed", "error", err)
		writeInternalError(w, "failed to reload topology")
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	result, err := s.topology.Save(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, core.ErrNoStore):
		writeUnavailable(w, "no document store configured")
	case errors.Is(err, core.ErrNotLoaded):
		writeError(w, http.StatusConflict, ErrCodeConflict, "no document loaded; reload before saving")
	default:
		s.logger.Error("topology save failed", "error", err)
		writeInternalError(w, "failed to save topology")
	}
}

// handleStart runs the start pass. Originators that fail to start are
// reported in the 409 message and stay loaded.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.topology.Start(r.Context()); err != nil {
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	}
	started := 0
	for _, o := range s.topology.Originators().All() {
		if o.Lifecycle().State() == originator.StateStarted {
			started++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "started": started})
}

// handleListOriginators lists originators in construction order.
//
// Query parameters:
//   - factory: only originators built by this factory
func (s *Server) handleListOriginators(w http.ResponseWriter, r *http.Request) {
	var items []core.OriginatorInfo
	if f := r.URL.Query().Get("factory"); f != "" {
		items = s.topology.InventoryOf(f)
	} else {
		items = s.topology.Inventory()
	}
	if items == nil {
		items = []core.OriginatorInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"originators": items,
		"count":       len(items),
	})
}

func (s *Server) handleGetOriginator(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "id must be an integer")
		return
	}
	info, ok := s.topology.Info(id)
	if !ok {
		writeNotFound(w, "originator not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
