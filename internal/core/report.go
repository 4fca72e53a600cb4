package core

import (
	"time"

	"go.uber.org/multierr"

	"github.com/nerrad567/gray-logic-topology/internal/migration"
	"github.com/nerrad567/gray-logic-topology/internal/settings"
)

// NodeFailure is a settings id whose originator could not be built.
type NodeFailure struct {
	ID          int
	FactoryName string
	Err         error
}

// LoadReport describes one load or reload pass.
type LoadReport struct {
	Action        string
	SourceVersion migration.Version
	Version       migration.Version
	Migrated      bool

	Parsed  int
	Skipped []*settings.ElementError
	Built   int
	Failed  []NodeFailure

	Started  int
	StartErr error

	// Err is the error that aborted the pass, if any.
	Err error

	Duration    time.Duration
	CompletedAt time.Time
}

// OK reports whether every element parsed, built and started.
func (r *LoadReport) OK() bool {
	return r.Err == nil && r.Errors() == nil
}

// Errors combines every non-fatal problem of the pass.
func (r *LoadReport) Errors() error {
	var err error
	for _, s := range r.Skipped {
		err = multierr.Append(err, s)
	}
	for _, f := range r.Failed {
		err = multierr.Append(err, f.Err)
	}
	return multierr.Append(err, r.StartErr)
}

// ReportSummary is the JSON form of a LoadReport.
type ReportSummary struct {
	Action        string    `json:"action"`
	SourceVersion string    `json:"source_version"`
	Version       string    `json:"version"`
	Migrated      bool      `json:"migrated"`
	Parsed        int       `json:"parsed"`
	Skipped       int       `json:"skipped"`
	Built         int       `json:"built"`
	Failed        []int     `json:"failed,omitempty"`
	Started       int       `json:"started"`
	Problems      []string  `json:"problems,omitempty"`
	Error         string    `json:"error,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Summary converts r to its JSON form.
func (r *LoadReport) Summary() ReportSummary {
	s := ReportSummary{
		Action:        r.Action,
		SourceVersion: r.SourceVersion.String(),
		Version:       r.Version.String(),
		Migrated:      r.Migrated,
		Parsed:        r.Parsed,
		Skipped:       len(r.Skipped),
		Built:         r.Built,
		Started:       r.Started,
		DurationMS:    r.Duration.Milliseconds(),
		CompletedAt:   r.CompletedAt,
	}
	for _, f := range r.Failed {
		s.Failed = append(s.Failed, f.ID)
	}
	for _, err := range multierr.Errors(r.Errors()) {
		s.Problems = append(s.Problems, err.Error())
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}

// SaveResult describes one save.
type SaveResult struct {
	Backup   string        `json:"backup,omitempty"`
	Checksum string        `json:"checksum"`
	Bytes    int           `json:"bytes"`
	Nodes    int           `json:"nodes"`
	Duration time.Duration `json:"-"`
}
