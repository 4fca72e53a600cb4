// Package platform isolates the few host-specific operations of the engine:
// where the topology document and its backups live, the wall clock, and the
// host identity recorded in the journal.
//
// Everything else (registry, factory, migration, core) is platform-neutral
// and receives a Services value.
package platform

import (
	"os"
	"path/filepath"
	"time"

	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/config"
)

// Services are the host operations the engine depends on.
type Services interface {
	// DocumentPath is the topology document location.
	DocumentPath() string

	// BackupDir receives timestamped copies of the previous document.
	BackupDir() string

	// Now is the wall clock.
	Now() time.Time

	// Hostname identifies this machine in journal entries.
	Hostname() string
}

// OS implements Services with the local filesystem and clock.
type OS struct {
	documentPath string
	backupDir    string
	hostname     string
}

// FromConfig builds OS services for the topology section.
// Relative paths are resolved against the working directory.
func FromConfig(cfg config.TopologyConfig) (*OS, error) {
	doc, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, err
	}
	backups, err := filepath.Abs(cfg.BackupDirectory())
	if err != nil {
		return nil, err
	}
	o := Local()
	o.documentPath, o.backupDir = doc, backups
	return o, nil
}

// Local returns OS services without document paths, for callers that only
// need the clock and host name.
func Local() *OS {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &OS{hostname: host}
}

func (o *OS) DocumentPath() string { return o.documentPath }
func (o *OS) BackupDir() string    { return o.backupDir }
func (o *OS) Hostname() string     { return o.hostname }
func (*OS) Now() time.Time         { return time.Now().UTC() }

// Fixed is a Services value with a frozen clock. Used by tests and tools.
type Fixed struct {
	Document string
	Backups  string
	Host     string
	Time     time.Time
}

func (f Fixed) DocumentPath() string { return f.Document }
func (f Fixed) BackupDir() string    { return f.Backups }
func (f Fixed) Hostname() string     { return f.Host }
func (f Fixed) Now() time.Time       { return f.Time }
