package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-topology/internal/platform"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	// backupLayout sorts lexically in time order.
	backupLayout = "20060102T150405.000Z"

	maxBackupCollisions = 1000
)

// Logger is the logging interface used by the store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// File stores the document on the local filesystem.
type File struct {
	mu         sync.Mutex
	platform   platform.Services
	maxBackups int
	logger     Logger
}

// NewFile creates a File store. maxBackups of 0 keeps every backup.
func NewFile(svc platform.Services, maxBackups int) *File {
	return &File{platform: svc, maxBackups: maxBackups, logger: noopLogger{}}
}

// SetLogger sets the logger for backup and prune messages.
func (f *File) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	f.logger = logger
}

// Path returns the document path.
func (f *File) Path() string {
	return f.platform.DocumentPath()
}

// Read returns the document text. A missing document wraps fs.ErrNotExist.
func (f *File) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path())
	if err != nil {
		return "", fmt.Errorf("reading topology document: %w", err)
	}
	return string(data), nil
}

// Write backs up the current document and atomically replaces it with text.
//
// Returns:
//   - string: Path of the backup written, empty when there was no previous document
//   - error: If the backup or the write fails; the previous document is then untouched
func (f *File) Write(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyDocument
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.Path()
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return "", fmt.Errorf("creating document directory: %w", err)
	}

	backup, err := f.backup(path)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(path, text); err != nil {
		return backup, err
	}
	f.prune()
	return backup, nil
}

// Backups lists backup files, oldest first.
func (f *File) Backups() ([]string, error) {
	entries, err := os.ReadDir(f.platform.BackupDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	prefix, ext := f.backupAffixes()
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ext) {
			names = append(names, filepath.Join(f.platform.BackupDir(), e.Name()))
		}
	}
	slices.Sort(names)
	return names, nil
}

func (f *File) backupAffixes() (prefix, ext string) {
	base := filepath.Base(f.Path())
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-", ext
}

func (f *File) backup(path string) (string, error) {
	src, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("opening document for backup: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(f.platform.BackupDir(), dirPermissions); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	name, dst, err := f.createBackup()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("copying backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("closing backup: %w", err)
	}
	f.logger.Debug("topology document backed up", "backup", name)
	return name, nil
}

// createBackup opens a new backup file. Backups taken within the same
// millisecond get a counter suffix that still sorts after the first one.
func (f *File) createBackup() (string, *os.File, error) {
	prefix, ext := f.backupAffixes()
	stamp := prefix + f.platform.Now().UTC().Format(backupLayout)
	for n := 0; n < maxBackupCollisions; n++ {
		name := stamp + ext
		if n > 0 {
			name = fmt.Sprintf("%s_%03d%s", stamp, n, ext)
		}
		name = filepath.Join(f.platform.BackupDir(), name)
		dst, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePermissions)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("creating backup: %w", err)
		}
		return name, dst, nil
	}
	return "", nil, fmt.Errorf("creating backup: %d backups already named %s", maxBackupCollisions, stamp)
}

func (f *File) prune() {
	if f.maxBackups <= 0 {
		return
	}
	names, err := f.Backups()
	if err != nil {
		f.logger.Warn("listing backups failed", "error", err)
		return
	}
	for len(names) > f.maxBackups {
		if err := os.Remove(names[0]); err != nil {
			f.logger.Warn("removing old backup failed", "backup", names[0], "error", err)
		}
		names = names[1:]
	}
}

// writeAtomic writes text to a temp file beside path, syncs it and renames it over path.
func writeAtomic(path, text string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp document: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if _, err := io.WriteString(tmp, text); err != nil {
		return fail(fmt.Errorf("writing temp document: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp document: %w", err))
	}
	if err := tmp.Chmod(filePermissions); err != nil {
		return fail(fmt.Errorf("setting document permissions: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp document: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing topology document: %w", err)
	}
	return nil
}
