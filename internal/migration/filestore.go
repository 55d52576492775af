package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/feeledger-dev/feeledger/internal/model"
)

// FileStore keeps the report as migration/report.yaml under a ledger root.
// The report is written to a temp file and published with a hard link,
// which fails if the target already exists.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore rooted at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{path: filepath.Join(root, "migration", "report.yaml")}
}

// Path returns the report file location.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context) (*model.MigrationReport, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading migration report: %w", err)
	}
	var r model.MigrationReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing migration report: %w", err)
	}
	return &r, nil
}

// PutIfAbsent implements Store.
func (s *FileStore) PutIfAbsent(_ context.Context, report model.MigrationReport) error {
	if _, err := os.Stat(s.path); err == nil {
		return ErrAlreadyMigrated
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating migration dir: %w", err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling migration report: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp report: %w", err)
	}

	if err := os.Link(tmp.Name(), s.path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyMigrated
		}
		return fmt.Errorf("publishing migration report: %w", err)
	}
	return nil
}
