package roster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/feeledger-dev/feeledger/internal/model"
)

// Source fetches a roster snapshot.
type Source interface {
	Students(ctx context.Context) ([]model.StudentRecord, error)
}

// FileSource reads a snapshot from a CSV or JSON export on disk.
type FileSource struct {
	Path string
}

// DefaultPath returns roster/students.csv under a ledger root.
func DefaultPath(root string) string {
	return filepath.Join(root, "roster", "students.csv")
}

// Students implements Source.
func (f FileSource) Students(_ context.Context) ([]model.StudentRecord, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening roster: %w", err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(f.Path), ".json") {
		return DecodeJSON(file)
	}
	students, err := ReadStudents(file)
	if err != nil {
		return nil, fmt.Errorf("reading roster %s: %w", f.Path, err)
	}
	return students, nil
}

// Save writes a snapshot to path as CSV.
func Save(path string, students []model.StudentRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating roster dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating roster file: %w", err)
	}
	defer f.Close()

	if err := WriteStudents(f, students); err != nil {
		return fmt.Errorf("writing roster: %w", err)
	}
	return nil
}

// Active returns the students who have not left.
func Active(students []model.StudentRecord) []model.StudentRecord {
	var out []model.StudentRecord
	for _, s := range students {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out
}

// ByID returns the snapshot keyed by student ID.
func ByID(students []model.StudentRecord) map[string]model.StudentRecord {
	m := make(map[string]model.StudentRecord, len(students))
	for _, s := range students {
		m[s.ID] = s
	}
	return m
}
