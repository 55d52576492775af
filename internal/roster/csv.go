package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/model"
)

const (
	numFields  = 6
	colID      = 0
	colClass   = 1
	colSection = 2
	colRoll    = 3
	colStatus  = 4
	colName    = 5
)

// ErrDuplicateStudent is returned when a snapshot lists a student id twice.
var ErrDuplicateStudent = errors.New("duplicate student id")

// ReadStudents reads roster/students.csv. Student ids must be unique.
func ReadStudents(r io.Reader) ([]model.StudentRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading roster CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var students []model.StudentRecord
	seen := make(map[string]int)
	for i, rec := range records[1:] {
		s, err := UnmarshalStudent(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if first, ok := seen[s.ID]; ok {
			return nil, fmt.Errorf("row %d: %w %s (first on row %d)", i+2, ErrDuplicateStudent, s.ID, first)
		}
		seen[s.ID] = i + 2
		students = append(students, s)
	}
	return students, nil
}

// WriteStudents writes roster/students.csv.
func WriteStudents(w io.Writer, students []model.StudentRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"student_id", "class", "section", "roll", "status", "name"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, s := range students {
		if err := cw.Write(MarshalStudent(s)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalStudent converts a StudentRecord to a CSV row.
func MarshalStudent(s model.StudentRecord) []string {
	row := make([]string, numFields)
	row[colID] = s.ID
	row[colClass] = s.Class
	row[colSection] = s.Section
	row[colRoll] = s.Roll
	row[colStatus] = string(s.Status)
	row[colName] = s.Name
	return row
}

// UnmarshalStudent converts a CSV row to a StudentRecord, canonicalizing
// class, section and roll.
func UnmarshalStudent(record []string) (model.StudentRecord, error) {
	if len(record) != numFields {
		return model.StudentRecord{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if record[colID] == "" {
		return model.StudentRecord{}, fmt.Errorf("missing student_id")
	}

	status, err := parseStatus(record[colStatus])
	if err != nil {
		return model.StudentRecord{}, err
	}

	return model.StudentRecord{
		ID:      record[colID],
		Class:   id.CanonicalClass(record[colClass]),
		Section: id.CanonicalSection(record[colSection]),
		Roll:    id.CanonicalRoll(record[colRoll]),
		Status:  status,
		Name:    record[colName],
	}, nil
}
