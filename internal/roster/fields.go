package roster

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/model"
)

// aliases lists, per logical field, the keys the students API has been seen
// to use. The first key present in a record wins.
var aliases = map[string][]string{
	"id":      {"id", "_id", "student_id", "studentId", "uuid"},
	"name":    {"name", "student_name", "studentName", "full_name", "fullName"},
	"class":   {"class", "class_name", "className", "grade", "standard"},
	"section": {"section", "section_name", "sectionName", "sec", "division"},
	"roll":    {"roll", "roll_no", "rollNo", "roll_number", "rollNumber", "RollNo"},
	"status":  {"status", "student_status", "studentStatus", "state"},
}

// DecodeJSON reads a JSON array of loosely shaped student objects, or an
// object wrapping that array under "data" or "students".
func DecodeJSON(r io.Reader) ([]model.StudentRecord, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding roster JSON: %w", err)
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapped map[string]json.RawMessage
		if werr := json.Unmarshal(raw, &wrapped); werr != nil {
			return nil, fmt.Errorf("decoding roster JSON: %w", err)
		}
		inner, ok := wrapped["data"]
		if !ok {
			inner, ok = wrapped["students"]
		}
		if !ok {
			return nil, fmt.Errorf("decoding roster JSON: no student list found")
		}
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil, fmt.Errorf("decoding roster JSON: %w", err)
		}
	}

	students := make([]model.StudentRecord, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		s, err := resolve(item)
		if err != nil {
			return nil, fmt.Errorf("student %d: %w", i, err)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("student %d: %w %s", i, ErrDuplicateStudent, s.ID)
		}
		seen[s.ID] = true
		students = append(students, s)
	}
	return students, nil
}

func resolve(item map[string]any) (model.StudentRecord, error) {
	sid := field(item, "id")
	if sid == "" {
		return model.StudentRecord{}, fmt.Errorf("missing id")
	}
	status, err := parseStatus(field(item, "status"))
	if err != nil {
		return model.StudentRecord{}, err
	}
	return model.StudentRecord{
		ID:      sid,
		Name:    field(item, "name"),
		Class:   id.CanonicalClass(field(item, "class")),
		Section: id.CanonicalSection(field(item, "section")),
		Roll:    id.CanonicalRoll(field(item, "roll")),
		Status:  status,
	}, nil
}

func field(item map[string]any, logical string) string {
	for _, key := range aliases[logical] {
		v, ok := item[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		default:
			return fmt.Sprint(t)
		}
	}
	return ""
}

func parseStatus(s string) (model.StudentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active", "true", "1", "enrolled":
		return model.StatusActive, nil
	case "left", "inactive", "false", "0", "withdrawn":
		return model.StatusLeft, nil
	default:
		return "", fmt.Errorf("unknown student status %q", s)
	}
}
