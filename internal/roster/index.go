package roster

import (
	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/model"
)

// Index is a read-only lookup over a roster snapshot. All keys are stored
// in canonical form so lookups are exact string matches.
type Index struct {
	classes         map[string]struct{}
	sections        map[string]struct{}
	rolls           map[string]struct{}
	sectionsByClass map[string]map[string]struct{}
	students        map[string]model.StudentRecord // composite key -> record
	shared          map[string][]string            // composite key -> ids, when more than one
}

// Build indexes a roster snapshot. The records' class, section and roll are
// canonicalized again so callers may pass raw API data.
func Build(roster []model.StudentRecord) *Index {
	idx := &Index{
		classes:         make(map[string]struct{}),
		sections:        make(map[string]struct{}),
		rolls:           make(map[string]struct{}),
		sectionsByClass: make(map[string]map[string]struct{}),
		students:        make(map[string]model.StudentRecord, len(roster)),
		shared:          make(map[string][]string),
	}
	for _, s := range roster {
		class := id.CanonicalClass(s.Class)
		section := id.CanonicalSection(s.Section)
		roll := id.CanonicalRoll(s.Roll)

		if class != "" {
			idx.classes[class] = struct{}{}
		}
		if section != "" {
			idx.sections[section] = struct{}{}
		}
		if roll != "" {
			idx.rolls[roll] = struct{}{}
		}
		if class != "" && section != "" {
			if idx.sectionsByClass[class] == nil {
				idx.sectionsByClass[class] = make(map[string]struct{})
			}
			idx.sectionsByClass[class][section] = struct{}{}
		}

		s.Class, s.Section, s.Roll = class, section, roll
		key := id.CompositeKey(class, section, roll)
		if prev, ok := idx.students[key]; ok && prev.ID != s.ID {
			if len(idx.shared[key]) == 0 {
				idx.shared[key] = []string{prev.ID}
			}
			idx.shared[key] = append(idx.shared[key], s.ID)
			continue
		}
		idx.students[key] = s
	}
	return idx
}

// HasClass reports whether any student is in class.
func (x *Index) HasClass(class string) bool {
	_, ok := x.classes[class]
	return ok
}

// HasSection reports whether section is used by any class.
func (x *Index) HasSection(section string) bool {
	_, ok := x.sections[section]
	return ok
}

// ClassHasSection reports whether section is used by class.
func (x *Index) ClassHasSection(class, section string) bool {
	_, ok := x.sectionsByClass[class][section]
	return ok
}

// HasRoll reports whether any student has roll.
func (x *Index) HasRoll(roll string) bool {
	_, ok := x.rolls[roll]
	return ok
}

// HasStudent reports whether the exact class|section|roll exists.
func (x *Index) HasStudent(class, section, roll string) bool {
	_, ok := x.students[id.CompositeKey(class, section, roll)]
	return ok
}

// Ambiguous returns the ids of every student sharing class|section|roll
// when more than one does, in roster order. It returns nil for unique keys.
func (x *Index) Ambiguous(class, section, roll string) []string {
	return x.shared[id.CompositeKey(class, section, roll)]
}

// Student returns the roster record for a composite key. For an ambiguous
// key it returns the first student listed.
func (x *Index) Student(class, section, roll string) (model.StudentRecord, bool) {
	s, ok := x.students[id.CompositeKey(class, section, roll)]
	return s, ok
}

// Len returns the number of distinct students indexed.
func (x *Index) Len() int {
	return len(x.students)
}
