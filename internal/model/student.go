package model

// StudentStatus is the enrolment state reported by the roster.
type StudentStatus string

const (
	StatusActive StudentStatus = "active"
	StatusLeft   StudentStatus = "left"
)

// StudentRecord is one row of a roster snapshot. Class, Section and Roll are
// stored in canonical form (see id.CanonicalClass and friends).
type StudentRecord struct {
	ID      string
	Name    string
	Class   string
	Section string
	Roll    string
	Status  StudentStatus
}

// Active reports whether the student is still enrolled.
func (s StudentRecord) Active() bool {
	return s.Status != StatusLeft
}
