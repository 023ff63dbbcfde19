package student

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxNameLength bounds user-editable names.
const MaxNameLength = 100

// Domain errors
var (
	ErrNotFound    = errors.New("student not found")
	ErrDuplicateID = errors.New("duplicate student id in roster")
)

// Student is an immutable roster entry.
type Student struct {
	ID        string `json:"id" validate:"required,max=64"`
	Name      string `json:"name" validate:"required,max=100"`
	RegNumber string `json:"regNumber" validate:"required,alphanum,max=32"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks if the Student has valid data.
// PRE: Student struct is populated
// POST: Returns nil if valid, a validator.ValidationErrors otherwise
func (s Student) Validate() error {
	return validate.Struct(s)
}

// ShortReg returns the last three characters of the registration number,
// as printed in absence reports.
func (s Student) ShortReg() string {
	r := []rune(s.RegNumber)
	if len(r) <= 3 {
		return s.RegNumber
	}
	return string(r[len(r)-3:])
}

// Roster is the ordered class list. Order is significant: reports list
// absentees in roster order.
type Roster []Student

// Find returns the student with the given id.
// POST: returns ErrNotFound when no student matches
func (r Roster) Find(id string) (Student, error) {
	for _, s := range r {
		if s.ID == id {
			return s, nil
		}
	}
	return Student{}, ErrNotFound
}

// Filter returns the students whose name or registration number contains
// query, case-insensitively. An empty query returns the whole roster.
func (r Roster) Filter(query string) Roster {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return r
	}
	out := Roster{}
	for _, s := range r {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.RegNumber), q) {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks every student and rejects duplicate ids.
func (r Roster) Validate() error {
	seen := make(map[string]bool, len(r))
	for _, s := range r {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.ID] {
			return ErrDuplicateID
		}
		seen[s.ID] = true
	}
	return nil
}
