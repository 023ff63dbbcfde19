package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"classtrack/internal/adapters/rosterfile"
	domain "classtrack/internal/domain/student"
)

// Column aliases accepted in roster files.
var (
	idColumns   = []string{"id", "student id"}
	nameColumns = []string{"name", "student name", "student"}
	regColumns  = []string{"reg number", "regnumber", "reg no", "register number", "registration number", "roll no"}
)

// ErrMissingColumn is returned when a roster file lacks a required column.
var ErrMissingColumn = errors.New("roster file missing required column")

// RosterStore is the store surface needed by the roster import.
type RosterStore interface {
	List(ctx context.Context) (domain.Roster, error)
	Save(ctx context.Context, s domain.Student) error
	ReplaceAll(ctx context.Context, roster domain.Roster) error
}

// ImportRosterInput carries the uploaded file and import options.
// PRE: Filename ends in .csv or .xlsx; the first row is a header with name
// and registration-number columns.
// INVARIANT: A student matched by id or registration number keeps their id,
// so recorded absences stay attached.
type ImportRosterInput struct {
	Reader   io.Reader
	Filename string
	Replace  bool // drop students not in the file
	DryRun   bool
}

// ImportRosterResult holds aggregate counts and per-row errors.
type ImportRosterResult struct {
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Errors  []ImportRowError `json:"errors,omitempty"`
	DryRun  bool             `json:"dryRun"`
}

// ImportRowError describes a problem with one file row (1-based, header = 1).
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportRosterDeps holds dependencies for the roster import.
type ImportRosterDeps struct {
	RosterStore RosterStore
	GenerateID  func() string
}

// ExecuteImportRoster reads a class list and creates or updates students.
// POST: Rows with errors are skipped and reported; with Replace the stored
// roster becomes exactly the valid rows, in file order; DryRun writes nothing
func ExecuteImportRoster(ctx context.Context, input ImportRosterInput, deps ImportRosterDeps) (ImportRosterResult, error) {
	rows, err := rosterfile.ReadRows(input.Reader, input.Filename)
	if err != nil {
		return ImportRosterResult{}, err
	}
	header := rosterfile.NewHeader(rows[0])
	nameIdx, ok := header.Index(nameColumns...)
	if !ok {
		return ImportRosterResult{}, fmt.Errorf("%w: name", ErrMissingColumn)
	}
	regIdx, ok := header.Index(regColumns...)
	if !ok {
		return ImportRosterResult{}, fmt.Errorf("%w: reg number", ErrMissingColumn)
	}
	idIdx, hasID := header.Index(idColumns...)

	existing, err := deps.RosterStore.List(ctx)
	if err != nil {
		return ImportRosterResult{}, err
	}
	byID := make(map[string]domain.Student, len(existing))
	byReg := make(map[string]domain.Student, len(existing))
	for _, s := range existing {
		byID[s.ID] = s
		byReg[strings.ToUpper(s.RegNumber)] = s
	}

	result := ImportRosterResult{DryRun: input.DryRun}
	var imported domain.Roster
	seen := map[string]int{}
	seenReg := map[string]int{}

	for i, row := range rows[1:] {
		rowNum := i + 2
		result.Total++

		st := domain.Student{
			Name:      rosterfile.Cell(row, nameIdx),
			RegNumber: strings.ToUpper(rosterfile.Cell(row, regIdx)),
		}
		if hasID {
			st.ID = rosterfile.Cell(row, idIdx)
		}

		var found bool
		if st.ID != "" {
			_, found = byID[st.ID]
		} else if prev, ok := byReg[st.RegNumber]; ok && st.RegNumber != "" {
			st.ID, found = prev.ID, true
		} else {
			st.ID = deps.GenerateID()
		}

		if err := st.Validate(); err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: validationMessage(err)})
			continue
		}
		if first, dup := seen[st.ID]; dup {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: fmt.Sprintf("duplicate of row %d", first)})
			continue
		}
		if first, dup := seenReg[st.RegNumber]; dup {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: fmt.Sprintf("reg number repeats row %d", first)})
			continue
		}
		seen[st.ID] = rowNum
		seenReg[st.RegNumber] = rowNum

		if found {
			result.Updated++
		} else {
			result.Created++
		}
		imported = append(imported, st)
	}

	if input.DryRun {
		return result, nil
	}
	if input.Replace {
		if err := deps.RosterStore.ReplaceAll(ctx, imported); err != nil {
			return result, fmt.Errorf("replace roster: %w", err)
		}
	} else {
		for _, st := range imported {
			if err := deps.RosterStore.Save(ctx, st); err != nil {
				return result, fmt.Errorf("save student %s: %w", st.ID, err)
			}
		}
	}
	slog.Info("roster_imported", "file", input.Filename, "total", result.Total, "created", result.Created, "updated", result.Updated, "errors", len(result.Errors), "replace", input.Replace)
	return result, nil
}

// validationMessage turns validator errors into a short field list.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, strings.ToLower(fe.Field())+" is required")
		case "alphanum":
			parts = append(parts, strings.ToLower(fe.Field())+" must be letters and digits only")
		case "max":
			parts = append(parts, strings.ToLower(fe.Field())+" is too long")
		default:
			parts = append(parts, strings.ToLower(fe.Field())+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
