package projections

import (
	"context"

	domainStudent "classtrack/internal/domain/student"
)

// GetRosterQuery carries query parameters.
type GetRosterQuery struct {
	Search string
}

// GetRosterDeps holds dependencies for GetRoster.
type GetRosterDeps struct {
	RosterStore RosterStore
}

// QueryGetRoster lists students, optionally filtered by a name or
// registration-number substring.
// POST: Returns students in roster order
func QueryGetRoster(ctx context.Context, query GetRosterQuery, deps GetRosterDeps) (domainStudent.Roster, error) {
	roster, err := deps.RosterStore.List(ctx)
	if err != nil {
		return nil, err
	}
	return roster.Filter(query.Search), nil
}
