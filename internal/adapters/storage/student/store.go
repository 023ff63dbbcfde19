package student

import (
	"context"

	domain "classtrack/internal/domain/student"
)

// Store persists the roster.
type Store interface {
	List(ctx context.Context) (domain.Roster, error)
	GetByID(ctx context.Context, id string) (domain.Student, error)
	Save(ctx context.Context, s domain.Student) error
	ReplaceAll(ctx context.Context, roster domain.Roster) error
	Count(ctx context.Context) (int, error)
}
