package ports

import (
	"context"
	"errors"

	"network-design-service/internal/domain"
)

// ErrRunNotFound reports a lookup for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Port: result sink for solved runs. The stored record carries the solver
// report and the flat variable assignment mapping; this is the only
// persisted-state contract the core assumes.
type RunStore interface {
	SaveRun(ctx context.Context, run *domain.SolveRun) error
	GetRun(ctx context.Context, id string) (*domain.SolveRun, error)
	ListRuns(ctx context.Context) ([]*domain.SolveRun, error)
}
