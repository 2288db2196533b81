package ports

import (
	"context"
	"time"
)

// Variable and constraint vocabulary for the opaque MILP solver boundary.
// The model builder speaks only this surface; concrete backends (the bundled
// branch-and-bound, or a commercial solver binding) stay swappable.

type VarType int

const (
	Binary VarType = iota
	Continuous
)

type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

// Var is an opaque variable handle issued by AddVariable.
type Var int

// Term is one coefficient*variable entry of a linear expression.
type Term struct {
	Var  Var
	Coef float64
}

// Solve termination classification. A time-limited, sub-optimal finish is a
// legitimate outcome, not an error.
const (
	StatusOptimal   = "optimal"
	StatusTimeLimit = "time_limit"
)

type SolveResult struct {
	Status    string
	Objective float64
	BestBound float64
	// Relative optimality gap as a fraction (0.01 == 1%).
	Gap     float64
	Runtime time.Duration
}

// MILPSolver is the abstract optimization capability. Construction calls
// (AddVariable, AddConstraint, SetObjective, SetParam) must precede Optimize;
// Value is valid only after a successful Optimize.
type MILPSolver interface {
	AddVariable(name string, vt VarType, lb, ub float64) Var
	AddConstraint(name string, terms []Term, sense Sense, rhs float64) error
	// SetObjective sets the expression to minimize.
	SetObjective(terms []Term, constant float64)
	// SetParam forwards a named tuning option (e.g. "TimeLimit" in seconds).
	// Unknown names or invalid values are errors.
	SetParam(name string, value float64) error
	Optimize(ctx context.Context) (SolveResult, error)
	Value(v Var) float64
}
