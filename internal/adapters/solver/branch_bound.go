// Package solver provides the bundled MILP backend: an exact depth-first
// branch-and-bound over 0/1 variables. It keeps the service self-contained;
// the model builder only ever sees the MILPSolver port, so a commercial
// solver binding can replace this without touching the model.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"network-design-service/internal/ports"
)

type variable struct {
	name   string
	vt     ports.VarType
	lb, ub float64
}

type constraint struct {
	name  string
	terms []ports.Term
	sense ports.Sense
	rhs   float64
}

// BranchBound explores assignments in {0,1} per variable. Continuous
// variables are restricted to their bound endpoints; for the models built
// here every continuous variable is a [0,1] assignment fraction whose
// optimum lies at an endpoint, so the restriction loses nothing.
type BranchBound struct {
	vars []variable
	cons []constraint

	objTerms []ports.Term
	objConst float64

	timeLimit time.Duration

	// Per-variable summed objective coefficient and constraint incidence.
	objCoef  []float64
	incident [][]incidence

	best      []float64
	bestCost  float64
	hasBest   bool
	nodeCount int64
	deadline  time.Time
	ctx       context.Context
}

type incidence struct {
	con  int
	coef float64
}

const feasEps = 1e-6

func New() *BranchBound {
	return &BranchBound{bestCost: math.Inf(1)}
}

func (b *BranchBound) AddVariable(name string, vt ports.VarType, lb, ub float64) ports.Var {
	b.vars = append(b.vars, variable{name: name, vt: vt, lb: lb, ub: ub})
	return ports.Var(len(b.vars) - 1)
}

func (b *BranchBound) AddConstraint(name string, terms []ports.Term, sense ports.Sense, rhs float64) error {
	for _, t := range terms {
		if int(t.Var) < 0 || int(t.Var) >= len(b.vars) {
			return fmt.Errorf("branch bound: constraint %q references unknown variable %d", name, t.Var)
		}
	}
	b.cons = append(b.cons, constraint{name: name, terms: terms, sense: sense, rhs: rhs})
	return nil
}

func (b *BranchBound) SetObjective(terms []ports.Term, constant float64) {
	b.objTerms = terms
	b.objConst = constant
}

func (b *BranchBound) SetParam(name string, value float64) error {
	switch name {
	case "TimeLimit":
		if value <= 0 {
			return fmt.Errorf("branch bound: non-positive TimeLimit %v", value)
		}
		b.timeLimit = time.Duration(value * float64(time.Second))
		return nil
	default:
		return fmt.Errorf("branch bound: unknown parameter %q", name)
	}
}

// Value returns a variable's value in the incumbent assignment.
func (b *BranchBound) Value(v ports.Var) float64 {
	if !b.hasBest || int(v) >= len(b.best) {
		return 0
	}
	return b.best[int(v)]
}

var errSearchStopped = errors.New("search stopped")

func (b *BranchBound) Optimize(ctx context.Context) (ports.SolveResult, error) {
	start := time.Now()

	b.objCoef = make([]float64, len(b.vars))
	for _, t := range b.objTerms {
		b.objCoef[int(t.Var)] += t.Coef
	}
	b.incident = make([][]incidence, len(b.vars))
	for ci, c := range b.cons {
		for _, t := range c.terms {
			v := int(t.Var)
			b.incident[v] = append(b.incident[v], incidence{con: ci, coef: t.Coef})
		}
	}

	// Per-constraint activity of assigned variables plus the min/max the
	// unassigned ones can still contribute.
	activity := make([]float64, len(b.cons))
	remMin := make([]float64, len(b.cons))
	remMax := make([]float64, len(b.cons))
	for ci, c := range b.cons {
		for _, t := range c.terms {
			lo, hi := contributionRange(t.Coef, b.vars[int(t.Var)])
			remMin[ci] += lo
			remMax[ci] += hi
		}
	}

	b.ctx = ctx
	b.deadline = time.Time{}
	if b.timeLimit > 0 {
		b.deadline = start.Add(b.timeLimit)
	}
	b.hasBest = false
	b.bestCost = math.Inf(1)
	b.nodeCount = 0

	assign := make([]float64, len(b.vars))
	err := b.search(0, b.objConst, assign, activity, remMin, remMax)
	stopped := errors.Is(err, errSearchStopped)
	if err != nil && !stopped {
		return ports.SolveResult{}, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ports.SolveResult{}, fmt.Errorf("branch bound: %w", ctxErr)
	}
	if !b.hasBest {
		if stopped {
			return ports.SolveResult{}, errors.New("branch bound: time limit reached with no feasible solution")
		}
		return ports.SolveResult{}, errors.New("branch bound: model is infeasible")
	}

	res := ports.SolveResult{
		Objective: b.bestCost,
		Runtime:   time.Since(start),
	}
	if stopped {
		res.Status = ports.StatusTimeLimit
		res.BestBound = b.rootBound()
		if denom := math.Abs(res.Objective); denom > feasEps {
			res.Gap = (res.Objective - res.BestBound) / denom
		}
	} else {
		// Exhaustive search: the incumbent is proven optimal.
		res.Status = ports.StatusOptimal
		res.BestBound = res.Objective
		res.Gap = 0
	}
	return res, nil
}

// search branches on variable idx. cost is the objective of the assigned
// prefix. The remMin/remMax arrays are restored before returning.
func (b *BranchBound) search(idx int, cost float64, assign, activity, remMin, remMax []float64) error {
	b.nodeCount++
	if b.nodeCount%1024 == 0 {
		if err := b.ctx.Err(); err != nil {
			return errSearchStopped
		}
		if !b.deadline.IsZero() && time.Now().After(b.deadline) {
			return errSearchStopped
		}
	}

	// Cost bound: the unassigned suffix can lower the objective by at most
	// the sum of its negative coefficients.
	bound := cost
	for v := idx; v < len(b.vars); v++ {
		if c := b.objCoef[v]; c < 0 {
			bound += c
		}
	}
	if b.hasBest && bound >= b.bestCost-feasEps {
		return nil
	}

	if idx == len(b.vars) {
		// Every constraint's remaining range is empty here, so the interval
		// checks below have already certified feasibility.
		if cost < b.bestCost {
			b.bestCost = cost
			if b.best == nil {
				b.best = make([]float64, len(assign))
			}
			copy(b.best, assign)
			b.hasBest = true
		}
		return nil
	}

	v := b.vars[idx]
	candidates := []float64{v.lb, v.ub}
	if v.ub == v.lb {
		candidates = candidates[:1]
	}

	for _, val := range candidates {
		assign[idx] = val

		feasible := true
		for _, inc := range b.incident[idx] {
			lo, hi := contributionRange(inc.coef, v)
			activity[inc.con] += inc.coef * val
			remMin[inc.con] -= lo
			remMax[inc.con] -= hi

			c := &b.cons[inc.con]
			switch c.sense {
			case ports.LessEqual:
				if activity[inc.con]+remMin[inc.con] > c.rhs+feasEps {
					feasible = false
				}
			case ports.GreaterEqual:
				if activity[inc.con]+remMax[inc.con] < c.rhs-feasEps {
					feasible = false
				}
			case ports.Equal:
				if activity[inc.con]+remMin[inc.con] > c.rhs+feasEps ||
					activity[inc.con]+remMax[inc.con] < c.rhs-feasEps {
					feasible = false
				}
			}
		}

		var err error
		if feasible {
			err = b.search(idx+1, cost+b.objCoef[idx]*val, assign, activity, remMin, remMax)
		}

		for _, inc := range b.incident[idx] {
			lo, hi := contributionRange(inc.coef, v)
			activity[inc.con] -= inc.coef * val
			remMin[inc.con] += lo
			remMax[inc.con] += hi
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// rootBound is a valid global lower bound: the objective constant plus every
// variable's cheapest achievable contribution.
func (b *BranchBound) rootBound() float64 {
	bound := b.objConst
	for v, c := range b.objCoef {
		bound += math.Min(c*b.vars[v].lb, c*b.vars[v].ub)
	}
	return bound
}

// contributionRange returns the min and max value coef*x can take for x in
// the variable's bounds.
func contributionRange(coef float64, v variable) (float64, float64) {
	a, z := coef*v.lb, coef*v.ub
	if a > z {
		a, z = z, a
	}
	return a, z
}
