package services

import (
	"fmt"

	"network-design-service/internal/domain"
	"network-design-service/internal/ports"
)

// Capacity operating modes. Fixed: an installed facility operates at its
// installed tier in every period of every scenario. Flexible: each period of
// each scenario independently picks an operating tier at or below the
// installed one.
const (
	ModeFixedCapacity = "fixed-capacity"
	ModeFlexCapacity  = "flex-capacity"
)

// capacityMode localizes everything that differs between the two modes:
// which variables carry operating cost, which side the capacity constraint
// reads, and which extra constraints exist.
type capacityMode interface {
	Name() string

	// NeedsTierVars reports whether per-period tier variables (Z) exist.
	NeedsTierVars() bool

	// OperatingTerms yields the objective terms for one facility's operating
	// cost in one period of one scenario (before scenario averaging).
	OperatingTerms(m *SAAModel, f *domain.Facility, t int, n string) []ports.Term

	// CapacityTerms yields the available-capacity side of the capacity
	// constraint for one facility/period/scenario.
	CapacityTerms(m *SAAModel, f *domain.Facility, t int, n string) []ports.Term

	// AddModeConstraints installs mode-specific structural constraints.
	AddModeConstraints(m *SAAModel) error
}

func newCapacityMode(mode string) (capacityMode, error) {
	switch mode {
	case ModeFixedCapacity:
		return fixedCapacity{}, nil
	case ModeFlexCapacity:
		return flexCapacity{}, nil
	default:
		return nil, fmt.Errorf("unknown capacity mode %q", mode)
	}
}

type fixedCapacity struct{}

func (fixedCapacity) Name() string        { return ModeFixedCapacity }
func (fixedCapacity) NeedsTierVars() bool { return false }

func (fixedCapacity) OperatingTerms(m *SAAModel, f *domain.Facility, t int, _ string) []ports.Term {
	terms := make([]ports.Term, 0, len(f.Capacity))
	for _, q := range m.tierIDs[f.ID] {
		terms = append(terms, ports.Term{
			Var:  m.yVars[yKey{Facility: f.ID, Tier: q}],
			Coef: f.OperatingCost(q, t),
		})
	}
	return terms
}

func (fixedCapacity) CapacityTerms(m *SAAModel, f *domain.Facility, _ int, _ string) []ports.Term {
	terms := make([]ports.Term, 0, len(f.Capacity))
	for _, q := range m.tierIDs[f.ID] {
		terms = append(terms, ports.Term{
			Var:  m.yVars[yKey{Facility: f.ID, Tier: q}],
			Coef: f.Capacity[q],
		})
	}
	return terms
}

func (fixedCapacity) AddModeConstraints(*SAAModel) error { return nil }

type flexCapacity struct{}

func (flexCapacity) Name() string        { return ModeFlexCapacity }
func (flexCapacity) NeedsTierVars() bool { return true }

func (flexCapacity) OperatingTerms(m *SAAModel, f *domain.Facility, t int, n string) []ports.Term {
	terms := make([]ports.Term, 0, len(f.Capacity))
	for _, q := range m.tierIDs[f.ID] {
		terms = append(terms, ports.Term{
			Var:  m.zVars[zKey{Facility: f.ID, Tier: q, Period: t, Scenario: n}],
			Coef: f.OperatingCost(q, t),
		})
	}
	return terms
}

func (flexCapacity) CapacityTerms(m *SAAModel, f *domain.Facility, t int, n string) []ports.Term {
	terms := make([]ports.Term, 0, len(f.Capacity))
	for _, q := range m.tierIDs[f.ID] {
		terms = append(terms, ports.Term{
			Var:  m.zVars[zKey{Facility: f.ID, Tier: q, Period: t, Scenario: n}],
			Coef: f.Capacity[q],
		})
	}
	return terms
}

// AddModeConstraints installs, per facility/period/scenario, the single
// operating tier choice and the rule that the operating tier never exceeds
// the installed tier (expressed through capacity comparison).
func (flexCapacity) AddModeConstraints(m *SAAModel) error {
	for _, i := range m.facilityIDs {
		f := m.facilities[i]
		for _, n := range m.scenarioIDs {
			for t := 0; t < m.periods; t++ {
				terms := make([]ports.Term, 0, len(f.Capacity))
				for _, q := range m.tierIDs[i] {
					terms = append(terms, ports.Term{
						Var:  m.zVars[zKey{Facility: i, Tier: q, Period: t, Scenario: n}],
						Coef: 1,
					})
				}
				name := fmt.Sprintf("R_Operating_i%s_t%d_n%s", i, t, n)
				if err := m.solver.AddConstraint(name, terms, ports.Equal, 1); err != nil {
					return err
				}

				for _, q := range m.tierIDs[i] {
					var above []ports.Term
					for _, p := range m.tierIDs[i] {
						if f.Capacity[p] > f.Capacity[q] {
							above = append(above, ports.Term{
								Var:  m.zVars[zKey{Facility: i, Tier: p, Period: t, Scenario: n}],
								Coef: 1,
							})
						}
					}
					if len(above) == 0 {
						continue
					}
					above = append(above, ports.Term{
						Var:  m.yVars[yKey{Facility: i, Tier: q}],
						Coef: 1,
					})
					name := fmt.Sprintf("R_activation_i%s_q%s_t%d_n%s", i, q, t, n)
					if err := m.solver.AddConstraint(name, above, ports.LessEqual, 1); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
