package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"network-design-service/internal/domain"
	"network-design-service/internal/ports"
)

// Variable index keys. Named fields fix the index order once; mixing up
// period and scenario cannot type-check silently.
type yKey struct {
	Facility string
	Tier     string
}

type zKey struct {
	Facility string
	Tier     string
	Period   int
	Scenario string
}

type xKey struct {
	Facility string
	Zone     string
	Period   int
	Scenario string
}

type wKey struct {
	Zone     string
	Period   int
	Scenario string
}

// SolveReport is the outcome of one optimization, with the rounding the
// result contract requires (three decimals on the headline figures, gap as a
// percentage).
type SolveReport struct {
	Status         string
	Objective      float64
	BestBound      float64
	GapPercent     float64
	RunTimeSeconds float64

	CostInstallation   float64
	CostOperating      float64
	CostFromFacilities float64
	CostFromDepot      float64

	Variables map[string]float64
}

// SAAModel assembles the sample-average-approximation facility-location MILP
// over a set of demand scenarios and delegates solving to an opaque backend.
//
// Decisions: Y installs a satellite at a tier, Z (flexible mode only) picks
// the operating tier per period and scenario, X routes a zone's demand
// through a satellite, W serves a zone directly from the depot.
type SAAModel struct {
	solver     ports.MILPSolver
	facilities map[string]*domain.Facility
	scenarios  map[string]*domain.Scenario
	periods    int
	mode       capacityMode

	// Continuous assignment relaxes X and W to [0,1] fractions.
	continuousAssignment bool

	facilityIDs []string
	scenarioIDs []string
	zoneIDs     []string
	tierIDs     map[string][]string

	yVars map[yKey]ports.Var
	zVars map[zKey]ports.Var
	xVars map[xKey]ports.Var
	wVars map[wKey]ports.Var

	installTerms   []ports.Term
	operatingTerms []ports.Term
	facilityTerms  []ports.Term
	depotTerms     []ports.Term

	built bool
}

// NewSAAModel wires a model over satellite facilities only; the depot serves
// through W, not through installation decisions. Passing a depot-flagged
// facility is a caller bug.
func NewSAAModel(
	solver ports.MILPSolver,
	facilities map[string]*domain.Facility,
	scenarios map[string]*domain.Scenario,
	periods int,
	mode string,
	continuousAssignment bool,
) (*SAAModel, error) {
	if solver == nil {
		return nil, errors.New("saa model: nil solver")
	}
	if len(scenarios) == 0 {
		return nil, errors.New("saa model: no scenarios")
	}
	if periods <= 0 {
		return nil, fmt.Errorf("saa model: non-positive period count %d", periods)
	}
	cm, err := newCapacityMode(mode)
	if err != nil {
		return nil, fmt.Errorf("saa model: %w", err)
	}
	for id, f := range facilities {
		if f.IsDepot {
			return nil, fmt.Errorf("saa model: facility %q is depot-flagged", id)
		}
		if err := f.Validate(periods); err != nil {
			return nil, fmt.Errorf("saa model: %w", err)
		}
	}
	m := &SAAModel{
		solver:               solver,
		facilities:           facilities,
		scenarios:            scenarios,
		periods:              periods,
		mode:                 cm,
		continuousAssignment: continuousAssignment,
		tierIDs:              make(map[string][]string),
		yVars:                make(map[yKey]ports.Var),
		zVars:                make(map[zKey]ports.Var),
		xVars:                make(map[xKey]ports.Var),
		wVars:                make(map[wKey]ports.Var),
	}
	m.index()
	return m, nil
}

// index fixes deterministic iteration orders over the input maps.
func (m *SAAModel) index() {
	for id := range m.facilities {
		m.facilityIDs = append(m.facilityIDs, id)
		tiers := make([]string, 0, len(m.facilities[id].Capacity))
		for q := range m.facilities[id].Capacity {
			tiers = append(tiers, q)
		}
		sort.Strings(tiers)
		m.tierIDs[id] = tiers
	}
	sort.Strings(m.facilityIDs)

	for id := range m.scenarios {
		m.scenarioIDs = append(m.scenarioIDs, id)
	}
	sort.Strings(m.scenarioIDs)

	// The zone universe is the union across scenarios; a zone absent from a
	// realization simply contributes no variables there.
	seen := make(map[string]bool)
	for _, s := range m.scenarios {
		for id := range s.Zones {
			if !seen[id] {
				seen[id] = true
				m.zoneIDs = append(m.zoneIDs, id)
			}
		}
	}
	sort.Strings(m.zoneIDs)
}

// Build creates all variables, the scenario-averaged objective and the full
// constraint set. It must be called exactly once before Solve.
func (m *SAAModel) Build() error {
	if m.built {
		return errors.New("saa model: already built")
	}
	m.built = true

	m.addVariables()
	if err := m.addObjective(); err != nil {
		return fmt.Errorf("saa model: objective: %w", err)
	}
	if err := m.addInstallationChoice(); err != nil {
		return fmt.Errorf("saa model: %w", err)
	}
	if err := m.mode.AddModeConstraints(m); err != nil {
		return fmt.Errorf("saa model: %w", err)
	}
	if err := m.addCapacity(); err != nil {
		return fmt.Errorf("saa model: %w", err)
	}
	if err := m.addCoverage(); err != nil {
		return fmt.Errorf("saa model: %w", err)
	}

	log.Info().
		Str("mode", m.mode.Name()).
		Int("facilities", len(m.facilityIDs)).
		Int("scenarios", len(m.scenarioIDs)).
		Int("periods", m.periods).
		Bool("continuous_assignment", m.continuousAssignment).
		Msg("saa model built")
	return nil
}

func (m *SAAModel) addVariables() {
	assignType := ports.Binary
	if m.continuousAssignment {
		assignType = ports.Continuous
	}

	for _, i := range m.facilityIDs {
		for _, q := range m.tierIDs[i] {
			name := fmt.Sprintf("Y_i%s_q%s", i, q)
			m.yVars[yKey{Facility: i, Tier: q}] = m.solver.AddVariable(name, ports.Binary, 0, 1)
		}
	}

	if m.mode.NeedsTierVars() {
		for _, i := range m.facilityIDs {
			for _, q := range m.tierIDs[i] {
				for _, n := range m.scenarioIDs {
					for t := 0; t < m.periods; t++ {
						name := fmt.Sprintf("Z_i%s_q%s_t%d_n%s", i, q, t, n)
						m.zVars[zKey{Facility: i, Tier: q, Period: t, Scenario: n}] =
							m.solver.AddVariable(name, ports.Binary, 0, 1)
					}
				}
			}
		}
	}

	for _, n := range m.scenarioIDs {
		for _, k := range m.scenarioZones(n) {
			for t := 0; t < m.periods; t++ {
				for _, i := range m.facilityIDs {
					name := fmt.Sprintf("X_i%s_k%s_t%d_n%s", i, k, t, n)
					m.xVars[xKey{Facility: i, Zone: k, Period: t, Scenario: n}] =
						m.solver.AddVariable(name, assignType, 0, 1)
				}
				name := fmt.Sprintf("W_k%s_t%d_n%s", k, t, n)
				m.wVars[wKey{Zone: k, Period: t, Scenario: n}] =
					m.solver.AddVariable(name, assignType, 0, 1)
			}
		}
	}
}

// scenarioZones returns the sorted ids of the zones present in a scenario.
func (m *SAAModel) scenarioZones(n string) []string {
	s := m.scenarios[n]
	out := make([]string, 0, len(s.Zones))
	for _, k := range m.zoneIDs {
		if _, ok := s.Zones[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// addObjective builds the four cost components. Installation cost counts
// once; the recourse components are averaged over the scenario sample.
// CA-derived serving coefficients are rounded to integers before weighting.
func (m *SAAModel) addObjective() error {
	invN := 1.0 / float64(len(m.scenarioIDs))

	for _, i := range m.facilityIDs {
		f := m.facilities[i]
		for _, q := range m.tierIDs[i] {
			m.installTerms = append(m.installTerms, ports.Term{
				Var:  m.yVars[yKey{Facility: i, Tier: q}],
				Coef: f.CostInstallation[q],
			})
		}
	}

	for _, n := range m.scenarioIDs {
		s := m.scenarios[n]
		for _, i := range m.facilityIDs {
			f := m.facilities[i]
			for t := 0; t < m.periods; t++ {
				for _, term := range m.mode.OperatingTerms(m, f, t, n) {
					term.Coef *= invN
					m.operatingTerms = append(m.operatingTerms, term)
				}
			}
		}

		for _, k := range m.scenarioZones(n) {
			zone := s.Zones[k]
			for t := 0; t < m.periods; t++ {
				for _, i := range m.facilityIDs {
					cost, ok := s.ServingCost(domain.FacilityZonePeriod{Facility: i, Zone: k, Period: t})
					if !ok {
						if zone.Demand(t) > 0 {
							return fmt.Errorf("no serving cost for facility %q zone %q period %d scenario %s",
								i, k, t, n)
						}
						continue
					}
					m.facilityTerms = append(m.facilityTerms, ports.Term{
						Var:  m.xVars[xKey{Facility: i, Zone: k, Period: t, Scenario: n}],
						Coef: math.Round(cost) * invN,
					})
				}

				cost, ok := s.DepotServingCost(domain.ZonePeriod{Zone: k, Period: t})
				if !ok {
					if zone.Demand(t) > 0 {
						return fmt.Errorf("no depot serving cost for zone %q period %d scenario %s", k, t, n)
					}
					continue
				}
				m.depotTerms = append(m.depotTerms, ports.Term{
					Var:  m.wVars[wKey{Zone: k, Period: t, Scenario: n}],
					Coef: math.Round(cost) * invN,
				})
			}
		}
	}

	var all []ports.Term
	all = append(all, m.installTerms...)
	all = append(all, m.operatingTerms...)
	all = append(all, m.facilityTerms...)
	all = append(all, m.depotTerms...)
	m.solver.SetObjective(all, 0)
	return nil
}

// addInstallationChoice: every satellite settles on exactly one tier (a
// zero-capacity tier encodes "not installed").
func (m *SAAModel) addInstallationChoice() error {
	for _, i := range m.facilityIDs {
		terms := make([]ports.Term, 0, len(m.tierIDs[i]))
		for _, q := range m.tierIDs[i] {
			terms = append(terms, ports.Term{Var: m.yVars[yKey{Facility: i, Tier: q}], Coef: 1})
		}
		name := fmt.Sprintf("R_Open_i%s", i)
		if err := m.solver.AddConstraint(name, terms, ports.Equal, 1); err != nil {
			return err
		}
	}
	return nil
}

// addCapacity: per satellite/period/scenario the assigned fleet requirement
// (rounded to one decimal per zone) stays within the tier capacity the mode
// makes available.
func (m *SAAModel) addCapacity() error {
	for _, n := range m.scenarioIDs {
		s := m.scenarios[n]
		for _, i := range m.facilityIDs {
			f := m.facilities[i]
			for t := 0; t < m.periods; t++ {
				var terms []ports.Term
				for _, k := range m.scenarioZones(n) {
					fleet, ok := s.FleetSize(domain.FacilityZonePeriod{Facility: i, Zone: k, Period: t})
					if !ok {
						continue
					}
					terms = append(terms, ports.Term{
						Var:  m.xVars[xKey{Facility: i, Zone: k, Period: t, Scenario: n}],
						Coef: round1(fleet),
					})
				}
				for _, term := range m.mode.CapacityTerms(m, f, t, n) {
					term.Coef = -term.Coef
					terms = append(terms, term)
				}
				name := fmt.Sprintf("R_capacity_i%s_t%d_n%s", i, t, n)
				if err := m.solver.AddConstraint(name, terms, ports.LessEqual, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addCoverage: every zone in every period of every scenario is served, by
// some satellite or by the depot.
func (m *SAAModel) addCoverage() error {
	for _, n := range m.scenarioIDs {
		for _, k := range m.scenarioZones(n) {
			for t := 0; t < m.periods; t++ {
				terms := make([]ports.Term, 0, len(m.facilityIDs)+1)
				for _, i := range m.facilityIDs {
					terms = append(terms, ports.Term{
						Var:  m.xVars[xKey{Facility: i, Zone: k, Period: t, Scenario: n}],
						Coef: 1,
					})
				}
				terms = append(terms, ports.Term{
					Var:  m.wVars[wKey{Zone: k, Period: t, Scenario: n}],
					Coef: 1,
				})
				name := fmt.Sprintf("R_demand_k%s_t%d_n%s", k, t, n)
				if err := m.solver.AddConstraint(name, terms, ports.GreaterEqual, 1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// SetParams forwards solver tuning parameters.
func (m *SAAModel) SetParams(params map[string]float64) error {
	for name, value := range params {
		if err := m.solver.SetParam(name, value); err != nil {
			return fmt.Errorf("saa model: %w", err)
		}
	}
	return nil
}

// Solve runs the backend and assembles the rounded report with the objective
// component breakdown and the full variable assignment.
func (m *SAAModel) Solve(ctx context.Context) (*SolveReport, error) {
	if !m.built {
		return nil, errors.New("saa model: solve before build")
	}
	res, err := m.solver.Optimize(ctx)
	if err != nil {
		return nil, fmt.Errorf("saa model: optimize: %w", err)
	}

	report := &SolveReport{
		Status:             res.Status,
		Objective:          round3(res.Objective),
		BestBound:          round3(res.BestBound),
		GapPercent:         round3(res.Gap * 100),
		RunTimeSeconds:     round3(res.Runtime.Seconds()),
		CostInstallation:   round3(m.evalTerms(m.installTerms)),
		CostOperating:      round3(m.evalTerms(m.operatingTerms)),
		CostFromFacilities: round3(m.evalTerms(m.facilityTerms)),
		CostFromDepot:      round3(m.evalTerms(m.depotTerms)),
		Variables:          m.variableValues(),
	}
	return report, nil
}

func (m *SAAModel) evalTerms(terms []ports.Term) float64 {
	total := 0.0
	for _, term := range terms {
		total += term.Coef * m.solver.Value(term.Var)
	}
	return total
}

// variableValues flattens every decision variable into the name -> value map
// the result sink persists.
func (m *SAAModel) variableValues() map[string]float64 {
	out := make(map[string]float64, len(m.yVars)+len(m.zVars)+len(m.xVars)+len(m.wVars))
	for k, v := range m.yVars {
		out[fmt.Sprintf("Y_i%s_q%s", k.Facility, k.Tier)] = m.solver.Value(v)
	}
	for k, v := range m.zVars {
		out[fmt.Sprintf("Z_i%s_q%s_t%d_n%s", k.Facility, k.Tier, k.Period, k.Scenario)] = m.solver.Value(v)
	}
	for k, v := range m.xVars {
		out[fmt.Sprintf("X_i%s_k%s_t%d_n%s", k.Facility, k.Zone, k.Period, k.Scenario)] = m.solver.Value(v)
	}
	for k, v := range m.wVars {
		out[fmt.Sprintf("W_k%s_t%d_n%s", k.Zone, k.Period, k.Scenario)] = m.solver.Value(v)
	}
	return out
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
