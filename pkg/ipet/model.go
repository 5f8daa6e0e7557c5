// Package ipet computes worst- and best-case execution time bounds by
// implicit path enumeration: per-block and per-edge execution counts
// become integer variables, flow conservation and loop bounds become
// linear constraints, and the bound is the optimum of a cycle-weighted
// objective solved by branch-and-bound over LP relaxations.
package ipet

import (
	"github.com/vertexclique/lale/pkg/cfg"
	"github.com/vertexclique/lale/pkg/loops"
	"github.com/vertexclique/lale/pkg/platform"
)

// Constraint is a sparse linear constraint Σ coeff·x ⋈ RHS.
type Constraint struct {
	Coeffs map[int]float64
	RHS    float64
}

// Model is the ILP over block and edge execution counts. Variables
// 0..NumBlocks-1 are block counts, NumBlocks..NumBlocks+NumEdges-1 are
// edge flows. All variables are non-negative integers.
type Model struct {
	NumBlocks int
	NumEdges  int
	// Objective holds per-variable cycle coefficients (edges are 0).
	Objective []float64
	// Eq are equality constraints, Le are ≤ constraints.
	Eq []Constraint
	Le []Constraint
}

// NumVars returns the total variable count.
func (m *Model) NumVars() int { return m.NumBlocks + m.NumEdges }

func (m *Model) edgeVar(edgeIdx int) int { return m.NumBlocks + edgeIdx }

// Build assembles the IPET model for one function. worst selects the
// worst-case objective coefficients; false builds the best-case
// (BCET) model over the same constraint set.
func Build(g *cfg.Graph, la *loops.Analysis, costs []platform.Cycles, worst bool) *Model {
	n := g.NumBlocks()
	m := &Model{
		NumBlocks: n,
		NumEdges:  len(g.Edges),
		Objective: make([]float64, n+len(g.Edges)),
	}

	for b := 0; b < n; b++ {
		if worst {
			m.Objective[b] = float64(costs[b].Worst)
		} else {
			m.Objective[b] = float64(costs[b].Best)
		}
	}

	// Incoming flow. The entry block receives one unit of virtual
	// source flow on top of any real in-edges (it may head a loop).
	for b := 0; b < n; b++ {
		coeffs := map[int]float64{b: 1}
		for i, e := range g.Edges {
			if e.To == b {
				coeffs[m.edgeVar(i)] -= 1
			}
		}
		rhs := 0.0
		if b == g.Entry {
			rhs = 1
		}
		// Non-entry blocks without in-edges are unreachable; the
		// constraint degenerates to x_b = 0.
		m.Eq = append(m.Eq, Constraint{Coeffs: coeffs, RHS: rhs})
	}

	// Outgoing flow for every block that has successors. Exit blocks
	// have none; their counts drain through the exit closure.
	for b := 0; b < n; b++ {
		if len(g.Succs(b)) == 0 {
			continue
		}
		coeffs := map[int]float64{b: 1}
		for i, e := range g.Edges {
			if e.From == b {
				coeffs[m.edgeVar(i)] -= 1
			}
		}
		m.Eq = append(m.Eq, Constraint{Coeffs: coeffs, RHS: 0})
	}

	// Exit closure: exactly one exit is taken. A function with no
	// exits makes this 0 = 1, surfacing as infeasibility.
	closure := Constraint{Coeffs: map[int]float64{}, RHS: 1}
	for _, e := range g.Exits {
		closure.Coeffs[e] = 1
	}
	m.Eq = append(m.Eq, closure)

	// Loop bounds: back-edge flow ≤ bound · entry-edge flow. Nested
	// loops compose through the entry flow of the inner loop.
	for i := range la.Loops {
		l := &la.Loops[i]
		coeffs := map[int]float64{}
		for ei, e := range g.Edges {
			if isBackEdge(l, e) {
				coeffs[m.edgeVar(ei)] += 1
			}
		}
		for ei, e := range g.Edges {
			if e.To == l.Header && !l.Body[e.From] {
				coeffs[m.edgeVar(ei)] -= float64(l.Bound)
			}
		}
		if len(coeffs) > 0 {
			m.Le = append(m.Le, Constraint{Coeffs: coeffs, RHS: 0})
		}
	}

	return m
}

func isBackEdge(l *loops.Loop, e cfg.Edge) bool {
	for _, be := range l.BackEdges {
		if be.From == e.From && be.To == e.To {
			return true
		}
	}
	return false
}
