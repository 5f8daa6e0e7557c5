package ipet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Status is the outcome of a solve.
type Status string

const (
	// StatusOptimal means the integer optimum was found.
	StatusOptimal Status = "optimal"
	// StatusTimeout means the search hit its deadline or node budget;
	// Objective holds the best feasible integer bound found so far
	// and the result must be treated as inconclusive.
	StatusTimeout Status = "timeout"
	// StatusInfeasible means the model admits no execution, which for
	// a structurally valid CFG means no path reaches an exit.
	StatusInfeasible Status = "infeasible"
)

// ErrInfeasible is returned when the model has no feasible integer
// point.
var ErrInfeasible = errors.New("infeasible model")

// Options bounds the branch-and-bound search.
type Options struct {
	// Timeout caps wall-clock time; zero means 60s.
	Timeout time.Duration
	// MaxNodes caps explored branch-and-bound nodes; zero means 100000.
	MaxNodes int
}

// Solution is the result of solving an IPET model.
type Solution struct {
	Status    Status
	Objective uint64
	// Counts holds the per-block execution counts of the optimal (or
	// best incumbent) path. Nil when no incumbent was found.
	Counts []uint64
}

const intTol = 1e-6

// branch is an additional variable bound introduced by the search.
type branch struct {
	v     int
	bound float64
	upper bool // true: x_v ≤ bound, false: x_v ≥ bound
}

// Solve runs branch-and-bound over LP relaxations of the model.
// maximize selects WCET (true) or BCET (false) sense.
func Solve(ctx context.Context, m *Model, maximize bool, opts Options) (*Solution, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxNodes == 0 {
		opts.MaxNodes = 100000
	}
	deadline := time.Now().Add(opts.Timeout)

	root, err := solveRelaxation(m, maximize, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return &Solution{Status: StatusInfeasible}, ErrInfeasible
		}
		return nil, fmt.Errorf("lp relaxation: %w", err)
	}

	type node struct {
		branches []branch
	}

	var (
		incumbent    []float64
		incumbentObj float64
		haveInc      bool
	)
	better := func(a, b float64) bool {
		if maximize {
			return a > b+intTol
		}
		return a < b-intTol
	}

	stack := []node{{}}
	nodes := 0
	timedOut := false

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) || nodes >= opts.MaxNodes {
			timedOut = true
			break
		}
		nodes++

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var x []float64
		var obj float64
		if len(cur.branches) == 0 {
			x, obj = root.x, root.obj
		} else {
			rel, err := solveRelaxation(m, maximize, cur.branches)
			if err != nil {
				if errors.Is(err, lp.ErrInfeasible) {
					continue
				}
				return nil, fmt.Errorf("lp relaxation: %w", err)
			}
			x, obj = rel.x, rel.obj
		}

		// Bound: relaxation can only be worse than the incumbent in
		// the optimizing direction.
		if haveInc && !better(obj, incumbentObj) {
			continue
		}

		frac := mostFractional(x)
		if frac < 0 {
			// Integer feasible point.
			if !haveInc || better(obj, incumbentObj) {
				incumbent = append([]float64(nil), x...)
				incumbentObj = obj
				haveInc = true
			}
			continue
		}

		floor := math.Floor(x[frac])
		stack = append(stack,
			node{branches: append(append([]branch(nil), cur.branches...), branch{v: frac, bound: floor, upper: true})},
			node{branches: append(append([]branch(nil), cur.branches...), branch{v: frac, bound: floor + 1, upper: false})},
		)
	}

	if !haveInc {
		if timedOut {
			return &Solution{Status: StatusTimeout}, nil
		}
		return &Solution{Status: StatusInfeasible}, ErrInfeasible
	}

	sol := &Solution{
		Status:    StatusOptimal,
		Objective: uint64(math.Round(incumbentObj)),
		Counts:    make([]uint64, m.NumBlocks),
	}
	if timedOut {
		sol.Status = StatusTimeout
	}
	for b := 0; b < m.NumBlocks; b++ {
		sol.Counts[b] = uint64(math.Round(incumbent[b]))
	}
	return sol, nil
}

type relaxation struct {
	x   []float64
	obj float64
}

// solveRelaxation solves the LP relaxation of the model plus the
// given branching bounds. The general-form constraints are converted
// to standard form (Ax = b, x ≥ 0, b ≥ 0) with slack and surplus
// variables, then handed to the simplex method.
func solveRelaxation(m *Model, maximize bool, branches []branch) (*relaxation, error) {
	nVars := m.NumVars()

	// Collect ≤ constraints: model ones plus branching bounds.
	type leRow struct {
		coeffs map[int]float64
		rhs    float64
	}
	var les []leRow
	for _, c := range m.Le {
		les = append(les, leRow{coeffs: c.Coeffs, rhs: c.RHS})
	}
	for _, br := range branches {
		if br.upper {
			les = append(les, leRow{coeffs: map[int]float64{br.v: 1}, rhs: br.bound})
		} else {
			// x_v ≥ bound as -x_v ≤ -bound.
			les = append(les, leRow{coeffs: map[int]float64{br.v: -1}, rhs: -br.bound})
		}
	}

	rows := len(m.Eq) + len(les)
	cols := nVars + len(les)
	a := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)

	for i, c := range m.Eq {
		sign := 1.0
		if c.RHS < 0 {
			sign = -1
		}
		for v, coeff := range c.Coeffs {
			a.Set(i, v, sign*coeff)
		}
		b[i] = sign * c.RHS
	}
	for j, c := range les {
		i := len(m.Eq) + j
		if c.rhs >= 0 {
			for v, coeff := range c.coeffs {
				a.Set(i, v, coeff)
			}
			a.Set(i, nVars+j, 1) // slack
			b[i] = c.rhs
		} else {
			for v, coeff := range c.coeffs {
				a.Set(i, v, -coeff)
			}
			a.Set(i, nVars+j, -1) // surplus
			b[i] = -c.rhs
		}
	}

	c := make([]float64, cols)
	for v := 0; v < nVars; v++ {
		if maximize {
			c[v] = -m.Objective[v]
		} else {
			c[v] = m.Objective[v]
		}
	}

	optF, x, err := lp.Simplex(c, a, b, 1e-10, nil)
	if err != nil {
		return nil, err
	}
	obj := optF
	if maximize {
		obj = -optF
	}
	return &relaxation{x: x[:nVars], obj: obj}, nil
}

// mostFractional returns the index of the variable farthest from an
// integer value, or -1 if the point is integral.
func mostFractional(x []float64) int {
	best := -1
	bestDist := intTol
	for i, v := range x {
		f := v - math.Floor(v)
		dist := math.Min(f, 1-f)
		if dist > bestDist {
			bestDist = dist
			best = i
		}
	}
	return best
}
