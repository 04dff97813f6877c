package mip

import (
	"context"
	"fmt"
	"math"

	"github.com/willauld/lpsimplex"
)

type Params struct {
	MaxNodes int     `yaml:"max_nodes" validate:"gt=0"`
	MaxIter  int     `yaml:"max_iter" validate:"gt=0"`
	Tol      float64 `yaml:"tol" validate:"gt=0"`
	IntTol   float64 `yaml:"int_tol" validate:"gt=0"`
	Bland    bool    `yaml:"bland"`
}

var DefaultParams = Params{
	MaxNodes: 200000,
	MaxIter:  10000,
	Tol:      1e-9,
	IntTol:   1e-6,
	Bland:    true,
}

// lpsimplex status codes
const (
	lpSuccess    = 0
	lpIterLimit  = 1
	lpInfeasible = 2
	lpUnbounded  = 3
)

// BranchAndBound is a depth-first branch and bound over binary variables.
// Each node fixes some variables, substitutes them into the constraints and
// bounds the rest with the LP relaxation.
type BranchAndBound struct {
	params Params
}

func NewBranchAndBound(params Params) *BranchAndBound {
	return &BranchAndBound{params: params}
}

type search struct {
	ctx    context.Context
	params Params
	m      *Model
	obj    []float64 // objective in maximization form
	fixed  []int8    // -1 free, 0 or 1 fixed

	nodes     int
	stopped   bool
	unbounded bool

	best      float64
	incumbent []float64
}

func (b *BranchAndBound) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	s := &search{
		ctx:    ctx,
		params: b.params,
		m:      m,
		obj:    make([]float64, len(m.Vars)),
		fixed:  make([]int8, len(m.Vars)),
		best:   math.Inf(-1),
	}
	for i, v := range m.Vars {
		s.obj[i] = v.Obj
		if m.Sense == Minimize {
			s.obj[i] = -v.Obj
		}
		s.fixed[i] = -1
	}

	if err := s.branch(); err != nil {
		return nil, err
	}

	sol := &Solution{Nodes: s.nodes}
	switch {
	case s.incumbent != nil && !s.stopped:
		sol.Status = Optimal
	case s.incumbent != nil:
		sol.Status = Feasible
	case s.unbounded:
		sol.Status = Unbounded
	case s.stopped:
		sol.Status = NotSolved
	default:
		sol.Status = Infeasible
	}
	if s.incumbent != nil {
		sol.Values = s.incumbent
		sol.Objective = m.Objective(s.incumbent)
	}
	return sol, nil
}

type lpRow struct {
	coeffs []float64
	rhs    float64
}

// reduce substitutes the fixed variables into the constraints. It returns the
// free variable indices and the LP rows over them, or ok=false when a
// constraint can no longer be met.
func (s *search) reduce() (free []int, ub, eq []lpRow, ok bool) {
	col := make(map[int]int)
	for i, f := range s.fixed {
		if f < 0 {
			col[i] = len(free)
			free = append(free, i)
		}
	}
	tol := s.params.IntTol

	for _, c := range s.m.Constraints {
		rhs := c.RHS
		row := make([]float64, len(free))
		nonzero := false
		for _, t := range c.Terms {
			switch s.fixed[t.Var] {
			case 1:
				rhs -= t.Coeff
			case -1:
				if t.Coeff != 0 {
					row[col[t.Var]] += t.Coeff
					nonzero = true
				}
			}
		}
		if !nonzero {
			switch c.Op {
			case LE:
				ok = rhs >= -tol
			case GE:
				ok = rhs <= tol
			case EQ:
				ok = math.Abs(rhs) <= tol
			}
			if !ok {
				return nil, nil, nil, false
			}
			continue
		}
		switch c.Op {
		case LE:
			ub = append(ub, lpRow{row, rhs})
		case GE:
			for k := range row {
				row[k] = -row[k]
			}
			ub = append(ub, lpRow{row, -rhs})
		case EQ:
			eq = append(eq, lpRow{row, rhs})
		}
	}

	// x <= 1 for every free variable not already capped by a row with
	// non-negative coefficients.
	capped := make([]bool, len(free))
	for _, rows := range [][]lpRow{ub, eq} {
		for _, r := range rows {
			nonneg := true
			for _, a := range r.coeffs {
				if a < 0 {
					nonneg = false
					break
				}
			}
			if !nonneg {
				continue
			}
			for k, a := range r.coeffs {
				if a > 0 && r.rhs/a <= 1+tol {
					capped[k] = true
				}
			}
		}
	}
	for k := range free {
		// lpsimplex needs at least one inequality row
		if !capped[k] || (k == 0 && len(ub) == 0) {
			row := make([]float64, len(free))
			row[k] = 1
			ub = append(ub, lpRow{row, 1})
		}
	}
	return free, ub, eq, true
}

func split(rows []lpRow) ([][]float64, []float64) {
	if len(rows) == 0 {
		return nil, nil
	}
	a := make([][]float64, len(rows))
	b := make([]float64, len(rows))
	for i, r := range rows {
		a[i] = r.coeffs
		b[i] = r.rhs
	}
	return a, b
}

func (s *search) relax(free []int, ub, eq []lpRow) ([]float64, int, error) {
	c := make([]float64, len(free))
	for k, i := range free {
		c[k] = -s.obj[i]
	}
	aub, bub := split(ub)
	aeq, beq := split(eq)
	res := lpsimplex.LPSimplex(c, aub, bub, aeq, beq, nil, nil, false, s.params.MaxIter, s.params.Tol, s.params.Bland)
	switch res.Status {
	case lpSuccess:
		if len(res.X) < len(free) {
			return nil, res.Status, fmt.Errorf("lp relaxation returned %d values for %d variables", len(res.X), len(free))
		}
		return res.X, res.Status, nil
	case lpInfeasible, lpUnbounded:
		return nil, res.Status, nil
	case lpIterLimit:
		return nil, res.Status, fmt.Errorf("lp relaxation hit the iteration limit (%d)", s.params.MaxIter)
	}
	return nil, res.Status, fmt.Errorf("lp relaxation failed with status %d", res.Status)
}

func (s *search) assignment(free []int, x []float64) []float64 {
	values := make([]float64, len(s.fixed))
	for i, f := range s.fixed {
		if f == 1 {
			values[i] = 1
		}
	}
	for k, i := range free {
		values[i] = math.Round(x[k])
	}
	return values
}

func (s *search) offer(values []float64) {
	if !s.m.Satisfied(values, s.params.IntTol) {
		return
	}
	v := 0.0
	for i, x := range values {
		v += s.obj[i] * x
	}
	if s.incumbent == nil || v > s.best {
		s.best = v
		s.incumbent = values
	}
}

func (s *search) branch() error {
	if s.nodes >= s.params.MaxNodes || s.ctx.Err() != nil {
		s.stopped = true
		return nil
	}
	s.nodes++

	free, ub, eq, ok := s.reduce()
	if !ok {
		return nil
	}
	if len(free) == 0 {
		s.offer(s.assignment(nil, nil))
		return nil
	}

	x, status, err := s.relax(free, ub, eq)
	if err != nil {
		return err
	}
	switch status {
	case lpInfeasible:
		return nil
	case lpUnbounded:
		s.unbounded = true
		return nil
	}

	bound := 0.0
	for i, f := range s.fixed {
		if f == 1 {
			bound += s.obj[i]
		}
	}
	for k, i := range free {
		bound += s.obj[i] * x[k]
	}
	if s.incumbent != nil && bound <= s.best+s.params.IntTol {
		return nil
	}

	pick := -1
	frac := 0.0
	for k := range free {
		f := math.Abs(x[k] - math.Round(x[k]))
		if f > s.params.IntTol && f > frac {
			pick, frac = k, f
		}
	}
	if pick < 0 {
		s.offer(s.assignment(free, x))
		return nil
	}

	v := free[pick]
	for _, val := range []int8{1, 0} {
		s.fixed[v] = val
		if err := s.branch(); err != nil {
			s.fixed[v] = -1
			return err
		}
	}
	s.fixed[v] = -1
	return nil
}
