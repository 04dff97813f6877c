// Package mip solves small linear programs over binary variables.
package mip

import (
	"context"
	"errors"
	"fmt"
)

type Sense int

const (
	Maximize Sense = iota
	Minimize
)

type Op int

const (
	LE Op = iota
	EQ
	GE
)

func (o Op) String() string {
	switch o {
	case LE:
		return "<="
	case EQ:
		return "="
	case GE:
		return ">="
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

type Status int

const (
	NotSolved Status = iota
	Optimal
	Feasible
	Infeasible
	Unbounded
)

func (s Status) String() string {
	switch s {
	case NotSolved:
		return "not solved"
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Solved reports whether the solution carries a usable assignment.
func (s Status) Solved() bool {
	return s == Optimal || s == Feasible
}

var ErrEmptyModel = errors.New("model has no variables")

type Var struct {
	Name string
	Obj  float64
}

type Term struct {
	Var   int
	Coeff float64
}

type Constraint struct {
	Name  string
	Terms []Term
	Op    Op
	RHS   float64
}

// Model is a linear objective over binary variables with linear constraints.
type Model struct {
	Name        string
	Sense       Sense
	Vars        []Var
	Constraints []Constraint
}

func NewModel(name string, sense Sense) *Model {
	return &Model{Name: name, Sense: sense}
}

// AddVar adds a binary variable and returns its index.
func (m *Model) AddVar(name string, obj float64) int {
	m.Vars = append(m.Vars, Var{Name: name, Obj: obj})
	return len(m.Vars) - 1
}

func (m *Model) AddConstraint(name string, terms []Term, op Op, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: terms, Op: op, RHS: rhs})
}

func (m *Model) Validate() error {
	if len(m.Vars) == 0 {
		return ErrEmptyModel
	}
	for _, c := range m.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(m.Vars) {
				return fmt.Errorf("constraint %s: variable %d out of range", c.Name, t.Var)
			}
		}
	}
	return nil
}

// Objective evaluates the objective at values.
func (m *Model) Objective(values []float64) float64 {
	total := 0.0
	for i, v := range m.Vars {
		total += v.Obj * values[i]
	}
	return total
}

// Satisfied reports whether values meet every constraint within tol.
func (m *Model) Satisfied(values []float64, tol float64) bool {
	for _, c := range m.Constraints {
		lhs := 0.0
		for _, t := range c.Terms {
			lhs += t.Coeff * values[t.Var]
		}
		switch c.Op {
		case LE:
			if lhs > c.RHS+tol {
				return false
			}
		case GE:
			if lhs < c.RHS-tol {
				return false
			}
		case EQ:
			if lhs > c.RHS+tol || lhs < c.RHS-tol {
				return false
			}
		}
	}
	return true
}

type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
	Nodes     int
}

// Selected returns the indices of variables set to one.
func (s *Solution) Selected() []int {
	var out []int
	for i, v := range s.Values {
		if v > 0.5 {
			out = append(out, i)
		}
	}
	return out
}

type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}
