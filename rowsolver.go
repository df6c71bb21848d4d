package articulated

import (
	"math"
)

// UnilateralSolver is the general, non-tree constraint solver that takes the
// joint rows a skeleton leaves out of its active set. rowOffsets are relative
// to info.PairStart. It returns the largest residual acceleration it saw,
// which must not be negative.
type UnilateralSolver interface {
	SolveRows(info JointInfo, rowOffsets []int, bodies []BodyInfo, internalForces []Jacobian, rows []JacobianRow) float64
}

// SequentialRowSolver runs one projected Gauss-Seidel pass over the rows,
// updating each row force and the internal forces of both bodies in place.
type SequentialRowSolver struct{}

func (SequentialRowSolver) SolveRows(info JointInfo, rowOffsets []int, bodies []BodyInfo, internalForces []Jacobian, rows []JacobianRow) float64 {
	y0 := &internalForces[info.M0]
	y1 := &internalForces[info.M1]

	accNorm := 0.0
	for _, k := range rowOffsets {
		row := &rows[info.PairStart+k]
		acc := row.Residual(*y0, *y1)
		force, clamped := row.Clamp(row.Force + row.InvJMinvJt*acc)
		if !clamped {
			accNorm = math.Max(accNorm, math.Abs(acc))
		}

		delta := force - row.Force
		row.Force = force
		y0.AddScaled(row.Jt.M0, delta)
		y1.AddScaled(row.Jt.M1, delta)
	}
	return accNorm
}
