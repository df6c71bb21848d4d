package articulated

import (
	"math"
)

type ClampState int

const (
	ClampInit ClampState = iota
	ClampEvaluate
	ClampConverged
	ClampIterationExhausted
)

func (c ClampState) String() string {
	switch c {
	case ClampInit:
		return "init"
	case ClampEvaluate:
		return "evaluate"
	case ClampConverged:
		return "converged"
	case ClampIterationExhausted:
		return "iteration-exhausted"
	}
	return "unknown"
}

// SolveStats describes the last CalculateJointForce call.
type SolveStats struct {
	State           ClampState
	Iterations      int
	InitialResidual float64
	FinalResidual   float64
	// RebuildStart is the lowest node index refactorized, or -1 when the
	// active set never changed.
	RebuildStart int
	Rebuilds     int
}

func (s *Skeleton) LastSolve() SolveStats { return s.stats }

// CalculateJointForce runs the clamp loop: evaluate the row accelerations,
// substitute through the tree, clamp and repack the active rows, and
// refactorize from the lowest node whose active set changed. It returns the
// residual of the first evaluation; hitting the iteration cap is not an error.
func (s *Skeleton) CalculateJointForce(jointInfo []JointInfo, bodies []BodyInfo, internalForces []Jacobian, rows []JacobianRow) float64 {
	assert(s.finalized, "CalculateJointForce before Finalize")

	stats := SolveStats{State: ClampInit, RebuildStart: -1}
	retAccel := s.calculateJointAccel(jointInfo, internalForces, rows)
	stats.InitialResidual = retAccel
	stats.State = ClampEvaluate

	jointAccel := retAccel
	for stats.Iterations < s.cfg.MaxIterations && jointAccel > s.cfg.Tolerance {
		s.solveForward()
		s.solveBackward()
		start := s.updateForces(jointInfo, internalForces, rows)
		if start < s.nodeCount {
			s.RebuildMassMatrix(start, jointInfo, rows)
			stats.Rebuilds++
			if stats.RebuildStart < 0 || start < stats.RebuildStart {
				stats.RebuildStart = start
			}
		}
		jointAccel = s.calculateJointAccel(jointInfo, internalForces, rows)
		stats.Iterations++
	}

	stats.FinalResidual = jointAccel
	if jointAccel <= s.cfg.Tolerance {
		stats.State = ClampConverged
	} else {
		stats.State = ClampIterationExhausted
	}
	s.stats = stats

	if l := s.Logger(); l.DebugEnabled() {
		l.Debugf("skeleton %d: %s after %d iterations, residual %.4g -> %.4g",
			s.id, stats.State, stats.Iterations, stats.InitialResidual, stats.FinalResidual)
	}
	return retAccel
}

// calculateJointAccel loads every node's joint residual for the sweeps and
// returns the largest row acceleration error. Rows whose implied force leaves
// its bounds are skipped; clamping handles those.
func (s *Skeleton) calculateJointAccel(jointInfo []JointInfo, internalForces []Jacobian, rows []JacobianRow) float64 {
	accNorm := 0.0
	for i := 0; i < s.nodeCount-1; i++ {
		node := s.nodesOrder[i]
		node.bodyForce.SetZero()
		node.jointForce.SetZero()

		info := s.jointInfoOf(node, jointInfo)
		y0 := internalForces[info.M0]
		y1 := internalForces[info.M1]
		for j := 0; j < node.dof; j++ {
			row := &rows[info.PairStart+node.activeRowIndex[j]]
			acc := row.Residual(y0, y1)
			force := row.Force + row.InvJMinvJt*acc
			node.jointForce[j] = -acc
			if !row.OutOfBounds(force) {
				accNorm = math.Max(accNorm, math.Abs(acc))
			}
		}
	}

	root := s.nodesOrder[s.nodeCount-1]
	root.bodyForce.SetZero()
	root.jointForce.SetZero()
	return accNorm
}

// updateForces applies the substituted corrections to the row forces,
// clamps them, folds the change into the internal forces and drops clamped
// rows from each node's active set. It returns the lowest index whose active
// set shrank, or the node count when none did.
func (s *Skeleton) updateForces(jointInfo []JointInfo, internalForces []Jacobian, rows []JacobianRow) int {
	start := s.nodeCount
	for i := 0; i < s.nodeCount-1; i++ {
		node := s.nodesOrder[i]
		info := s.jointInfoOf(node, jointInfo)

		var y0, y1 Jacobian
		dof := 0
		for j := 0; j < node.dof; j++ {
			k := node.activeRowIndex[j]
			row := &rows[info.PairStart+k]
			force, clamped := row.Clamp(node.jointForce[j] + row.Force)
			delta := force - row.Force
			row.Force = force
			y0.AddScaled(row.Jt.M0, delta)
			y1.AddScaled(row.Jt.M1, delta)

			node.activeRowIndex[dof] = k
			dof++
			if clamped {
				dof--
				start = min(start, i)
			}
		}
		node.dof = dof

		internalForces[info.M0].AddScaled(y0, 1)
		internalForces[info.M1].AddScaled(y1, 1)
	}
	return start
}

// SolveUnilaterals hands every joint row outside a node's active set to the
// general solver, root side first, and returns the largest residual it reports.
func (s *Skeleton) SolveUnilaterals(jointInfo []JointInfo, bodies []BodyInfo, internalForces []Jacobian, rows []JacobianRow) float64 {
	assert(s.finalized, "SolveUnilaterals before Finalize")
	if s.unilateral == nil {
		return 0
	}

	retAccel := 0.0
	for i := s.nodeCount - 2; i >= 0; i-- {
		node := s.nodesOrder[i]
		info := s.jointInfoOf(node, jointInfo)
		if node.dof >= info.PairCount {
			continue
		}
		inactive := node.inactiveRows(info.PairCount)
		accel := s.unilateral.SolveRows(*info, inactive, bodies, internalForces, rows)
		assert(accel >= 0, "negative residual from unilateral solver")
		retAccel = math.Max(retAccel, accel)
	}
	return retAccel
}

// inactiveRows lists the row offsets in [0, count) outside the active set.
func (n *Node) inactiveRows(count int) []int {
	m := 0
	for k := 0; k < count; k++ {
		if !n.isActive(k) {
			n.inactiveRowIndex[m] = k
			m++
		}
	}
	return n.inactiveRowIndex[:m]
}
