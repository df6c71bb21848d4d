package articulated

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gekko3d/articulated/spatial"
)

// pinned builds a dynamic body of the given mass jointed to a static anchor.
func pinned(mass float64, rows func(b, anchor *RigidBody) []JacobianRow) (*fixture, *Skeleton, *RigidBody) {
	f := newFixture()
	anchor := f.body("anchor", 0)
	b := f.body("b", mass)
	f.joint(b, anchor, rows(b, anchor)...)

	sk := f.skeleton(anchor, DefaultConfig())
	if err := sk.AddJointList(f.joints); err != nil {
		panic(err)
	}
	sk.Finalize()
	return f, sk, b
}

func TestSingleRootSkeleton(t *testing.T) {
	f := newFixture()
	root := f.body("root", 1)
	sk := f.skeleton(root, DefaultConfig())
	sk.Finalize()

	sk.InitMassMatrix(nil, f.forces, nil)
	require.Equal(t, 0.0, sk.CalculateJointForce(nil, f.bodyInfo, f.forces, nil))
	require.Equal(t, 0.0, sk.SolveUnilaterals(nil, f.bodyInfo, f.forces, nil))
	require.Equal(t, ClampConverged, sk.LastSolve().State)
	require.Equal(t, 0, sk.LastSolve().Iterations)
	require.Equal(t, Jacobian{}, f.forces[0])
}

func TestTwoBodyClosedForm(t *testing.T) {
	tests := []struct {
		name   string
		mass   float64
		target float64
	}{
		{"unit", 1, 1},
		{"heavy", 4, 2.5},
		{"pull", 2, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, sk, _ := pinned(tt.mass, func(b, anchor *RigidBody) []JacobianRow {
				return []JacobianRow{linearRow(b, anchor, axisX, tt.target)}
			})

			sk.InitMassMatrix(f.info, f.forces, f.rows)
			first := sk.CalculateJointForce(f.info, f.bodyInfo, f.forces, f.rows)

			want := tt.mass * tt.target
			require.InDelta(t, math.Abs(tt.target), first, 1e-12)
			require.InDelta(t, want, f.rows[0].Force, 1e-9)
			require.InDelta(t, want, f.forces[1].Linear.X(), 1e-9)
			require.InDelta(t, -want, f.forces[0].Linear.X(), 1e-9, "reaction on the anchor")

			stats := sk.LastSolve()
			require.Equal(t, ClampConverged, stats.State)
			require.Equal(t, 1, stats.Iterations)
			require.InDelta(t, 0.0, stats.FinalResidual, 1e-9)
		})
	}
}

func TestClampLoopDropsSaturatedRow(t *testing.T) {
	f, sk, _ := pinned(2, func(b, anchor *RigidBody) []JacobianRow {
		return []JacobianRow{
			boundedRow(b, anchor, axisX, 0, 10),
			linearRow(b, anchor, axisY, 0),
		}
	})
	sk.InitMassMatrix(f.info, f.forces, f.rows)
	node := sk.Nodes()[0]
	require.Equal(t, 2, node.DOF())

	f.rows[0].CoordinateAccel = 15
	f.rows[1].CoordinateAccel = 3
	first := sk.CalculateJointForce(f.info, f.bodyInfo, f.forces, f.rows)

	// the x row implies 30, out of bounds, so only y counts
	require.InDelta(t, 3.0, first, 1e-12)
	require.InDelta(t, 10.0, f.rows[0].Force, 1e-12)
	require.InDelta(t, 6.0, f.rows[1].Force, 1e-9)
	require.InDelta(t, 10.0, f.forces[1].Linear.X(), 1e-9)
	require.InDelta(t, 6.0, f.forces[1].Linear.Y(), 1e-9)

	require.Equal(t, 1, node.DOF())
	require.Equal(t, []int{1}, node.ActiveRows())

	stats := sk.LastSolve()
	require.Equal(t, ClampConverged, stats.State)
	require.Equal(t, 0, stats.RebuildStart)
	require.Equal(t, 1, stats.Rebuilds)
	require.Equal(t, first, stats.InitialResidual)
	require.LessOrEqual(t, stats.FinalResidual, first)
}

func TestInitMassMatrixClampsOutOfBoundsRows(t *testing.T) {
	f, sk, _ := pinned(2, func(b, anchor *RigidBody) []JacobianRow {
		return []JacobianRow{
			boundedRow(b, anchor, axisX, 15, 10),
			linearRow(b, anchor, axisY, 3),
		}
	})
	sk.InitMassMatrix(f.info, f.forces, f.rows)

	node := sk.Nodes()[0]
	require.Equal(t, []int{1}, node.ActiveRows())
	require.InDelta(t, 10.0, f.rows[0].Force, 1e-12)
	require.InDelta(t, 10.0, f.forces[1].Linear.X(), 1e-12, "clamped force folded into the body")
	require.InDelta(t, -10.0, f.forces[0].Linear.X(), 1e-12)

	sk.CalculateJointForce(f.info, f.bodyInfo, f.forces, f.rows)
	require.InDelta(t, 6.0, f.rows[1].Force, 1e-9)
	require.Equal(t, -1, sk.LastSolve().RebuildStart)
}

func TestInitMassMatrixIdempotent(t *testing.T) {
	f, sk := tree(t, DefaultConfig())
	sk.Finalize()

	sk.InitMassMatrix(f.info, f.forces, f.rows)
	take := func() (dof []int, blocks []spatial.Matrix) {
		for _, n := range sk.Nodes() {
			dof = append(dof, n.DOF())
			blocks = append(blocks, n.BodyMass(), n.BodyInvMass(), n.JointMass(), n.JointInvMass())
		}
		return dof, blocks
	}
	dof, blocks := take()
	forces := append([]Jacobian(nil), f.forces...)

	sk.InitMassMatrix(f.info, f.forces, f.rows)
	dof2, blocks2 := take()
	require.Equal(t, dof, dof2)
	require.Equal(t, blocks, blocks2)
	require.Equal(t, forces, f.forces)
}

func TestRebuildMatchesFullFactorization(t *testing.T) {
	f, sk := tree(t, DefaultConfig())
	sk.Finalize()

	sk.InitMassMatrix(f.info, f.forces, f.rows)
	node, err := sk.FindNode(f.bodies[1])
	require.NoError(t, err)
	require.Len(t, node.Children(), 2)
	bodyInv, jointInv := node.BodyInvMass(), node.JointInvMass()

	sk.RebuildMassMatrix(0, f.info, f.rows)
	require.Equal(t, bodyInv, node.BodyInvMass())
	require.Equal(t, jointInv, node.JointInvMass())
}

func TestChainCarriesWeight(t *testing.T) {
	const g = 9.8
	f := newFixture()
	anchor := f.body("anchor", 0)
	upper := f.body("upper", 1)
	lower := f.body("lower", 2)
	f.joint(upper, anchor, linearRow(upper, anchor, axisY, g))
	f.joint(lower, upper, linearRow(lower, upper, axisY, 0))

	sk := f.skeleton(anchor, DefaultConfig())
	require.NoError(t, sk.AddJointList(f.joints))
	sk.Finalize()

	sk.InitMassMatrix(f.info, f.forces, f.rows)
	first := sk.CalculateJointForce(f.info, f.bodyInfo, f.forces, f.rows)

	require.InDelta(t, g, first, 1e-12)
	require.InDelta(t, g*3, f.rows[0].Force, 1e-9)
	require.InDelta(t, g*2, f.rows[1].Force, 1e-9)
	require.Equal(t, 1, sk.LastSolve().Iterations)
}

func TestIterationCapIsNotAnError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 0
	f := newFixture()
	anchor := f.body("anchor", 0)
	b := f.body("b", 1)
	f.joint(b, anchor, linearRow(b, anchor, axisZ, 5))
	sk := f.skeleton(anchor, cfg)
	require.NoError(t, sk.AddJointList(f.joints))
	sk.Finalize()

	sk.InitMassMatrix(f.info, f.forces, f.rows)
	require.InDelta(t, 5.0, sk.CalculateJointForce(f.info, f.bodyInfo, f.forces, f.rows), 1e-12)
	require.Equal(t, ClampIterationExhausted, sk.LastSolve().State)
	require.Equal(t, 0.0, f.rows[0].Force)
}

type recordingSolver struct {
	offsets [][]int
	accel   float64
}

func (r *recordingSolver) SolveRows(info JointInfo, rowOffsets []int, bodies []BodyInfo, internalForces []Jacobian, rows []JacobianRow) float64 {
	r.offsets = append(r.offsets, append([]int(nil), rowOffsets...))
	return r.accel
}

func TestSolveUnilateralsForwardsInactiveRows(t *testing.T) {
	f, sk, _ := pinned(2, func(b, anchor *RigidBody) []JacobianRow {
		return []JacobianRow{
			linearRow(b, anchor, axisY, 3),
			boundedRow(b, anchor, axisX, 15, 10),
			linearRow(b, anchor, axisZ, 0),
		}
	})
	rec := &recordingSolver{accel: 0.25}
	sk.SetUnilateralSolver(rec)

	sk.InitMassMatrix(f.info, f.forces, f.rows)
	sk.CalculateJointForce(f.info, f.bodyInfo, f.forces, f.rows)
	require.Equal(t, 0.25, sk.SolveUnilaterals(f.info, f.bodyInfo, f.forces, f.rows))
	require.Equal(t, [][]int{{1}}, rec.offsets)
}

func TestSolveUnilateralsSkipsFullyActiveJoints(t *testing.T) {
	f, sk, _ := pinned(1, func(b, anchor *RigidBody) []JacobianRow {
		return []JacobianRow{linearRow(b, anchor, axisY, 1)}
	})
	rec := &recordingSolver{accel: 1}
	sk.SetUnilateralSolver(rec)

	sk.InitMassMatrix(f.info, f.forces, f.rows)
	sk.CalculateJointForce(f.info, f.bodyInfo, f.forces, f.rows)
	require.Equal(t, 0.0, sk.SolveUnilaterals(f.info, f.bodyInfo, f.forces, f.rows))
	require.Empty(t, rec.offsets)
}

func TestSequentialRowSolver(t *testing.T) {
	f, sk, _ := pinned(2, func(b, anchor *RigidBody) []JacobianRow {
		return []JacobianRow{
			boundedRow(b, anchor, axisX, 15, 10),
			linearRow(b, anchor, axisY, 3),
		}
	})
	sk.InitMassMatrix(f.info, f.forces, f.rows)
	sk.CalculateJointForce(f.info, f.bodyInfo, f.forces, f.rows)

	// still saturated, so the pass leaves it clamped and reports nothing
	require.Equal(t, 0.0, sk.SolveUnilaterals(f.info, f.bodyInfo, f.forces, f.rows))
	require.InDelta(t, 10.0, f.rows[0].Force, 1e-12)

	f.rows[0].CoordinateAccel = 4
	accel := SequentialRowSolver{}.SolveRows(f.info[0], []int{0}, f.bodyInfo, f.forces, f.rows)
	require.InDelta(t, 1.0, accel, 1e-12)
	require.InDelta(t, 8.0, f.rows[0].Force, 1e-9)
	require.InDelta(t, 8.0, f.forces[1].Linear.X(), 1e-9)
}

func TestSolveBeforeFinalizePanics(t *testing.T) {
	f := newFixture()
	sk := f.skeleton(f.body("root", 1), DefaultConfig())
	require.Panics(t, func() { sk.InitMassMatrix(nil, nil, nil) })
	require.Panics(t, func() { sk.CalculateJointForce(nil, nil, nil, nil) })
}

func TestClampStateString(t *testing.T) {
	require.Equal(t, "converged", ClampConverged.String())
	require.Equal(t, "iteration-exhausted", ClampIterationExhausted.String())
	require.Equal(t, "unknown", ClampState(42).String())
}
