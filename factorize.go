package articulated

import (
	"math"

	"github.com/gekko3d/articulated/spatial"
)

// InitMassMatrix runs the full factorization of every node in solve order,
// first deciding which joint rows stay active. Rows whose force would leave
// its bounds are clamped in place, their force change is folded into the
// internal forces of both bodies, and they are left to the general solver.
func (s *Skeleton) InitMassMatrix(jointInfo []JointInfo, internalForces []Jacobian, rows []JacobianRow) {
	assert(s.finalized, "InitMassMatrix before Finalize")
	for _, node := range s.nodesOrder {
		node.factorizeFull(s, jointInfo, internalForces, rows)
	}
}

// RebuildMassMatrix refactorizes the nodes at index start and above, keeping
// each node's active rows.
func (s *Skeleton) RebuildMassMatrix(start int, jointInfo []JointInfo, rows []JacobianRow) {
	assert(s.finalized, "RebuildMassMatrix before Finalize")
	for i := start; i < s.nodeCount; i++ {
		s.nodesOrder[i].rebuild(s, jointInfo, rows)
	}
}

func (s *Skeleton) jointInfoOf(node *Node, jointInfo []JointInfo) *JointInfo {
	info := &jointInfo[node.joint.Index()]
	assert(info.Joint == node.joint, "joint info does not belong to joint ", node.joint.Index())
	assert(node.joint.Body0() == node.body, "joint body0 must be the child")
	assert(node.joint.Body1() == node.parent.body, "joint body1 must be the parent")
	assert(info.PairCount <= MaxJointDOF, "joint has more than 6 rows")
	return info
}

func (n *Node) factorizeFull(s *Skeleton, jointInfo []JointInfo, internalForces []Jacobian, rows []JacobianRow) {
	n.loadInertia(s)

	if n.joint != nil {
		info := s.jointInfoOf(n, jointInfo)
		y0 := &internalForces[info.M0]
		y1 := &internalForces[info.M1]

		n.dof = 0
		for i := 0; i < info.PairCount; i++ {
			row := &rows[info.PairStart+i]
			force := row.Force + row.InvJMinvJt*row.Residual(*y0, *y1)
			if !row.OutOfBounds(force) {
				n.activeRowIndex[n.dof] = i
				n.dof++
				continue
			}

			clamped, _ := row.Clamp(force)
			delta := clamped - row.Force
			row.Force = clamped
			if math.Abs(delta) > s.cfg.ClampEpsilon {
				y0.AddScaled(row.Jt.M0, delta)
				y1.AddScaled(row.Jt.M1, delta)
			}
		}
		n.loadJacobians(info, rows)
	}

	n.factorize(s)
}

func (n *Node) rebuild(s *Skeleton, jointInfo []JointInfo, rows []JacobianRow) {
	n.loadInertia(s)
	if n.joint != nil {
		n.loadJacobians(s.jointInfoOf(n, jointInfo), rows)
	}
	n.factorize(s)
}

// loadInertia builds the 6x6 body block: mass on the linear diagonal and the
// world inertia tensor in the angular corner. Bodies without finite mass get
// a zero block.
func (n *Node) loadInertia(s *Skeleton) {
	n.bodyMass.SetZero()
	if !HasFiniteMass(n.body) {
		return
	}

	mass := n.body.Mass()
	assert(mass < s.cfg.MaxMass, "body mass ", mass, " exceeds max mass")
	inertia := n.body.InertiaMatrix()
	for i := 0; i < 3; i++ {
		n.bodyMass[i][i] = mass
		for j := 0; j < 3; j++ {
			n.bodyMass[i+3][j+3] = inertia.At(i, j)
		}
	}
}

// loadJacobians copies the active rows: child-side rows into bodyJt,
// parent-side rows into jointJ, and the negated damping onto the joint diagonal.
func (n *Node) loadJacobians(info *JointInfo, rows []JacobianRow) {
	n.jointMass.SetZero()
	n.bodyJt.SetZero()
	n.jointJ.SetZero()
	for i := 0; i < n.dof; i++ {
		row := &rows[info.PairStart+n.activeRowIndex[i]]
		n.jointMass[i][i] = -row.DiagDamp
		n.bodyJt[i] = spatial.FromParts(row.Jt.M0.Linear, row.Jt.M0.Angular)
		n.jointJ[i] = spatial.FromParts(row.Jt.M1.Linear, row.Jt.M1.Angular)
	}
}

func (n *Node) factorize(s *Skeleton) {
	if HasFiniteMass(n.body) {
		for _, child := range n.children {
			n.foldChild(child)
		}
		inv, ok := n.bodyMass.Inverse(spatial.Size)
		if !ok {
			s.Logger().Debugf("skeleton %d: singular body block at node %d", s.id, n.index)
		}
		n.bodyInvMass = inv
	} else {
		n.bodyInvMass.SetZero()
	}

	if n.joint != nil {
		assert(n.parent != nil, "jointed node without parent")
		for i := 0; i < n.dof; i++ {
			n.bodyJt[i] = n.bodyInvMass.MulVec(&n.bodyJt[i], spatial.Size)
		}
		n.calculateJointDiagonal(s)
		n.calculateJacobianBlock()
	}
}

// foldChild subtracts the child's Schur complement J1ᵀ·jointMass⁻¹·J1 from
// this node's body block.
func (n *Node) foldChild(child *Node) {
	assert(child.joint != nil, "child node without joint")
	assert(child.jointMass.IsSymmetric(child.dof, 1.0e-5), "child joint block is not symmetric")

	var scaled spatial.Matrix
	dof := child.dof
	for i := 0; i < dof; i++ {
		jacobian := &child.jointJ[i]
		for j := 0; j < dof; j++ {
			scaled[j].AddScaled(jacobian, child.jointMass[i][j])
		}
	}

	for i := 0; i < dof; i++ {
		jacobian := &scaled[i]
		transposed := &child.jointJ[i]
		for j := 0; j < spatial.Size; j++ {
			n.bodyMass[j].AddScaled(transposed, -jacobian[j])
		}
	}
}

// calculateJointDiagonal forms -D - J0·M⁻¹·J0ᵀ over the active rows and
// inverts it.
func (n *Node) calculateJointDiagonal(s *Skeleton) {
	var tmp spatial.Matrix
	for i := 0; i < n.dof; i++ {
		tmp[i] = n.bodyMass.MulVec(&n.bodyJt[i], spatial.Size)
	}

	for i := 0; i < n.dof; i++ {
		n.jointMass[i][i] -= n.bodyJt[i].Dot(&tmp[i])
		for j := i + 1; j < n.dof; j++ {
			a := -n.bodyJt[i].Dot(&tmp[j])
			n.jointMass[i][j] = a
			n.jointMass[j][i] = a
		}
	}

	inv, ok := n.jointMass.Inverse(n.dof)
	if !ok {
		s.Logger().Debugf("skeleton %d: singular joint block at node %d", s.id, n.index)
	}
	n.jointInvMass = inv
}

// calculateJacobianBlock replaces the parent-side rows with jointMass⁻¹·J1.
func (n *Node) calculateJacobianBlock() {
	var rows spatial.Matrix
	for i := 0; i < n.dof; i++ {
		rows[i] = n.jointJ[i]
		n.jointJ[i].SetZero()
	}

	for i := 0; i < n.dof; i++ {
		jacobian := &rows[i]
		invRow := &n.jointInvMass[i]
		for j := 0; j < n.dof; j++ {
			n.jointJ[j].AddScaled(jacobian, invRow[j])
		}
	}
}
