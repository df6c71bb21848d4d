package articulated

// The two sweeps below are the block forward and back substitution of the
// factorization built in factorize.go, ordered by the post-order node array.

// solveForward accumulates joint and body residuals from the leaves up.
func (s *Skeleton) solveForward() {
	for i := 0; i < s.nodeCount-1; i++ {
		node := s.nodesOrder[i]
		for _, child := range node.children {
			child.bodyJacobianTimeMassForward()
		}
		node.jointJacobianTimeMassForward()
	}

	for _, child := range s.nodesOrder[s.nodeCount-1].children {
		child.bodyJacobianTimeMassForward()
	}
}

// solveBackward turns the residuals into joint force corrections from the
// root down.
func (s *Skeleton) solveBackward() {
	s.nodesOrder[s.nodeCount-1].bodyDiagInvTimeSolution()
	for i := s.nodeCount - 2; i >= 0; i-- {
		node := s.nodesOrder[i]
		node.jointDiagInvTimeSolution()
		node.jointJacobianTimeSolutionBackward()
		node.bodyDiagInvTimeSolution()
		node.bodyJacobianTimeSolutionBackward()
	}
}

func (n *Node) jointJacobianTimeMassForward() {
	for i := 0; i < n.dof; i++ {
		n.jointForce[i] -= n.bodyJt[i].Dot(&n.bodyForce)
	}
}

// bodyJacobianTimeMassForward pushes this node's joint residual into the
// parent's body residual.
func (n *Node) bodyJacobianTimeMassForward() {
	assert(n.joint != nil, "forward sweep through root")
	for i := 0; i < n.dof; i++ {
		n.parent.bodyForce.AddScaled(&n.jointJ[i], -n.jointForce[i])
	}
}

func (n *Node) jointJacobianTimeSolutionBackward() {
	force := &n.parent.bodyForce
	for i := 0; i < n.dof; i++ {
		n.jointForce[i] -= force.Dot(&n.jointJ[i])
	}
}

func (n *Node) bodyJacobianTimeSolutionBackward() {
	for i := 0; i < n.dof; i++ {
		n.bodyForce.AddScaled(&n.bodyJt[i], -n.jointForce[i])
	}
}

func (n *Node) bodyDiagInvTimeSolution() {
	n.bodyForce = n.bodyInvMass.MulVec(&n.bodyForce, 6)
}

func (n *Node) jointDiagInvTimeSolution() {
	n.jointForce = n.jointInvMass.MulVec(&n.jointForce, n.dof)
}
