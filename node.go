package articulated

import (
	"github.com/gekko3d/articulated/spatial"
)

// MaxJointDOF is the largest number of rows a skeleton joint may keep active.
const MaxJointDOF = 6

// Node is one body of a skeleton plus the joint to its parent. The root node
// has no joint.
type Node struct {
	body     Body
	joint    Joint
	parent   *Node
	children []*Node

	index          int
	dof            int
	activeRowIndex [MaxJointDOF]int
	// scratch for SolveUnilaterals
	inactiveRowIndex [MaxJointDOF]int

	bodyMass     spatial.Matrix
	bodyInvMass  spatial.Matrix
	jointMass    spatial.Matrix
	jointInvMass spatial.Matrix
	// jointJ holds the parent-side rows, premultiplied by jointInvMass once factorized.
	jointJ spatial.Matrix
	// bodyJt holds the child-side rows, premultiplied by bodyInvMass once factorized.
	bodyJt     spatial.Matrix
	bodyForce  spatial.Vector
	jointForce spatial.Vector
}

func newNode(body Body, joint Joint, parent *Node) *Node {
	n := &Node{body: body, joint: joint, parent: parent}
	if parent != nil {
		parent.children = append(parent.children, n)
	}
	return n
}

func (n *Node) Body() Body                   { return n.body }
func (n *Node) Joint() Joint                 { return n.joint }
func (n *Node) Parent() *Node                { return n.parent }
func (n *Node) Children() []*Node            { return n.children }
func (n *Node) Index() int                   { return n.index }
func (n *Node) DOF() int                     { return n.dof }
func (n *Node) IsRoot() bool                 { return n.joint == nil }
func (n *Node) ActiveRows() []int            { return append([]int(nil), n.activeRowIndex[:n.dof]...) }
func (n *Node) BodyMass() spatial.Matrix     { return n.bodyMass }
func (n *Node) BodyInvMass() spatial.Matrix  { return n.bodyInvMass }
func (n *Node) JointMass() spatial.Matrix    { return n.jointMass }
func (n *Node) JointInvMass() spatial.Matrix { return n.jointInvMass }

// JointForce returns the joint-space force residual of the last sweep.
func (n *Node) JointForce() spatial.Vector { return n.jointForce }

func (n *Node) setPriority(p Priority) {
	if n.joint != nil {
		n.joint.SetPriority(p)
	}
}

// release clears the skeleton association of the whole subtree, depth first.
func (n *Node) release() {
	for _, child := range n.children {
		child.release()
	}
	n.body.SetSkeleton(nil)
	n.children = nil
}

func (n *Node) isActive(row int) bool {
	for _, k := range n.activeRowIndex[:n.dof] {
		if k == row {
			return true
		}
	}
	return false
}
