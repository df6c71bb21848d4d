package articulated

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// PriorityShift is the bit position of the skeleton id in a packed priority.
const PriorityShift = 16

// Priority orders a skeleton joint in the outer constraint pass: joints sort
// by skeleton first and by topological index second.
type Priority struct {
	SkeletonID int32
	Index      int
}

// Packed folds the pair into the single integer key used by ordering passes
// that cannot carry the pair. Index must fit in the low PriorityShift bits.
func (p Priority) Packed() uint32 {
	assert(p.Index >= 0 && p.Index < 1<<PriorityShift, "priority index ", p.Index, " does not fit in ", PriorityShift, " bits")
	assert(p.SkeletonID >= 0 && p.SkeletonID < 1<<(32-PriorityShift), "skeleton id ", p.SkeletonID, " does not fit in the packed priority")
	return uint32(p.SkeletonID)<<PriorityShift | uint32(p.Index)
}

func (p Priority) Less(o Priority) bool {
	if p.SkeletonID != o.SkeletonID {
		return p.SkeletonID < o.SkeletonID
	}
	return p.Index < o.Index
}

// Joint is a bilateral constraint between two bodies. Inside a skeleton
// Body0 is the child and Body1 the parent.
type Joint interface {
	Body0() Body
	Body1() Body
	// Index is the joint's slot in the joint-info array handed to the solver.
	Index() int
	SetPriority(p Priority)
}

// JointInfo locates a joint's rows in the shared row buffer and its bodies
// in the internal-force array.
type JointInfo struct {
	Joint     Joint
	PairStart int
	PairCount int
	M0        int
	M1        int
}

// Jacobian is a linear+angular pair; it doubles as the per-body internal force.
type Jacobian struct {
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

func (j Jacobian) Dot(o Jacobian) float64 {
	return j.Linear.Dot(o.Linear) + j.Angular.Dot(o.Angular)
}

// AddScaled accumulates o*s into j.
func (j *Jacobian) AddScaled(o Jacobian, s float64) {
	j.Linear = j.Linear.Add(o.Linear.Mul(s))
	j.Angular = j.Angular.Add(o.Angular.Mul(s))
}

type JacobianPair struct {
	M0 Jacobian
	M1 Jacobian
}

// JacobianRow is one scalar constraint row in the caller's row buffer.
type JacobianRow struct {
	Jt              JacobianPair
	JMinv           JacobianPair
	DiagDamp        float64
	InvJMinvJt      float64
	LowerBound      float64
	UpperBound      float64
	Force           float64
	CoordinateAccel float64
}

// Residual is the constraint acceleration error of the row given the
// internal forces accumulated at both bodies.
func (r *JacobianRow) Residual(y0, y1 Jacobian) float64 {
	return r.CoordinateAccel - (r.JMinv.M0.Dot(y0) + r.JMinv.M1.Dot(y1))
}

// Clamp limits f to the row bounds and reports whether it had to.
func (r *JacobianRow) Clamp(f float64) (float64, bool) {
	switch {
	case f > r.UpperBound:
		return r.UpperBound, true
	case f < r.LowerBound:
		return r.LowerBound, true
	}
	return f, false
}

// OutOfBounds reports whether f lies outside the row bounds.
func (r *JacobianRow) OutOfBounds(f float64) bool {
	return f > r.UpperBound || f < r.LowerBound
}

// BodyInfo is one entry of the body array forwarded to the general solver.
type BodyInfo struct {
	Body Body
}

// BilateralJoint is a plain Joint used by the scene builders and tests.
type BilateralJoint struct {
	body0, body1 Body
	index        int
	priority     Priority
}

func NewBilateralJoint(body0, body1 Body, index int) *BilateralJoint {
	return &BilateralJoint{body0: body0, body1: body1, index: index}
}

func (j *BilateralJoint) Body0() Body { return j.body0 }

func (j *BilateralJoint) Body1() Body { return j.body1 }

func (j *BilateralJoint) Index() int { return j.index }

func (j *BilateralJoint) SetPriority(p Priority) { j.priority = p }

func (j *BilateralJoint) Priority() Priority { return j.priority }

func (j *BilateralJoint) String() string {
	return fmt.Sprintf("joint %d (%v -> %v)", j.index, j.body0, j.body1)
}
