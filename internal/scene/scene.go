// Package scene builds procedural skeletons with their row buffers: hanging
// chains and branching trees of box links connected by ball joints under
// gravity. It stands in for the engine side that normally owns bodies and
// evaluates joint Jacobians.
package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/articulated"
)

type Options struct {
	Links      int
	Branches   int
	LinkLength float64
	LinkMass   float64
	// MaxJointForce bounds every joint row to [-MaxJointForce, MaxJointForce];
	// zero leaves the rows unbounded.
	MaxJointForce float64
	Damping       float64
	Gravity       mgl64.Vec3
}

func DefaultOptions() Options {
	return Options{
		Links:      4,
		Branches:   1,
		LinkLength: 1.0,
		LinkMass:   1.0,
		Gravity:    mgl64.Vec3{0, -9.81, 0},
	}
}

// Scene owns the bodies, joints and solver buffers of one skeleton island.
// Bodies[i] uses slot i of Forces.
type Scene struct {
	Registry *articulated.JointRegistry
	Bodies   []*articulated.RigidBody
	Joints   []*articulated.BilateralJoint
	Info     []articulated.JointInfo
	Rows     []articulated.JacobianRow
	Forces   []articulated.Jacobian
	BodyInfo []articulated.BodyInfo
	Gravity  mgl64.Vec3

	anchors  []mgl64.Vec3
	bounds   []float64
	damping  float64
	bodySlot map[*articulated.RigidBody]int
}

func New(gravity mgl64.Vec3, damping float64) *Scene {
	return &Scene{
		Registry: articulated.NewJointRegistry(),
		Gravity:  gravity,
		damping:  damping,
		bodySlot: make(map[*articulated.RigidBody]int),
	}
}

// AddBody appends a body and gives it the next internal-force slot.
func (s *Scene) AddBody(b *articulated.RigidBody) *articulated.RigidBody {
	s.bodySlot[b] = len(s.Bodies)
	s.Bodies = append(s.Bodies, b)
	s.Forces = append(s.Forces, articulated.Jacobian{})
	s.BodyInfo = append(s.BodyInfo, articulated.BodyInfo{Body: b})
	return b
}

// AddLink adds a dynamic box link of the given length centered at pos.
func (s *Scene) AddLink(name string, pos mgl64.Vec3, mass, length float64) *articulated.RigidBody {
	half := mgl64.Vec3{0.1, length / 2, 0.1}
	b := articulated.NewRigidBody(name, articulated.BodyDynamic, mass, articulated.BoxInertia(mass, half))
	b.Position = pos
	return s.AddBody(b)
}

// AddBallJoint pins body0 to body1 at a world anchor with three rows. A zero
// bound leaves the rows unbounded.
func (s *Scene) AddBallJoint(body0, body1 *articulated.RigidBody, anchor mgl64.Vec3, bound float64) *articulated.BilateralJoint {
	j := articulated.NewBilateralJoint(body0, body1, len(s.Joints))
	s.Joints = append(s.Joints, j)
	s.Registry.Add(j)
	s.anchors = append(s.anchors, anchor)
	s.bounds = append(s.bounds, bound)

	s.Info = append(s.Info, articulated.JointInfo{
		Joint:     j,
		PairStart: len(s.Rows),
		PairCount: 3,
		M0:        s.bodySlot[body0],
		M1:        s.bodySlot[body1],
	})
	s.Rows = append(s.Rows, make([]articulated.JacobianRow, 3)...)
	return j
}

// BuildRows evaluates every joint's Jacobian rows for the current body
// placement and resets forces. The row target acceleration cancels gravity
// along the row, so the solved forces hold the skeleton in place.
func (s *Scene) BuildRows() {
	for i := range s.Forces {
		s.Forces[i] = articulated.Jacobian{}
	}
	axes := [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for ji, info := range s.Info {
		b0 := s.Bodies[info.M0]
		b1 := s.Bodies[info.M1]
		r0 := s.anchors[ji].Sub(b0.Position)
		r1 := s.anchors[ji].Sub(b1.Position)
		a0 := s.externalAccel(b0)
		a1 := s.externalAccel(b1)

		lower, upper := math.Inf(-1), math.Inf(1)
		if bound := s.bounds[ji]; bound > 0 {
			lower, upper = -bound, bound
		}

		for k, axis := range axes {
			row := &s.Rows[info.PairStart+k]
			*row = articulated.JacobianRow{
				Jt: articulated.JacobianPair{
					M0: articulated.Jacobian{Linear: axis, Angular: r0.Cross(axis)},
					M1: articulated.Jacobian{Linear: axis.Mul(-1), Angular: r1.Cross(axis).Mul(-1)},
				},
				DiagDamp:   s.damping,
				LowerBound: lower,
				UpperBound: upper,
			}
			row.JMinv = articulated.JacobianPair{
				M0: timesInvMass(b0, row.Jt.M0),
				M1: timesInvMass(b1, row.Jt.M1),
			}
			if denom := row.Jt.M0.Dot(row.JMinv.M0) + row.Jt.M1.Dot(row.JMinv.M1) + row.DiagDamp; denom > 0 {
				row.InvJMinvJt = 1.0 / denom
			}
			row.CoordinateAccel = -(row.Jt.M0.Dot(a0) + row.Jt.M1.Dot(a1))
		}
	}
}

func (s *Scene) externalAccel(b *articulated.RigidBody) articulated.Jacobian {
	if !articulated.HasFiniteMass(b) {
		return articulated.Jacobian{}
	}
	return articulated.Jacobian{Linear: s.Gravity}
}

func timesInvMass(b *articulated.RigidBody, j articulated.Jacobian) articulated.Jacobian {
	return articulated.Jacobian{
		Linear:  j.Linear.Mul(b.InvMass()),
		Angular: b.InvInertiaMatrix().Mul3x1(j.Angular),
	}
}

// Skeleton builds, populates and finalizes a skeleton rooted at Bodies[0].
func (s *Scene) Skeleton(ids *articulated.IDGenerator, cfg articulated.Config) (*articulated.Skeleton, error) {
	if len(s.Bodies) == 0 {
		return nil, fmt.Errorf("scene has no bodies")
	}
	joints := make([]articulated.Joint, len(s.Joints))
	for i, j := range s.Joints {
		joints[i] = j
	}

	sk := articulated.NewSkeleton(s.Bodies[0], s.Registry, ids, cfg)
	if err := sk.AddJointList(joints); err != nil {
		return nil, fmt.Errorf("build skeleton: %w", err)
	}
	sk.Finalize()
	return sk, nil
}

// JointForce returns the force vector of joint j as applied to its child body.
func (s *Scene) JointForce(j int) mgl64.Vec3 {
	info := s.Info[j]
	var f mgl64.Vec3
	for k := 0; k < info.PairCount; k++ {
		row := &s.Rows[info.PairStart+k]
		f = f.Add(row.Jt.M0.Linear.Mul(row.Force))
	}
	return f
}

// NewChain hangs opt.Links links below a static anchor body.
func NewChain(opt Options) *Scene {
	opt.Branches = 1
	return NewTree(opt)
}

// NewTree hangs opt.Branches chains of opt.Links links from one static root,
// spacing the branch anchors along x.
func NewTree(opt Options) *Scene {
	s := New(opt.Gravity, opt.Damping)
	root := s.AddBody(articulated.NewStaticBody("anchor"))

	branches := max(opt.Branches, 1)
	for b := 0; b < branches; b++ {
		x := (float64(b) - float64(branches-1)/2) * opt.LinkLength
		parent := root
		for i := 1; i <= opt.Links; i++ {
			anchor := mgl64.Vec3{x, -float64(i-1) * opt.LinkLength, 0}
			center := mgl64.Vec3{x, -(float64(i) - 0.5) * opt.LinkLength, 0}
			link := s.AddLink(fmt.Sprintf("branch%d-link%d", b, i), center, opt.LinkMass, opt.LinkLength)
			s.AddBallJoint(link, parent, anchor, opt.MaxJointForce)
			parent = link
		}
	}
	s.BuildRows()
	return s
}
