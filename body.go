package articulated

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type BodyType int

const (
	// BodyDynamic bodies have finite mass and take part in the factorization.
	BodyDynamic BodyType = iota
	// BodyStatic bodies (static or kinematic) have infinite mass and contribute no inertia.
	BodyStatic
)

func (t BodyType) String() string {
	switch t {
	case BodyDynamic:
		return "dynamic"
	case BodyStatic:
		return "static"
	}
	return "unknown"
}

// Body is the part of an engine rigid body the skeleton needs.
type Body interface {
	Type() BodyType
	Mass() float64
	InvMass() float64
	// InertiaMatrix is the rotational inertia tensor in world space.
	InertiaMatrix() mgl64.Mat3
	Joints() []Joint
	Skeleton() *Skeleton
	SetSkeleton(s *Skeleton)
}

// HasFiniteMass reports whether b contributes inertia to the tree.
func HasFiniteMass(b Body) bool {
	return b.InvMass() != 0
}

// RigidBody is a minimal Body with a box-like inertia tensor, oriented by a
// quaternion. Engines usually supply their own Body implementation.
type RigidBody struct {
	Name         string
	Position     mgl64.Vec3
	Rotation     mgl64.Quat
	InertiaLocal mgl64.Mat3

	bodyType BodyType
	mass     float64
	joints   []Joint
	skeleton *Skeleton
}

func NewRigidBody(name string, bodyType BodyType, mass float64, inertia mgl64.Mat3) *RigidBody {
	rb := &RigidBody{
		Name:         name,
		Rotation:     mgl64.QuatIdent(),
		InertiaLocal: inertia,
		bodyType:     bodyType,
		mass:         mass,
	}
	if bodyType == BodyStatic {
		rb.mass = math.Inf(1)
		rb.InertiaLocal = mgl64.Mat3{}
	}
	return rb
}

// NewStaticBody returns an immovable body.
func NewStaticBody(name string) *RigidBody {
	return NewRigidBody(name, BodyStatic, 0, mgl64.Mat3{})
}

// BoxInertia is the inertia tensor of a solid box with the given half extents.
func BoxInertia(mass float64, halfExtents mgl64.Vec3) mgl64.Mat3 {
	x2 := 4 * halfExtents.X() * halfExtents.X()
	y2 := 4 * halfExtents.Y() * halfExtents.Y()
	z2 := 4 * halfExtents.Z() * halfExtents.Z()
	k := mass / 12.0
	return mgl64.Diag3(mgl64.Vec3{k * (y2 + z2), k * (x2 + z2), k * (x2 + y2)})
}

func (rb *RigidBody) Type() BodyType { return rb.bodyType }

func (rb *RigidBody) Mass() float64 { return rb.mass }

func (rb *RigidBody) InvMass() float64 {
	if rb.bodyType == BodyStatic || rb.mass <= 0 || math.IsInf(rb.mass, 1) {
		return 0
	}
	return 1.0 / rb.mass
}

func (rb *RigidBody) InertiaMatrix() mgl64.Mat3 {
	if rb.bodyType == BodyStatic {
		return mgl64.Mat3{}
	}
	r := rb.Rotation.Normalize().Mat4().Mat3()
	return r.Mul3(rb.InertiaLocal).Mul3(r.Transpose())
}

// InvInertiaMatrix is the inverse world inertia, zero for static bodies.
func (rb *RigidBody) InvInertiaMatrix() mgl64.Mat3 {
	if rb.InvMass() == 0 {
		return mgl64.Mat3{}
	}
	return rb.InertiaMatrix().Inv()
}

func (rb *RigidBody) Joints() []Joint { return rb.joints }

func (rb *RigidBody) Skeleton() *Skeleton { return rb.skeleton }

func (rb *RigidBody) SetSkeleton(s *Skeleton) { rb.skeleton = s }

// AttachJoint records j as one of the body's joints.
func (rb *RigidBody) AttachJoint(j Joint) {
	rb.joints = append(rb.joints, j)
}

func (rb *RigidBody) String() string {
	return rb.Name
}
