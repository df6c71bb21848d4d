package articulated

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// fixture owns the caller-side buffers a skeleton solves into. Joints carry
// purely linear rows so the expected forces stay closed form.
type fixture struct {
	reg      *JointRegistry
	bodies   []*RigidBody
	forces   []Jacobian
	bodyInfo []BodyInfo
	info     []JointInfo
	rows     []JacobianRow
	joints   []Joint
	slot     map[Body]int
}

func newFixture() *fixture {
	return &fixture{reg: NewJointRegistry(), slot: make(map[Body]int)}
}

// body adds a unit-box body; a zero mass makes it static.
func (f *fixture) body(name string, mass float64) *RigidBody {
	var b *RigidBody
	if mass == 0 {
		b = NewStaticBody(name)
	} else {
		b = NewRigidBody(name, BodyDynamic, mass, BoxInertia(mass, mgl64.Vec3{0.5, 0.5, 0.5}))
	}
	f.slot[b] = len(f.bodies)
	f.bodies = append(f.bodies, b)
	f.forces = append(f.forces, Jacobian{})
	f.bodyInfo = append(f.bodyInfo, BodyInfo{Body: b})
	return b
}

func (f *fixture) joint(b0, b1 *RigidBody, rows ...JacobianRow) *BilateralJoint {
	j := NewBilateralJoint(b0, b1, len(f.info))
	f.reg.Add(j)
	f.joints = append(f.joints, j)
	f.info = append(f.info, JointInfo{
		Joint:     j,
		PairStart: len(f.rows),
		PairCount: len(rows),
		M0:        f.slot[b0],
		M1:        f.slot[b1],
	})
	f.rows = append(f.rows, rows...)
	return j
}

func (f *fixture) skeleton(root *RigidBody, cfg Config) *Skeleton {
	return NewSkeleton(root, f.reg, NewIDGenerator(7), cfg)
}

// linearRow constrains the relative acceleration of b0 and b1 along axis.
func linearRow(b0, b1 *RigidBody, axis mgl64.Vec3, target float64) JacobianRow {
	row := JacobianRow{
		Jt: JacobianPair{
			M0: Jacobian{Linear: axis},
			M1: Jacobian{Linear: axis.Mul(-1)},
		},
		LowerBound:      math.Inf(-1),
		UpperBound:      math.Inf(1),
		CoordinateAccel: target,
	}
	row.JMinv = JacobianPair{
		M0: Jacobian{Linear: row.Jt.M0.Linear.Mul(b0.InvMass())},
		M1: Jacobian{Linear: row.Jt.M1.Linear.Mul(b1.InvMass())},
	}
	row.InvJMinvJt = 1.0 / (b0.InvMass() + b1.InvMass())
	return row
}

func boundedRow(b0, b1 *RigidBody, axis mgl64.Vec3, target, bound float64) JacobianRow {
	row := linearRow(b0, b1, axis, target)
	row.LowerBound = -bound
	row.UpperBound = bound
	return row
}

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)
