package articulated

import (
	"sync/atomic"
)

// IDGenerator hands out monotonically increasing skeleton ids. It is owned by
// the enclosing world and is safe for concurrent use.
type IDGenerator struct {
	next atomic.Int32
}

func NewIDGenerator(base int32) *IDGenerator {
	g := &IDGenerator{}
	g.next.Store(base)
	return g
}

func (g *IDGenerator) Next() int32 {
	return g.next.Add(1) - 1
}

// Reset makes the next id equal to id.
func (g *IDGenerator) Reset(id int32) {
	g.next.Store(id)
}

// JointFinder resolves the bilateral joint connecting two bodies.
type JointFinder interface {
	FindBilateralJoint(a, b Body) Joint
}

// JointAttacher is implemented by bodies that keep their own joint list.
type JointAttacher interface {
	AttachJoint(j Joint)
}

type bodyPair struct {
	a, b Body
}

// JointRegistry is a JointFinder over an explicit set of joints.
type JointRegistry struct {
	joints []Joint
	byPair map[bodyPair]Joint
}

func NewJointRegistry() *JointRegistry {
	return &JointRegistry{byPair: make(map[bodyPair]Joint)}
}

// Add registers j and attaches it to both endpoint bodies when they keep a
// joint list.
func (r *JointRegistry) Add(j Joint) {
	r.joints = append(r.joints, j)
	r.byPair[bodyPair{j.Body0(), j.Body1()}] = j
	r.byPair[bodyPair{j.Body1(), j.Body0()}] = j
	if a, ok := j.Body0().(JointAttacher); ok {
		a.AttachJoint(j)
	}
	if b, ok := j.Body1().(JointAttacher); ok {
		b.AttachJoint(j)
	}
}

func (r *JointRegistry) FindBilateralJoint(a, b Body) Joint {
	return r.byPair[bodyPair{a, b}]
}

func (r *JointRegistry) Joints() []Joint {
	return r.joints
}
