// Package spatial holds the 6-dimensional vectors and blocks used by the
// articulated factorization, with a small dense inverse for the body and
// joint blocks.
package spatial

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Size is the dimension of a spatial vector: 3 linear followed by 3 angular components.
const Size = 6

// Vector is a generalized force or velocity.
type Vector [Size]float64

// FromParts packs a linear and an angular part into one spatial vector.
func FromParts(linear, angular mgl64.Vec3) Vector {
	return Vector{linear[0], linear[1], linear[2], angular[0], angular[1], angular[2]}
}

func (v Vector) Linear() mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}

func (v Vector) Angular() mgl64.Vec3 {
	return mgl64.Vec3{v[3], v[4], v[5]}
}

func (v *Vector) Dot(o *Vector) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] + v[3]*o[3] + v[4]*o[4] + v[5]*o[5]
}

// AddScaled accumulates u*s into v.
func (v *Vector) AddScaled(u *Vector, s float64) {
	for i := 0; i < Size; i++ {
		v[i] += u[i] * s
	}
}

func (v *Vector) SetZero() {
	*v = Vector{}
}

// IsZero reports whether every component is exactly zero.
func (v *Vector) IsZero() bool {
	return *v == Vector{}
}
