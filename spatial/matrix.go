package spatial

import (
	"math"
)

// Matrix is a 6x6 block stored as rows. Most routines take an explicit
// leading size n so the same storage holds dof x dof joint blocks.
type Matrix [Size]Vector

// relative pivot threshold below which a block is treated as singular
const singularTolerance = 1.0e-12

// MulVec returns m[:n][:n]·v[:n]. Components at and beyond n are zero.
func (m *Matrix) MulVec(v *Vector, n int) Vector {
	var out Vector
	for i := 0; i < n; i++ {
		row := &m[i]
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += row[j] * v[j]
		}
		out[i] = sum
	}
	return out
}

func (m *Matrix) SetZero() {
	*m = Matrix{}
}

// IsSymmetric reports whether the leading n x n block is symmetric within tol.
func (m *Matrix) IsSymmetric(n int, tol float64) bool {
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(m[i][j]-m[j][i]) > tol*math.Max(1, math.Max(math.Abs(m[i][j]), math.Abs(m[j][i]))) {
				return false
			}
		}
	}
	return true
}

// Inverse returns the inverse of the leading n x n block using Gauss-Jordan
// elimination with partial pivoting. ok is false when a pivot falls below the
// singular threshold; the returned matrix is then zero.
func (m *Matrix) Inverse(n int) (inv Matrix, ok bool) {
	if n == 0 {
		return Matrix{}, true
	}

	a := *m
	scale := 0.0
	for i := 0; i < n; i++ {
		inv[i][i] = 1
		for j := 0; j < n; j++ {
			scale = math.Max(scale, math.Abs(a[i][j]))
		}
	}
	if scale == 0 {
		return Matrix{}, false
	}
	threshold := scale * singularTolerance

	for col := 0; col < n; col++ {
		pivot := col
		best := math.Abs(a[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(a[r][col]); v > best {
				best = v
				pivot = r
			}
		}
		if best <= threshold {
			return Matrix{}, false
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			inv[col], inv[pivot] = inv[pivot], inv[col]
		}

		d := 1.0 / a[col][col]
		for j := 0; j < n; j++ {
			a[col][j] *= d
			inv[col][j] *= d
		}

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := a[r][col]
			if f == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				a[r][j] -= f * a[col][j]
				inv[r][j] -= f * inv[col][j]
			}
		}
	}
	return inv, true
}
