// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tensor

import (
	"math"

	"github.com/pkg/errors"
)

// Regularizes the coherency denominator
const Epsilon = 1e-5

// Per-pixel scalar fields derived from a structure tensor
type Fields struct {
	Energy      []float32 // trace of the tensor, >= 0
	Orientation []float32 // angle of the dominant eigenvector in radians, in (-pi/2, pi/2]
	Coherency   []float32 // normalized eigenvalue spread, in [0, 1]
	Width       int
}

// Reduces the tensor field to energy, orientation and coherency
func Derive(t Tensor) (Fields, error) {
	n := len(t.Ixx)
	if len(t.Iyy) != n || len(t.Ixy) != n {
		return Fields{}, errors.Wrapf(ErrMismatch, "len(Ixx)=%d len(Iyy)=%d len(Ixy)=%d", n, len(t.Iyy), len(t.Ixy))
	}
	f := Fields{
		Energy:      make([]float32, n),
		Orientation: make([]float32, n),
		Coherency:   make([]float32, n),
		Width:       t.Width,
	}
	for i := 0; i < n; i++ {
		xx, yy, xy := float64(t.Ixx[i]), float64(t.Iyy[i]), float64(t.Ixy[i])
		f.Energy[i] = float32(xx + yy)
		f.Orientation[i] = float32(Orientation(xx, yy, xy))
		f.Coherency[i] = float32(Coherency(xx, yy, xy))
	}
	return f, nil
}

// Returns the angle of the dominant eigenvector of [[xx, xy], [xy, yy]], reduced to (-pi/2, pi/2]
func Orientation(xx, yy, xy float64) float64 {
	o := 0.5 * math.Atan2(2*xy, xx-yy)
	if o <= -math.Pi/2 {
		o += math.Pi
	}
	return o
}

// Returns the eigenvalues l1 >= l2 of the symmetric matrix [[xx, xy], [xy, yy]]
func Eigenvalues(xx, yy, xy float64) (l1, l2 float64) {
	d := xx - yy
	r := math.Sqrt(d*d + 4*xy*xy)
	return (xx + yy + r) / 2, (xx + yy - r) / 2
}

// Returns (l1-l2)/(l1+l2+Epsilon) clamped to [0, 1]. The zero tensor has coherency 0
func Coherency(xx, yy, xy float64) float64 {
	l1, l2 := Eigenvalues(xx, yy, xy)
	c := (l1 - l2) / (l1 + l2 + Epsilon)
	if c < 0 || math.IsNaN(c) {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
