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

// Package tensor builds the structure tensor field from a gradient field,
// and reduces it to per-pixel energy, orientation and coherency.
package tensor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mlnoga/fibrelight/internal/filter"
)

// ErrMismatch is returned when gradient components or tensor channels differ in length
var ErrMismatch = errors.New("field dimensions do not match")

// Structure tensor field. Each pixel holds the symmetric matrix [[Ixx, Ixy], [Ixy, Iyy]]
type Tensor struct {
	Ixx   []float32
	Iyy   []float32
	Ixy   []float32
	Width int
}

// Returns the height of the tensor field
func (t Tensor) Height() int {
	if t.Width <= 0 {
		return 0
	}
	return len(t.Ixx) / t.Width
}

// Builds the structure tensor from gradients gx and gy: the products gx*gx, gy*gy and gx*gy
// are each smoothed with a gaussian of sigma windowSize
func Build(gx, gy []float32, width int, windowSize float32) (Tensor, error) {
	if len(gx) != len(gy) {
		return Tensor{}, errors.Wrapf(ErrMismatch, "len(gx)=%d len(gy)=%d", len(gx), len(gy))
	}
	if !(windowSize > 0) || math.IsInf(float64(windowSize), 1) {
		return Tensor{}, errors.Errorf("window size %v must be positive and finite", windowSize)
	}

	xx, yy, xy := make([]float32, len(gx)), make([]float32, len(gx)), make([]float32, len(gx))
	for i, x := range gx {
		y := gy[i]
		xx[i], yy[i], xy[i] = x*x, y*y, x*y
	}

	t := Tensor{Width: width}
	var err error
	if t.Ixx, err = filter.Blur(xx, width, windowSize); err != nil {
		return Tensor{}, errors.Wrap(err, "smoothing Ixx")
	}
	if t.Iyy, err = filter.Blur(yy, width, windowSize); err != nil {
		return Tensor{}, errors.Wrap(err, "smoothing Iyy")
	}
	if t.Ixy, err = filter.Blur(xy, width, windowSize); err != nil {
		return Tensor{}, errors.Wrap(err, "smoothing Ixy")
	}
	return t, nil
}
