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

package gradient

import (
	"math"

	"github.com/mlnoga/fibrelight/internal/spectrum"
)

// Regularizes the Riesz multiplier at the zero frequency
const rieszEpsilon = 1e-5

func init() {
	register(Fourier, 1, fourierGradient)
	register(Riesz, 1, rieszGradient)
}

// Differentiates in the frequency domain by multiplying the spectrum with i*2*pi*f along each axis
func fourierGradient(data []float32, width int, windowSize float32, o *Options) (gx, gy []float32, err error) {
	return spectralGradient(data, width, o.Transformer, func(fx, fy float64) (mx, my complex128) {
		return complex(0, 2*math.Pi*fx), complex(0, 2*math.Pi*fy)
	})
}

// Applies the Riesz transform, multiplying the spectrum with i*f/|f| along each axis
func rieszGradient(data []float32, width int, windowSize float32, o *Options) (gx, gy []float32, err error) {
	return spectralGradient(data, width, o.Transformer, func(fx, fy float64) (mx, my complex128) {
		norm := math.Sqrt(fx*fx + fy*fy + rieszEpsilon)
		return complex(0, fx/norm), complex(0, fy/norm)
	})
}

// Transforms the image, applies the per-bin multipliers for x and y, and returns the real parts of the inverse transforms
func spectralGradient(data []float32, width int, t spectrum.Transformer, multipliers func(fx, fy float64) (mx, my complex128)) (gx, gy []float32, err error) {
	height := len(data) / width
	fxs, fys := spectrum.Frequencies(width), spectrum.Frequencies(height)

	// precompute the multipliers once, both passes index into them
	mxs, mys := make([]complex128, len(data)), make([]complex128, len(data))
	for r, fy := range fys {
		for c, fx := range fxs {
			mxs[r*width+c], mys[r*width+c] = multipliers(fx, fy)
		}
	}

	f := t.Forward(spectrum.FromReal(data, width))
	gx = spectrum.RealPart(t.Inverse(spectrum.Multiply(f, func(r, c int) complex128 { return mxs[r*width+c] })))
	gy = spectrum.RealPart(t.Inverse(spectrum.Multiply(f, func(r, c int) complex128 { return mys[r*width+c] })))
	return gx, gy, nil
}
