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

// Package filter provides the spatial primitives of the analysis: gaussian
// kernels, separable 1D passes over row-major float32 images, and Sobel
// derivative operators. All passes mirror the image at its borders, so an
// out of bounds coordinate -1 reads pixel 0 and coordinate size reads pixel size-1.
package filter

import (
	"math"
)

const sqrt2 = float32(math.Sqrt2)

// Returns the definite integral of the gaussian function with midpoint mu and standard deviation sigma for input x
func GaussianDefiniteIntegral(mu, sigma, x float32) float32 {
	return 0.5 * (1 + float32(math.Erf(float64((x-mu)/(sqrt2*sigma)))))
}

// Upper bound on the radius of generated gaussian kernels
const MaxKernelRadius = 1 << 12

// Generates a 1D gaussian kernel for the given sigma. Based on symbolic integration via error function
func GaussianKernel1D(sigma float32) (kernel []float32) {
	mu := float32(0)

	// Find minimal kernel width for which the area under the curve left of the kernel is below the acceptable error
	acceptOut := float32(0.01)
	radius := 0
	for {
		val := GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius))
		if val < acceptOut {
			radius--
			break
		}
		if radius >= MaxKernelRadius {
			break
		}
		radius++
	}
	if radius < 0 {
		radius = 0 // very narrow gaussians degenerate to the identity kernel
	}
	width := 2*radius + 1
	kernel = make([]float32, width)

	// Calculate left half of the kernel via symbolic integration
	sum := float32(0)
	lower := GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius))
	for i := 0; i <= radius; i++ {
		upper := GaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius)+float32(i+1))
		delta := upper - lower
		kernel[i] = delta
		sum += delta
		lower = upper
	}

	// Mirror right half of the kernel to avoid numeric instability
	for i := 1; i <= radius; i++ {
		value := kernel[radius-i]
		kernel[radius+i] = value
		sum += value
	}

	// Normalize the sum of the kernel to 1, for dealing with the truncated part of the distribution.
	// Huge sigmas underflow to an all-zero kernel, which flattens to a box
	if !(sum > 0) {
		for i := range kernel {
			kernel[i] = 1
		}
		sum = float32(width)
	}
	factor := 1.0 / sum
	for i := range kernel {
		kernel[i] *= factor
	}
	return kernel
}

// Generates a 1D gaussian kernel of fixed odd size by sampling the gaussian function at the
// integer offsets from the center. The kernel is normalized to sum 1.
func GaussianKernelSized(size int, sigma float32) (kernel []float32, err error) {
	if size < 1 || size%2 == 0 {
		return nil, errInvalidKernelSize
	}
	if sigma <= 0 {
		return nil, errInvalidSigma
	}
	radius := size / 2
	kernel = make([]float32, size)
	sum := float64(0)
	for i := range kernel {
		d := float64(i - radius)
		v := math.Exp(-d * d / (2 * float64(sigma) * float64(sigma)))
		kernel[i] = float32(v)
		sum += v
	}
	factor := float32(1 / sum)
	for i := range kernel {
		kernel[i] *= factor
	}
	return kernel, nil
}

// Fixed 3-tap kernels for Sobel operators of aperture 3
var (
	sobelSmooth = []float32{1, 2, 1}
	sobelFirst  = []float32{-1, 0, 1}
	sobelSecond = []float32{1, -2, 1}
)

// Central difference kernel [-1, 0, 1]
func CentralDifference() []float32 {
	return []float32{-1, 0, 1}
}

// Returns the 3-tap Sobel kernel for the given derivative order 0, 1 or 2
func sobelKernel(order int) ([]float32, error) {
	switch order {
	case 0:
		return sobelSmooth, nil
	case 1:
		return sobelFirst, nil
	case 2:
		return sobelSecond, nil
	default:
		return nil, errInvalidOrder
	}
}
