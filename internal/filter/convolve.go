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

package filter

import (
	"github.com/pkg/errors"

	"github.com/mlnoga/fibrelight/internal/pool"
)

var (
	errInvalidKernelSize = errors.New("kernel size must be odd and positive")
	errInvalidSigma      = errors.New("sigma must be positive")
	errInvalidOrder      = errors.New("derivative order must be 0, 1 or 2")
	errInvalidWidth      = errors.New("data length is not a positive multiple of width")
)

// Check if coordinate is within [0, size-1], and if not, reflect out of bounds coordinates back into the value range
func reflect(size, x int) int {
	for x < 0 || x >= size {
		if x < 0 {
			x = -x - 1
		}
		if x >= size {
			x = 2*size - x - 1
		}
	}
	return x
}

// Checks that data describes a non-empty 2D image of the given width
func checkWidth(data []float32, width int) error {
	if width <= 0 || len(data) == 0 || len(data)%width != 0 {
		return errInvalidWidth
	}
	return nil
}

// Convolve the given 2D image provided by data and width with the given kernel along the x axis, and store the result in res.
// Kernel taps are applied left to right, so the kernel [-1, 0, 1] yields data[x+1]-data[x-1]
func Convolve1DX(res, data []float32, width int, kernel []float32) {
	height := len(data) / width
	k := len(kernel) / 2
	for y := 0; y < height; y++ {
		row := data[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			sum := float32(0.0)
			for i := -k; i <= k; i++ {
				x1 := reflect(width, x+i)
				sum += row[x1] * kernel[i+k]
			}
			res[y*width+x] = sum
		}
	}
}

// Convolve the given 2D image provided by data and width with the given kernel along the y axis, and store the result in res
func Convolve1DY(res, data []float32, width int, kernel []float32) {
	height := len(data) / width
	k := len(kernel) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum := float32(0.0)
			for i := -k; i <= k; i++ {
				y1 := reflect(height, y+i)
				sum += data[y1*width+x] * kernel[i+k]
			}
			res[y*width+x] = sum
		}
	}
}

// Applies kernelX along the x axis and kernelY along the y axis. Overwrites tmp and returns the result in res
func Separable(res, tmp, data []float32, width int, kernelX, kernelY []float32) {
	Convolve1DX(tmp, data, width, kernelX)
	Convolve1DY(res, tmp, width, kernelY)
}

// Generate a convolution kernel for a 2D gauss filter of given standard deviation, and applies it to the 2D image given by data and width.
// Overwrites tmp and returns the result in res.
func GaussFilter2D(res, tmp, data []float32, width int, sigma float32) {
	kernel := GaussianKernel1D(sigma)
	Separable(res, tmp, data, width, kernel, kernel)
}

// Blurs the 2D image given by data and width with a gaussian of given sigma, returning a newly allocated array
func Blur(data []float32, width int, sigma float32) ([]float32, error) {
	if err := checkWidth(data, width); err != nil {
		return nil, err
	}
	if sigma <= 0 {
		return nil, errInvalidSigma
	}
	res := make([]float32, len(data))
	tmp := pool.GetFloat32(len(data))
	defer pool.PutFloat32(tmp)
	GaussFilter2D(res, tmp, data, width, sigma)
	return res, nil
}

// Blurs the 2D image given by data and width with a sampled gaussian kernel of fixed size, returning a newly allocated array
func BlurSized(data []float32, width int, size int, sigma float32) ([]float32, error) {
	if err := checkWidth(data, width); err != nil {
		return nil, err
	}
	kernel, err := GaussianKernelSized(size, sigma)
	if err != nil {
		return nil, err
	}
	res := make([]float32, len(data))
	tmp := pool.GetFloat32(len(data))
	defer pool.PutFloat32(tmp)
	Separable(res, tmp, data, width, kernel, kernel)
	return res, nil
}

// Correlates the 2D image with kernel along the x axis, returning a newly allocated array
func ConvolveX(data []float32, width int, kernel []float32) ([]float32, error) {
	if err := checkWidth(data, width); err != nil {
		return nil, err
	}
	res := make([]float32, len(data))
	Convolve1DX(res, data, width, kernel)
	return res, nil
}

// Correlates the 2D image with kernel along the y axis, returning a newly allocated array
func ConvolveY(data []float32, width int, kernel []float32) ([]float32, error) {
	if err := checkWidth(data, width); err != nil {
		return nil, err
	}
	res := make([]float32, len(data))
	Convolve1DY(res, data, width, kernel)
	return res, nil
}

// Applies a Sobel operator of aperture 3 with derivative order dx along x and dy along y.
// Orders are 0, 1 or 2. Returns a newly allocated array
func Sobel(data []float32, width int, dx, dy int) ([]float32, error) {
	if err := checkWidth(data, width); err != nil {
		return nil, err
	}
	kx, err := sobelKernel(dx)
	if err != nil {
		return nil, errors.Wrapf(err, "sobel dx=%d", dx)
	}
	ky, err := sobelKernel(dy)
	if err != nil {
		return nil, errors.Wrapf(err, "sobel dy=%d", dy)
	}
	res := make([]float32, len(data))
	tmp := pool.GetFloat32(len(data))
	defer pool.PutFloat32(tmp)
	Separable(res, tmp, data, width, kx, ky)
	return res, nil
}
