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
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"

	"github.com/mlnoga/fibrelight/internal/pool"
)

// A not-a-knot cubic needs four samples to be determined by more than its boundary conditions
const splineMinSamples = 4

func init() {
	register(CubicSpline, splineMinSamples, cubicSpline)
}

// Fits a not-a-knot cubic spline through every row and every column, sampled at the integer pixel
// positions, and evaluates its derivative there. Lines are processed concurrently; each line is
// computed independently, so the result does not depend on the degree of parallelism
func cubicSpline(data []float32, width int, windowSize float32, o *Options) (gx, gy []float32, err error) {
	height := len(data) / width
	gx, gy = make([]float32, len(data)), make([]float32, len(data))

	threads := o.Threads
	if threads < 1 {
		threads = 1
	}
	sem := make(chan bool, threads)
	errLock, firstErr := sync.Mutex{}, error(nil)
	fail := func(e error) {
		errLock.Lock()
		if firstErr == nil {
			firstErr = e
		}
		errLock.Unlock()
	}

	for y := 0; y < height; y++ {
		sem <- true
		go func(y int) {
			defer func() { <-sem }()
			if err := splineDerivative(gx, data, y*width, 1, width); err != nil {
				fail(errors.Wrapf(err, "row %d", y))
			}
		}(y)
	}
	for x := 0; x < width; x++ {
		sem <- true
		go func(x int) {
			defer func() { <-sem }()
			if err := splineDerivative(gy, data, x, width, height); err != nil {
				fail(errors.Wrapf(err, "column %d", x))
			}
		}(x)
	}
	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}

	if firstErr != nil {
		return nil, nil, firstErr
	}
	return gx, gy, nil
}

// Fits a spline through the n samples of data starting at offset with the given stride,
// and writes its derivatives at the sample positions to the same locations in res
func splineDerivative(res, data []float32, offset, stride, n int) error {
	xs, ys := pool.GetFloat64(n), pool.GetFloat64(n)
	defer pool.PutFloat64(xs)
	defer pool.PutFloat64(ys)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = float64(data[offset+i*stride])
	}
	var spline interp.NotAKnotCubic
	if err := spline.Fit(xs, ys); err != nil {
		return err
	}
	for i, x := range xs {
		res[offset+i*stride] = float32(spline.PredictDerivative(x))
	}
	return nil
}
