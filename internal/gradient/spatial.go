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
	"github.com/mlnoga/fibrelight/internal/filter"
)

// Fixed gaussian pre-blur of the Sobel method
const (
	sobelBlurSize  = 5
	sobelBlurSigma = 2.0
)

func init() {
	register(FiniteDifference, 1, finiteDifference)
	register(GaussianSobel, 1, gaussianSobel)
	register(Hessian, 1, hessian)
}

// Correlates with [-1, 0, 1] along rows for gx and along columns for gy
func finiteDifference(data []float32, width int, windowSize float32, o *Options) (gx, gy []float32, err error) {
	k := filter.CentralDifference()
	if gx, err = filter.ConvolveX(data, width, k); err != nil {
		return nil, nil, err
	}
	if gy, err = filter.ConvolveY(data, width, k); err != nil {
		return nil, nil, err
	}
	return gx, gy, nil
}

// Blurs with a fixed 5-tap gaussian, then applies first order Sobel operators.
// The window size does not influence the result
func gaussianSobel(data []float32, width int, windowSize float32, o *Options) (gx, gy []float32, err error) {
	blurred, err := filter.BlurSized(data, width, sobelBlurSize, sobelBlurSigma)
	if err != nil {
		return nil, nil, err
	}
	if gx, err = filter.Sobel(blurred, width, 1, 0); err != nil {
		return nil, nil, err
	}
	if gy, err = filter.Sobel(blurred, width, 0, 1); err != nil {
		return nil, nil, err
	}
	return gx, gy, nil
}

// Blurs with a gaussian of sigma windowSize, then applies pure second order Sobel operators.
// The x-labelled output holds d²/dy² and the y-labelled output d²/dx²
func hessian(data []float32, width int, windowSize float32, o *Options) (gx, gy []float32, err error) {
	blurred, err := filter.Blur(data, width, windowSize)
	if err != nil {
		return nil, nil, err
	}
	if gx, err = filter.Sobel(blurred, width, 0, 2); err != nil {
		return nil, nil, err
	}
	if gy, err = filter.Sobel(blurred, width, 2, 0); err != nil {
		return nil, nil, err
	}
	return gx, gy, nil
}
