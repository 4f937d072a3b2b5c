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

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Renders the colour survey of the fields: hue encodes orientation over the full circle,
// saturation encodes coherency, and value encodes the given brightness channel stretched
// to [0, 1]. A nil brightness uses the energy field. Returns the red, green and blue channels in [0, 1]
func Survey(f Fields, brightness []float32) (r, g, b []float32, err error) {
	n := len(f.Orientation)
	if brightness == nil {
		brightness = f.Energy
	}
	if len(f.Coherency) != n || len(brightness) != n {
		return nil, nil, nil, errors.Wrapf(ErrMismatch, "survey of %d pixels with %d coherency and %d brightness values",
			n, len(f.Coherency), len(brightness))
	}

	min, max := float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range brightness {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	scale := float32(0)
	if max > min {
		scale = 1 / (max - min)
	}

	r, g, b = make([]float32, n), make([]float32, n), make([]float32, n)
	for i := 0; i < n; i++ {
		hue := math.Mod((float64(f.Orientation[i])+math.Pi/2)*(360/math.Pi), 360)
		if hue < 0 {
			hue += 360
		}
		v := float64(1)
		if scale != 0 {
			v = float64((brightness[i] - min) * scale)
		}
		col := colorful.Hsv(hue, float64(f.Coherency[i]), v).Clamped()
		r[i], g[i], b[i] = float32(col.R), float32(col.G), float32(col.B)
	}
	return r, g, b, nil
}
