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

// Package stats provides basic statistics on float32 data arrays, computed lazily and cached.
package stats

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/stat"
)

// Number of samples drawn for approximate percentiles
const DefaultSamples = 16 * 1024

// Statistics on a 2D data array. Computed once on first access, safe for concurrent readers.
// Create new statistics after modifying the data
type Stats struct {
	data  []float32
	width int

	once   sync.Once
	min    float32
	max    float32
	mean   float32
	stdDev float32
	nans   int
}

// Creates statistics for the given data array of given width. Does not compute anything yet
func NewStats(data []float32, width int) *Stats {
	return &Stats{data: data, width: width}
}

func (s *Stats) compute() {
	s.once.Do(func() {
		s.min, s.max, s.mean, s.stdDev, s.nans = calcBasicStats(s.data)
	})
}

func (s *Stats) Min() float32    { s.compute(); return s.min }
func (s *Stats) Max() float32    { s.compute(); return s.max }
func (s *Stats) Mean() float32   { s.compute(); return s.mean }
func (s *Stats) StdDev() float32 { s.compute(); return s.stdDev }
func (s *Stats) NaNs() int       { s.compute(); return s.nans }
func (s *Stats) Width() int      { return s.width }

// Pretty print basic stats to string
func (s *Stats) String() string {
	s.compute()
	return fmt.Sprintf("Min %.4g Max %.4g Mean %.4g StdDev %.4g", s.min, s.max, s.mean, s.stdDev)
}

// Calculates min, max, mean and standard deviation of the data, skipping NaNs
func calcBasicStats(data []float32) (min, max, mean, stdDev float32, nans int) {
	values := make([]float64, 0, len(data))
	min, max = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, d := range data {
		if math.IsNaN(float64(d)) {
			nans++
			continue
		}
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
		values = append(values, float64(d))
	}
	if len(values) == 0 {
		return 0, 0, 0, 0, nans
	}
	m, sd := stat.PopMeanStdDev(values, nil)
	return min, max, float32(m), float32(sd), nans
}

// Calculates the approximate p-quantiles of the (presumably large) data, for p in [0,1], by subsampling the
// given number of values. Uses all values if the data has no more than numSamples entries. NaNs are skipped
func FastApproxQuantiles(data []float32, ps []float64, numSamples int) []float32 {
	var samples []float64
	if len(data) <= numSamples {
		samples = make([]float64, 0, len(data))
		for _, d := range data {
			if !math.IsNaN(float64(d)) {
				samples = append(samples, float64(d))
			}
		}
	} else {
		samples = make([]float64, 0, numSamples)
		max := uint32(len(data))
		rng := fastrand.RNG{}
		for tries := 0; len(samples) < numSamples && tries < 4*numSamples; tries++ {
			d := data[rng.Uint32n(max)]
			if !math.IsNaN(float64(d)) {
				samples = append(samples, float64(d))
			}
		}
	}

	res := make([]float32, len(ps))
	if len(samples) == 0 {
		return res
	}
	sort.Float64s(samples)
	for i, p := range ps {
		res[i] = float32(stat.Quantile(p, stat.Empirical, samples, nil))
	}
	return res
}
